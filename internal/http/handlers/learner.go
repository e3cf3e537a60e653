package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-psychometrics/internal/http/response"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/attention"
	"github.com/yungbote/neurobridge-psychometrics/internal/services"
)

type LearnerHandler struct {
	ability    services.AbilityService
	challenge  services.ChallengeService
	competency services.CompetencyService
}

func NewLearnerHandler(ability services.AbilityService, challenge services.ChallengeService, competency services.CompetencyService) *LearnerHandler {
	return &LearnerHandler{ability: ability, challenge: challenge, competency: competency}
}

func learnerID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_learner_id", errors.New("missing learner id"))
		return "", false
	}
	return id, true
}

type recordResponseRequest struct {
	ItemID     string     `json:"itemId"`
	Correct    *bool      `json:"correct"`
	Difficulty *float64   `json:"difficulty"`
	AnsweredAt *time.Time `json:"answeredAt"`
}

// POST /api/learners/:id/responses
func (h *LearnerHandler) RecordResponse(c *gin.Context) {
	id, ok := learnerID(c)
	if !ok {
		return
	}
	var req recordResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.ItemID) == "" || req.Correct == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("itemId and correct are required"))
		return
	}
	in := services.RecordResponseInput{
		LearnerID:  id,
		ItemID:     req.ItemID,
		Correct:    *req.Correct,
		Difficulty: req.Difficulty,
	}
	if req.AnsweredAt != nil {
		in.AnsweredAt = req.AnsweredAt.UTC()
	}
	est, err := h.ability.RecordResponse(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, "record_response_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"estimate": est})
}

// GET /api/learners/:id/ability
func (h *LearnerHandler) GetAbility(c *gin.Context) {
	id, ok := learnerID(c)
	if !ok {
		return
	}
	view, err := h.ability.Profile(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, "get_ability_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ability": view})
}

// GET /api/learners/:id/optimal-difficulty
func (h *LearnerHandler) GetOptimalDifficulty(c *gin.Context) {
	id, ok := learnerID(c)
	if !ok {
		return
	}
	rec, err := h.ability.OptimalDifficulty(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, "optimal_difficulty_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"recommendation": rec})
}

// POST /api/learners/:id/challenges/select
func (h *LearnerHandler) SelectChallenge(c *gin.Context) {
	id, ok := learnerID(c)
	if !ok {
		return
	}
	var req services.SelectChallengeInput
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.challenge.SelectChallenge(c.Request.Context(), id, req)
	if err != nil {
		response.RespondAPIError(c, "select_challenge_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"selection": out})
}

// POST /api/learners/:id/interactions
func (h *LearnerHandler) RecordInteraction(c *gin.Context) {
	id, ok := learnerID(c)
	if !ok {
		return
	}
	var req attention.InteractionRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.challenge.RecordInteraction(c.Request.Context(), id, req); err != nil {
		response.RespondAPIError(c, "record_interaction_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"ok": true})
}

// GET /api/learners/:id/attention/insights
//
// The query context is read from query parameters: simulationType,
// difficulty, competencies (comma separated), timeOfDay, sessionLength and
// recentPerformance.
func (h *LearnerHandler) GetAttentionInsights(c *gin.Context) {
	id, ok := learnerID(c)
	if !ok {
		return
	}
	query, err := featuresFromQuery(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_query", err)
		return
	}
	res, err := h.challenge.Insights(c.Request.Context(), id, query)
	if err != nil {
		response.RespondAPIError(c, "attention_insights_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"insights": res})
}

// GET /api/learners/:id/cpi
func (h *LearnerHandler) GetCPI(c *gin.Context) {
	id, ok := learnerID(c)
	if !ok {
		return
	}
	res, err := h.competency.CPI(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, "generate_cpi_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"cpi": res})
}

// GET /api/learners/:id/competency-trends
func (h *LearnerHandler) GetCompetencyTrends(c *gin.Context) {
	id, ok := learnerID(c)
	if !ok {
		return
	}
	trends, err := h.competency.Trends(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, "competency_trends_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"trends": trends})
}

func featuresFromQuery(c *gin.Context) (attention.Features, error) {
	f := attention.Features{SimulationType: strings.TrimSpace(c.Query("simulationType"))}
	var err error
	if f.Difficulty, err = queryFloat(c, "difficulty"); err != nil {
		return f, err
	}
	if f.SessionLength, err = queryFloat(c, "sessionLength"); err != nil {
		return f, err
	}
	if f.RecentPerformance, err = queryFloat(c, "recentPerformance"); err != nil {
		return f, err
	}
	if raw := strings.TrimSpace(c.Query("timeOfDay")); raw != "" {
		h, perr := strconv.Atoi(raw)
		if perr != nil {
			return f, errors.New("timeOfDay must be an integer hour")
		}
		f.TimeOfDay = &h
	}
	for _, comp := range strings.Split(c.Query("competencies"), ",") {
		if comp = strings.TrimSpace(comp); comp != "" {
			f.Competencies = append(f.Competencies, comp)
		}
	}
	return f, nil
}

func queryFloat(c *gin.Context, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New(key + " must be a number")
	}
	return &v, nil
}
