package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-psychometrics/internal/http/response"
	"github.com/yungbote/neurobridge-psychometrics/internal/services"
)

// Recalibrator runs one batch pass. CalibrationService satisfies it
// directly; the temporal dispatcher satisfies it by executing the workflow.
type Recalibrator interface {
	RunPass(ctx context.Context, pass string) (services.RecalibrationReport, error)
}

type ItemHandler struct {
	calibration  services.CalibrationService
	recalibrator Recalibrator
}

func NewItemHandler(calibration services.CalibrationService, recalibrator Recalibrator) *ItemHandler {
	if recalibrator == nil {
		recalibrator = calibration
	}
	return &ItemHandler{calibration: calibration, recalibrator: recalibrator}
}

// POST /api/items/:id/calibrate
func (h *ItemHandler) Calibrate(c *gin.Context) {
	itemID := strings.TrimSpace(c.Param("id"))
	res, err := h.calibration.CalibrateItem(c.Request.Context(), itemID)
	if err != nil {
		response.RespondAPIError(c, "calibrate_item_failed", err)
		return
	}
	if !res.Calibrated {
		response.RespondAPIError(c, "calibrate_item_failed", res.Err())
		return
	}
	response.RespondOK(c, gin.H{"calibration": res})
}

// GET /api/items/:id/parameters
func (h *ItemHandler) GetParameters(c *gin.Context) {
	p, err := h.calibration.Parameters(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, "get_parameters_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"parameters": p})
}

type recalibrationRequest struct {
	Pass string `json:"pass"`
}

// POST /api/admin/recalibrations
func (h *ItemHandler) RunRecalibration(c *gin.Context) {
	var req recalibrationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	pass := strings.ToLower(strings.TrimSpace(req.Pass))
	if pass == "" {
		pass = services.PassDaily
	}
	rep, err := h.recalibrator.RunPass(c.Request.Context(), pass)
	if err != nil {
		response.RespondAPIError(c, "recalibration_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"report": rep})
}
