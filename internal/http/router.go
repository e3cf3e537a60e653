package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/neurobridge-psychometrics/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-psychometrics/internal/http/middleware"
	"github.com/yungbote/neurobridge-psychometrics/internal/observability"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string

	LearnerHandler *httpH.LearnerHandler
	ItemHandler    *httpH.ItemHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "psychometrics"
	}
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")

	// Learners
	if h := cfg.LearnerHandler; h != nil {
		learners := api.Group("/learners/:id")
		learners.POST("/responses", h.RecordResponse)
		learners.GET("/ability", h.GetAbility)
		learners.GET("/optimal-difficulty", h.GetOptimalDifficulty)
		learners.POST("/challenges/select", h.SelectChallenge)
		learners.POST("/interactions", h.RecordInteraction)
		learners.GET("/attention/insights", h.GetAttentionInsights)
		learners.GET("/cpi", h.GetCPI)
		learners.GET("/competency-trends", h.GetCompetencyTrends)
	}

	// Items
	if h := cfg.ItemHandler; h != nil {
		api.POST("/items/:id/calibrate", h.Calibrate)
		api.GET("/items/:id/parameters", h.GetParameters)
		api.POST("/admin/recalibrations", h.RunRecalibration)
	}

	return r
}
