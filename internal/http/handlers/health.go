package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck is one named dependency probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks []HealthCheck
}

func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// GET /healthcheck
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	for _, chk := range h.checks {
		if chk.Check == nil {
			continue
		}
		if err := chk.Check(ctx); err != nil {
			c.String(http.StatusServiceUnavailable, chk.Name+": "+err.Error())
			return
		}
	}
	c.String(http.StatusOK, "ok")
}
