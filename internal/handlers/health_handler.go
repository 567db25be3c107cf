package handlers

import (
	"context"
	"net/http"

	"dress-rental/internal/health"
	"dress-rental/pkg/utils"
)

// HealthChecks is satisfied by *health.HealthChecker
type HealthChecks interface {
	CheckBasic(ctx context.Context) health.HealthStatus
	CheckDetailed(ctx context.Context) health.DetailedStatus
}

type HealthHandler struct {
	checker HealthChecks
}

func NewHealthHandler(checker HealthChecks) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// BasicHealth - for Kubernetes liveness probe
func (h *HealthHandler) BasicHealth(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadinessHealth - for Kubernetes readiness probe
func (h *HealthHandler) ReadinessHealth(w http.ResponseWriter, r *http.Request) {
	status := h.checker.CheckBasic(r.Context())
	code := http.StatusOK
	if status.Status != health.StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	utils.JSON(w, code, status)
}

// DetailedHealth - for monitoring dashboard
func (h *HealthHandler) DetailedHealth(w http.ResponseWriter, r *http.Request) {
	status := h.checker.CheckDetailed(r.Context())
	code := http.StatusOK
	if status.Status != health.StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	utils.JSON(w, code, status)
}
