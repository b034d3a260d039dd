package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/hypnotizedent/printshop-os-sub010/utils"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler reports service liveness and dependency status
type HealthHandler struct {
	responder
	service string
	version string
	checks  map[string]HealthCheck
}

func NewHealthHandler(service, version string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{service: service, version: version, checks: checks}
}

// Health answers 503 when any dependency check fails.
// @Summary Health Check
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Failure 503 {object} dto.APIResponse
// @Router /health [get]
func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, "/health", 2*time.Second)
	defer cancel()

	status := "ok"
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = "degraded"
			continue
		}
		deps[name] = "ok"
	}

	data := fiber.Map{
		"status":       status,
		"timestamp":    utils.UTCNow().Unix(),
		"version":      h.version,
		"service":      h.service,
		"dependencies": deps,
	}
	if status != "ok" {
		return h.ErrorResponse(c, fiber.StatusServiceUnavailable, "Service is degraded", "SERVICE_DEGRADED", data)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Service is healthy", data)
}
