package handler

import (
	"strings"

	"talent-match/internal/domain/matching"
	"talent-match/internal/metrics"
	"talent-match/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
)

// VersionReporter is satisfied by *matching.MultiFactorScorer.
type VersionReporter interface {
	AlgorithmVersion() string
}

type HealthHandler struct {
	version VersionReporter
}

func NewHealthHandler(version VersionReporter) *HealthHandler {
	return &HealthHandler{version: version}
}

func (h *HealthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/health", h.Health)
	r.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
}

// Health stays 200 in degraded mode; callers read the degraded flag instead.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	data := map[string]any{"status": "up"}
	if h.version != nil {
		v := h.version.AlgorithmVersion()
		data["algorithm_version"] = v
		data["degraded"] = strings.HasSuffix(v, matching.DegradedSuffix)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, data)
}
