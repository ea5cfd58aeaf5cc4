package routes

import (
	"talent-match/internal/delivery/http/handler"

	"github.com/gofiber/fiber/v3"
)

type Registry struct {
	health   *handler.HealthHandler
	match    *handler.MatchHandler
	outcomes *handler.OutcomeHandler
	auth     fiber.Handler
}

// NewRegistry wires the handlers. A nil auth handler leaves the API unauthenticated.
func NewRegistry(health *handler.HealthHandler, match *handler.MatchHandler, outcomes *handler.OutcomeHandler, auth fiber.Handler) *Registry {
	return &Registry{health: health, match: match, outcomes: outcomes, auth: auth}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.health.RegisterRoutes(app)
	r.registerAPI(app)
}

func (r *Registry) registerAPI(app *fiber.App) {
	v1 := app.Group("/api/v1")
	if r.auth != nil {
		v1.Use(r.auth)
	}
	r.match.RegisterRoutes(v1)
	r.outcomes.RegisterRoutes(v1)
}
