package app

import (
	"fmt"
	"strings"
	"time"

	"talent-match/internal/config"
	"talent-match/internal/delivery/http/handler"
	"talent-match/internal/delivery/http/middleware"
	"talent-match/internal/delivery/http/routes"
	"talent-match/internal/pkg/jwt"

	"github.com/gofiber/fiber/v3"
)

const bodyLimit = 32 << 20

type App struct {
	Fiber     *fiber.App
	Container *Container
}

func New(c *Container) *App {
	f := fiber.New(fiber.Config{
		AppName:     c.Config.App.AppName,
		BodyLimit:   bodyLimit,
		ReadTimeout: 30 * time.Second,
	})

	f.Use(middleware.NewAccessLogMiddleware(c.Logger).Middleware())
	f.Use(middleware.NewErrorMiddleware(c.Logger).Middleware())

	var auth fiber.Handler
	if c.Config.JWT.Secret != "" {
		auth = middleware.NewAuthMiddleware(jwt.NewHMACService(c.Config.JWT.Secret, c.Config.JWT.ExpiresIn)).Middleware()
	} else {
		c.Logger.Warn("JWT_SECRET not set, API is unauthenticated")
	}

	routes.NewRegistry(
		handler.NewHealthHandler(c.Scorer),
		handler.NewMatchHandler(c.Matching),
		handler.NewOutcomeHandler(c.Matching),
		auth,
	).Register(f)

	return &App{Fiber: f, Container: c}
}

// Bootstrap builds the container and the HTTP app. cleanup releases the container.
func Bootstrap(cfg config.Config, c *Container) (*App, func() error, error) {
	if err := cfg.RequireServer(); err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, fmt.Errorf("nil container")
	}
	return New(c), c.Close, nil
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
