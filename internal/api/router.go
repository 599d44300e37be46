package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/tramdoc/tramdoc/internal/app"
	"github.com/tramdoc/tramdoc/internal/handlers"
	"github.com/tramdoc/tramdoc/internal/middleware"
	"github.com/tramdoc/tramdoc/internal/services"
)

// Dependencies bundles what the HTTP surface needs from the rest of the application.
type Dependencies struct {
	Config    *app.Config
	Accounts  *services.AccountService
	Tokens    middleware.AccessValidator
	Providers handlers.ProviderLister
	PingDB    handlers.Pinger
}

func (d Dependencies) validate() error {
	if d.Config == nil {
		return errors.New("config must be provided")
	}
	if d.Accounts == nil {
		return errors.New("account service must be provided")
	}
	if d.Tokens == nil {
		return errors.New("token validator must be provided")
	}
	if d.PingDB == nil {
		return errors.New("database pinger must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins...))

	registerHealthRoutes(r, deps.PingDB)

	v1 := r.Group("/api/v1")
	registerAuthRoutes(v1, authRouteDeps{
		AuthHandler:     handlers.NewAuthHandler(deps.Accounts),
		ProviderHandler: handlers.NewAuthProviderHandler(deps.Providers),
		RequireAuth:     middleware.Auth(deps.Tokens),
	})

	registerMonitoringRoutes(r, cfg.Monitoring.Prometheus)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
