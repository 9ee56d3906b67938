package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guanago/guanago/internal/app"
	iauth "github.com/guanago/guanago/internal/auth"
	"github.com/guanago/guanago/internal/catalog"
	"github.com/guanago/guanago/internal/handlers"
	"github.com/guanago/guanago/internal/middleware"
	"github.com/guanago/guanago/internal/realtime"
	"github.com/guanago/guanago/internal/store"
	"github.com/guanago/guanago/internal/webhooks"
)

// Deps bundles the services the HTTP surface is built from.
type Deps struct {
	Config    *app.Config
	Store     store.Store
	Facade    *catalog.Facade
	Validator *iauth.Validator
	JWT       *iauth.JWTService
	Sessions  *iauth.SessionService
	Attempts  *iauth.AttemptTracker
	Notifier  *webhooks.Notifier
	Hub       *realtime.Hub
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Facade == nil {
		return nil, fmt.Errorf("catalog facade must be provided")
	}
	if deps.Validator == nil {
		return nil, fmt.Errorf("pin validator must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(deps.Config.Server.AllowedOrigins))
	if rl := deps.Config.Server.RateLimit; rl.Enabled {
		r.Use(middleware.RateLimit(deps.Store, rl.MaxRequests, rl.Window))
	}

	r.NoRoute(middleware.NotFoundHandler)

	r.GET("/health", handlers.Health())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(deps.Validator, deps.Sessions, deps.Attempts, deps.Notifier)
	catalogHandler := handlers.NewCatalogHandler(deps.Facade, deps.Notifier)

	api := r.Group("/api")
	{
		api.POST("/validate-admin-pin", authHandler.ValidatePIN)
		api.GET("/catalog/:resource", catalogHandler.Get)
	}

	requireAuth := middleware.Auth(deps.JWT)

	admin := api.Group("/admin", requireAuth)
	{
		admin.GET("/session", authHandler.CurrentSession)
		admin.POST("/logout", authHandler.Logout)
	}
	// Forced refreshes burn Airtable quota, so partner-role sessions may not
	// trigger them.
	api.POST("/catalog/:resource/refresh", requireAuth, middleware.RequireRole("admin"), catalogHandler.Refresh)

	if deps.Hub != nil {
		realtimeHandler := handlers.NewRealtimeHandler(deps.Hub)
		r.GET("/ws/catalog", realtimeHandler.Catalog)
	}

	return r, nil
}
