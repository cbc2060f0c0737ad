package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/maprank/api/handler"
	"github.com/use-agent/maprank/api/middleware"
	"github.com/use-agent/maprank/cache"
	"github.com/use-agent/maprank/config"
	"github.com/use-agent/maprank/metrics"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Engines map[string]handler.Searcher
	Stats   handler.StatsProvider
	Cache   *cache.Cache
	Started time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
// Background work started for the router stops when ctx is done.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → RequestID
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics stay outside auth so monitoring probes always work.
func NewRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(deps.Stats, deps.Started))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	protected.POST("/search", handler.Search(
		deps.Engines,
		deps.Cache,
		cfg.Pipeline.DefaultLimit,
		cfg.Pipeline.MaxLimit,
	))

	return r
}
