// Package api serves captures, diffs and accessibility fixes over HTTP.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagesnap/api/handler"
	"github.com/use-agent/pagesnap/api/middleware"
	"github.com/use-agent/pagesnap/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(cp handler.Capturer, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	slots := handler.NewSlots(cfg.Server.MaxCaptures)
	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(slots, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/capture", handler.Capture(cp, slots, handler.CaptureOptions{
		OutputDir:     cfg.Capture.OutputDir,
		WebhookSecret: cfg.Webhook.Secret,
	}))
	protected.POST("/diff", handler.Diff())
	protected.POST("/audit", handler.Audit())

	return r
}
