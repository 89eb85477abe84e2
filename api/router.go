package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/trendscraper/api/handler"
	"github.com/use-agent/trendscraper/api/middleware"
	"github.com/use-agent/trendscraper/config"
	"github.com/use-agent/trendscraper/store"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → CORS
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint stays outside auth so monitoring probes always work.
// Background work started here (rate-limit sweeping) stops when ctx is done.
func NewRouter(ctx context.Context, sc handler.TrendScraper, repo store.Repository, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.CORS(cfg.CORS))

	health := handler.Health(sc, startTime)
	scrape := handler.Scrape(sc, repo, cfg.Login.Credentials, cfg.Webhook)

	// Trigger chain: auth (if enabled), then the rate limiter. One limiter
	// serves every trigger path so the aliases share buckets.
	var trigger []gin.HandlerFunc
	if cfg.Auth.Enabled {
		trigger = append(trigger, middleware.Auth(cfg.Auth.APIKeys))
	}
	trigger = append(trigger, middleware.NewRateLimiter(ctx, cfg.RateLimit).Handler(), scrape)

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", health)

	// Only the scrape trigger is rate limited; each call drives a browser.
	v1.POST("/scrape", trigger...)

	// Read-back
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.GET("/trends", handler.ListTrends(repo))
	protected.GET("/trends/:id", handler.GetTrend(repo))

	// Unversioned paths kept for existing front ends.
	r.GET("/health", health)
	r.POST("/api/scrape", trigger...)

	return r
}
