package api

import (
	"context"
	"net/http"

	"tripcast-service/internal/infrastructure/health"
	"tripcast-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports dependency health
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// RouterDeps are the handlers and middleware mounted by NewRouter
type RouterDeps struct {
	Trips          *TripHandler
	Health         HealthChecker
	Metrics        http.Handler
	RateLimitPerIP int
	Logger         logger.Logger
}

// NewRouter builds the gin engine with every route registered
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(deps.Logger))

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}
	r.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			c.JSON(http.StatusOK, gin.H{"status": health.StatusOK})
			return
		}
		report := deps.Health.Check(c.Request.Context())
		status := http.StatusOK
		if report.Status != health.StatusOK {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	})

	RegisterTripRoutes(r, deps.Trips, NewRateLimiter(deps.RateLimitPerIP, deps.Logger))
	return r
}

// RegisterTripRoutes registers all endpoints for trip planning
func RegisterTripRoutes(r *gin.Engine, h *TripHandler, limiter *RateLimiter) {
	trips := r.Group("/api/v1/trips", limiter.Middleware())
	{
		trips.POST("", h.CreateTrip)
		trips.GET("/:id", h.GetTrip)
		trips.GET("/:id/telemetry", h.GetTelemetry)
		trips.POST("/:id/messages", h.PostMessage)                     // Phase 1: research and refinement
		trips.POST("/:id/confirm-destinations", h.ConfirmDestinations) // Phase 1 -> Phase 2 hand-off
		trips.POST("/:id/itinerary", h.GetItinerary)                   // Phase 2: day-by-day plan
		trips.POST("/:id/select-option", h.SelectOption)
		trips.POST("/:id/handoff", h.HandOff)
	}
}
