package handlers

import (
	"context"
	"net/http"
	"time"

	"catalog-admin-service/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	serviceName    = "catalog-admin-service"
	serviceVersion = "1.0.0"
)

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	db        *gorm.DB
	redis     *redis.Client
	publisher *events.Publisher
}

// NewHealthHandler creates a new health handler. redis and publisher may be nil.
func NewHealthHandler(db *gorm.DB, redisClient *redis.Client, publisher *events.Publisher) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, publisher: publisher}
}

// Health handles the health check endpoint
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"version":   serviceVersion,
		"timestamp": time.Now().UTC(),
	})
}

// Ready reports 503 when the database is unreachable. Redis and NATS are
// optional and only reported.
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{
		"database": "connected",
		"cache":    "disabled",
		"events":   "disabled",
	}
	status, code := "ready", http.StatusOK

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		checks["database"] = "disconnected"
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	if h.redis != nil {
		checks["cache"] = "connected"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["cache"] = "disconnected"
		}
	}
	if h.publisher != nil {
		checks["events"] = "disconnected"
		if h.publisher.IsConnected() {
			checks["events"] = "connected"
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"service":   serviceName,
		"version":   serviceVersion,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}
