package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/DevDeskHQ/devdesk_api/internal/cache"
	"github.com/DevDeskHQ/devdesk_api/internal/utils"
)

// HealthHandler reports readiness of the service's dependencies.
type HealthHandler struct {
	db    *sqlx.DB
	redis *cache.RedisClient
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db *sqlx.DB, redis *cache.RedisClient) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// GetHealth handles GET /v1/health
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"database": "up", "redis": "up"}
	healthy := true

	if err := h.db.PingContext(ctx); err != nil {
		status["database"] = "down"
		healthy = false
	}
	if err := h.redis.Ping(ctx); err != nil {
		status["redis"] = "down"
		healthy = false
	}

	if !healthy {
		utils.Error(c, 503, "UNHEALTHY", "One or more dependencies are down")
		return
	}
	utils.Success(c, 200, "OK", status)
}
