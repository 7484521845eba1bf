package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	writePool *pgxpool.Pool
	readPool  *pgxpool.Pool
	redis     *redis.Client
}

// NewHealthHandler wires the probes.
func NewHealthHandler(writePool, readPool *pgxpool.Pool, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{writePool: writePool, readPool: readPool, redis: redisClient}
}

// Live handles GET /health/live. Process is up.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /health/ready. Dependencies are reachable. A down cache
// does not fail readiness; reads degrade to the stores.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if err := h.writePool.Ping(ctx); err != nil {
		checks["write_store"] = err.Error()
		healthy = false
	} else {
		checks["write_store"] = "ok"
	}

	if err := h.readPool.Ping(ctx); err != nil {
		checks["read_store"] = err.Error()
		healthy = false
	} else {
		checks["read_store"] = "ok"
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		checks["cache"] = "degraded: " + err.Error()
	} else {
		checks["cache"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": checks})
}
