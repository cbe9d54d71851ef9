package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

func NewHealthHandler(pool *pgxpool.Pool, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{Pool: pool, Redis: rdb}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	db := "connected"
	if h.Pool != nil {
		if err := h.Pool.Ping(ctx); err != nil {
			db = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	rd := "connected"
	if h.Redis != nil {
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			rd = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":   overall,
		"database": db,
		"redis":    rd,
	})
}
