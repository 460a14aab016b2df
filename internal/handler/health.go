package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/tradedock/internal/infrastructure/redis"
	"github.com/yourorg/tradedock/pkg/database"
)

// HealthHandler handles liveness and readiness endpoints
type HealthHandler struct {
	pool        *database.ConnectionPool
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewHealthHandler creates a new health handler. redisClient may be nil
// when the listing cache is disabled.
func NewHealthHandler(pool *database.ConnectionPool, redisClient *redis.Client, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &HealthHandler{
		pool:        pool,
		redisClient: redisClient,
		logger:      logger,
	}
}

// HealthResponse represents the liveness response
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health handles GET /healthz: the process is up
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready handles GET /readyz: 200 only when the backing stores respond
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	if err := h.pool.Health(ctx); err != nil {
		checks["postgres"] = "error: " + err.Error()
		ready = false
	} else {
		checks["postgres"] = "ok"
	}

	if h.redisClient != nil {
		if err := h.redisClient.Ping(ctx); err != nil {
			checks["redis"] = "error: " + err.Error()
			ready = false
		} else {
			checks["redis"] = "ok"
		}
	} else {
		checks["redis"] = "not configured"
	}

	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		h.logger.Warn("readiness check failed",
			slog.String("postgres", checks["postgres"]),
			slog.String("redis", checks["redis"]),
		)
	}

	writeJSON(w, statusCode, ReadinessResponse{Status: status, Checks: checks})
}
