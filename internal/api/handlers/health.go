package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/carewatch/pkg/database"
)

// HealthChecker reports log store health
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// HealthHandler serves /health
type HealthHandler struct {
	db         HealthChecker
	configHash string
}

// NewHealthHandler creates a health handler. db may be nil.
func NewHealthHandler(db HealthChecker, configHash string) *HealthHandler {
	return &HealthHandler{db: db, configHash: configHash}
}

// Check reports service and database health
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":      "ok",
		"service":     "carewatch-api",
		"config_hash": h.configHash,
	}

	if h.db == nil {
		body["database"] = "not configured"
		respondJSON(w, http.StatusOK, body)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status, err := h.db.HealthCheck(ctx)
	body["database"] = status
	if err != nil {
		body["status"] = "degraded"
		respondJSON(w, http.StatusServiceUnavailable, body)
		return
	}

	respondJSON(w, http.StatusOK, body)
}
