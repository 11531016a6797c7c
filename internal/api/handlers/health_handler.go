package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthCheck probes one backing service
type HealthCheck func(ctx context.Context) error

// HealthHandler reports whether the backing services answer
type HealthHandler struct {
	checks map[string]HealthCheck
}

// NewHealthHandler creates a health handler. checks may be empty.
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	respondWithJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": results,
	})
}
