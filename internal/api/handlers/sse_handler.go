package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/firstresponder/backend/internal/application/services"
	"github.com/zatekoja/firstresponder/backend/internal/infrastructure/observability"
)

// DefaultHeartbeatInterval keeps idle streams open through proxies
const DefaultHeartbeatInterval = 30 * time.Second

// SSEHandler streams live alert and dashboard updates as Server-Sent Events
type SSEHandler struct {
	dispatch  *services.DispatchService
	responder *services.ResponderService
	metrics   *observability.Metrics
	heartbeat time.Duration
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(dispatch *services.DispatchService, responder *services.ResponderService, metrics *observability.Metrics) *SSEHandler {
	return &SSEHandler{
		dispatch:  dispatch,
		responder: responder,
		metrics:   metrics,
		heartbeat: DefaultHeartbeatInterval,
	}
}

// WithHeartbeat overrides the heartbeat interval
func (h *SSEHandler) WithHeartbeat(d time.Duration) *SSEHandler {
	if d > 0 {
		h.heartbeat = d
	}
	return h
}

// StreamAlert handles GET /api/stream/emergencies/{id}
func (h *SSEHandler) StreamAlert(w http.ResponseWriter, r *http.Request) {
	emergencyID := r.PathValue("id")
	if emergencyID == "" {
		respondWithError(w, http.StatusBadRequest, "emergency ID is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	snapshots, err := h.dispatch.ObserveResponses(r.Context(), sessionOf(r), emergencyID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	defer observability.TrackStream(r.Context(), h.metrics, "alert")()

	setStreamHeaders(w)
	h.sendEvent(w, "connected", map[string]interface{}{
		"emergency_id": emergencyID,
		"timestamp":    time.Now(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Str("emergency_id", emergencyID).Msg("Client disconnected from alert stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{"timestamp": time.Now()})
			flusher.Flush()
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			h.sendEvent(w, "snapshot", snap)
			flusher.Flush()
		}
	}
}

// StreamAssignments handles GET /api/stream/responders/me
func (h *SSEHandler) StreamAssignments(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	session := sessionOf(r)
	updates, err := h.responder.ObserveAssignments(r.Context(), session)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	defer observability.TrackStream(r.Context(), h.metrics, "assignments")()

	setStreamHeaders(w)
	h.sendEvent(w, "connected", map[string]interface{}{
		"responder_id": session.ProfileID(),
		"timestamp":    time.Now(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Str("responder_id", session.ProfileID()).Msg("Client disconnected from assignment stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{"timestamp": time.Now()})
			flusher.Flush()
		case list, ok := <-updates:
			if !ok {
				return
			}
			h.sendEvent(w, "assignments", map[string]interface{}{
				"emergencies": list,
				"count":       len(list),
			})
			flusher.Flush()
		}
	}
}

func setStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// sendEvent sends an SSE event to the client
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("Failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}
