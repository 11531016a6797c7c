package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/zatekoja/firstresponder/backend/internal/application/services"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
)

// EmergencyHandler handles the patient side of an alert
type EmergencyHandler struct {
	dispatch *services.DispatchService
}

// NewEmergencyHandler creates a new emergency handler
func NewEmergencyHandler(dispatch *services.DispatchService) *EmergencyHandler {
	return &EmergencyHandler{dispatch: dispatch}
}

type raiseAlertRequest struct {
	Description string   `json:"description"`
	Location    *string  `json:"location"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

type alertResponse struct {
	EmergencyID string                  `json:"emergency_id"`
	State       entities.AlertState     `json:"state"`
	Simulated   bool                    `json:"simulated"`
	Notified    int                     `json:"notified"`
	SentAt      time.Time               `json:"sent_at"`
	FanoutError string                  `json:"fanout_error,omitempty"`
	Emergency   entities.Emergency      `json:"emergency"`
	Snapshot    *entities.AlertSnapshot `json:"snapshot,omitempty"`
}

func newAlertResponse(alert *services.AlertSession) alertResponse {
	resp := alertResponse{
		EmergencyID: alert.EmergencyID(),
		State:       alert.State(),
		Simulated:   alert.Simulated(),
		Notified:    alert.Notified(),
		SentAt:      alert.SentAt(),
		Emergency:   alert.Emergency(),
	}
	if err := alert.FanoutErr(); err != nil {
		resp.FanoutError = "responders could not be notified yet, retry to notify them"
	}
	return resp
}

// RaiseAlert handles POST /api/emergencies
func (h *EmergencyHandler) RaiseAlert(w http.ResponseWriter, r *http.Request) {
	var req raiseAlertRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithAppError(w, r, err)
			return
		}
	}

	alert, err := h.dispatch.RaiseAlert(r.Context(), sessionOf(r), services.RaiseAlertRequest{
		Description: req.Description,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, newAlertResponse(alert))
}

// ListAlerts handles GET /api/emergencies
func (h *EmergencyHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	emergencies, err := h.dispatch.ListAlerts(r.Context(), sessionOf(r), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"emergencies": emergencies,
		"count":       len(emergencies),
	})
}

// GetAlert handles GET /api/emergencies/{id}
func (h *EmergencyHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	emergencyID := r.PathValue("id")
	if emergencyID == "" {
		respondWithError(w, http.StatusBadRequest, "emergency ID is required")
		return
	}

	alert, err := h.dispatch.Alert(r.Context(), sessionOf(r), emergencyID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	snapshot, err := h.dispatch.Snapshot(r.Context(), sessionOf(r), emergencyID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	resp := newAlertResponse(alert)
	resp.Snapshot = snapshot
	resp.State = snapshot.State
	respondWithJSON(w, http.StatusOK, resp)
}

// CancelAlert handles POST /api/emergencies/{id}/cancel
func (h *EmergencyHandler) CancelAlert(w http.ResponseWriter, r *http.Request) {
	emergencyID := r.PathValue("id")
	if emergencyID == "" {
		respondWithError(w, http.StatusBadRequest, "emergency ID is required")
		return
	}

	alert, err := h.dispatch.CancelAlert(r.Context(), sessionOf(r), emergencyID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, newAlertResponse(alert))
}

// RetryNotify handles POST /api/emergencies/{id}/notify
func (h *EmergencyHandler) RetryNotify(w http.ResponseWriter, r *http.Request) {
	emergencyID := r.PathValue("id")
	if emergencyID == "" {
		respondWithError(w, http.StatusBadRequest, "emergency ID is required")
		return
	}

	alert, err := h.dispatch.RetryFanout(r.Context(), sessionOf(r), emergencyID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, newAlertResponse(alert))
}
