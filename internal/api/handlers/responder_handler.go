package handlers

import (
	"net/http"

	"github.com/zatekoja/firstresponder/backend/internal/application/services"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
)

// ResponderHandler handles the frontline worker dashboard
type ResponderHandler struct {
	responder *services.ResponderService
}

// NewResponderHandler creates a new responder handler
func NewResponderHandler(responder *services.ResponderService) *ResponderHandler {
	return &ResponderHandler{responder: responder}
}

// ListAssigned handles GET /api/responders/me/emergencies
func (h *ResponderHandler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	assigned, err := h.responder.ListAssignedEmergencies(r.Context(), sessionOf(r))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"emergencies": assigned,
		"count":       len(assigned),
	})
}

type respondRequest struct {
	Decision string `json:"decision"`
}

// Respond handles POST /api/responses/{id}/respond
func (h *ResponderHandler) Respond(w http.ResponseWriter, r *http.Request) {
	responseID := r.PathValue("id")
	if responseID == "" {
		respondWithError(w, http.StatusBadRequest, "response ID is required")
		return
	}

	var req respondRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	decision, ok := entities.ParseDecision(req.Decision)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "decision must be accept or decline")
		return
	}

	result, err := h.responder.Respond(r.Context(), sessionOf(r), responseID, decision)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"response": result.Response,
		"changed":  result.Changed,
	})
}
