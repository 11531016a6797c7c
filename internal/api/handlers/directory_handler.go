package handlers

import (
	"net/http"

	"github.com/zatekoja/firstresponder/backend/internal/application/services"
)

// DirectoryHandler serves read-only directory data
type DirectoryHandler struct {
	directory *services.DirectoryService
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(directory *services.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// ListFrontlineTypes handles GET /api/frontline-types
func (h *DirectoryHandler) ListFrontlineTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.directory.ListFrontlineTypes(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"frontline_types": types,
		"count":           len(types),
	})
}

// Me handles GET /api/me
func (h *DirectoryHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := sessionOf(r)
	if !session.IsAuthenticated() {
		respondWithError(w, http.StatusUnauthorized, "sign in required")
		return
	}
	respondWithJSON(w, http.StatusOK, session.Profile)
}
