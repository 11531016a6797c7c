package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/zatekoja/firstresponder/backend/internal/application/services"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
)

// TriageHandler proxies triage requests to the assistant so its credentials
// stay on the server
type TriageHandler struct {
	triage *services.TriageService
}

// NewTriageHandler creates a new triage handler
func NewTriageHandler(triage *services.TriageService) *TriageHandler {
	return &TriageHandler{triage: triage}
}

// maxConversationIDLength bounds client chosen conversation ids
const maxConversationIDLength = 128

type chatRequest struct {
	entities.TriageQuery
	ConversationID string `json:"conversationId,omitempty"`
}

type chatResponse struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Chat handles POST /triage/chat. With a conversationId the server keeps the
// history and any history in the body is ignored; without one the client
// sends its own.
func (h *TriageHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if !validConversationID(req.ConversationID) {
		respondWithError(w, http.StatusBadRequest, "conversationId is too long")
		return
	}

	var (
		reply *entities.TriageReply
		err   error
	)
	if req.ConversationID != "" {
		conv := h.triage.Conversation(req.ConversationID, req.Language)
		reply, err = conv.Ask(r.Context(), req.Prompt, req.Image)
	} else {
		reply, err = h.triage.SubmitQuery(r.Context(), req.TriageQuery)
	}
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, chatResponse{Text: reply.Text, ConversationID: req.ConversationID})
}

// EndConversation handles DELETE /triage/conversations/{id}
func (h *TriageHandler) EndConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" || !validConversationID(id) {
		respondWithError(w, http.StatusBadRequest, "conversation ID is required")
		return
	}

	h.triage.EndConversation(id)
	w.WriteHeader(http.StatusNoContent)
}

func validConversationID(id string) bool {
	return len(id) <= maxConversationIDLength
}

type transcribeRequest struct {
	AudioData      string `json:"audioData"`
	ConversationID string `json:"conversationId,omitempty"`
}

type transcribeResponse struct {
	Text     string `json:"transcript"`
	Language string `json:"language"`
	Reply    string `json:"reply,omitempty"`
}

// Transcribe handles POST /triage/transcribe
func (h *TriageHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	audio, err := decodeBase64Payload(req.AudioData)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "audioData must be base64")
		return
	}

	if !validConversationID(req.ConversationID) {
		respondWithError(w, http.StatusBadRequest, "conversationId is too long")
		return
	}

	// Inside a conversation the transcript is asked straight away
	if req.ConversationID != "" {
		conv := h.triage.Conversation(req.ConversationID, "")
		transcript, reply, err := conv.AskByVoice(r.Context(), audio)
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, transcribeResponse{Text: transcript.Text, Language: transcript.Language, Reply: reply.Text})
		return
	}

	transcript, err := h.triage.Transcribe(r.Context(), audio)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, transcript)
}

type speakRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type speakResponse struct {
	AudioBase64 string `json:"audioBase64"`
	Status      string `json:"status,omitempty"`
}

// Speak handles POST /triage/speak
func (h *TriageHandler) Speak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	speech, err := h.triage.SynthesizeSpeech(r.Context(), req.Text, req.Language)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if speech.Disabled() {
		respondWithJSON(w, http.StatusOK, speakResponse{Status: entities.SpeechStatusDisabled})
		return
	}

	respondWithJSON(w, http.StatusOK, speakResponse{AudioBase64: base64.StdEncoding.EncodeToString(speech.Audio)})
}

// decodeBase64Payload accepts raw base64 or a data URL
func decodeBase64Payload(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if i := strings.Index(data, ";base64,"); strings.HasPrefix(data, "data:") && i >= 0 {
		data = data[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(data)
}
