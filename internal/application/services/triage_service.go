package services

import (
	"context"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/providers"
	apperrors "github.com/zatekoja/firstresponder/backend/pkg/errors"
)

// MaxTriageHistory bounds how many earlier turns are sent with a query
const MaxTriageHistory = 20

// ConversationIdleTTL is how long an untouched conversation is kept
const ConversationIdleTTL = 30 * time.Minute

// TriageService validates triage requests and forwards them to the assistant.
// Assistant failures come back as EXTERNAL errors the caller may retry.
type TriageService struct {
	assistant     providers.TriageAssistant
	speechEnabled bool
	conversations *gocache.Cache
}

// NewTriageService creates a new triage service
func NewTriageService(assistant providers.TriageAssistant, speechEnabled bool) *TriageService {
	return &TriageService{
		assistant:     assistant,
		speechEnabled: speechEnabled,
		conversations: gocache.New(ConversationIdleTTL, ConversationIdleTTL/2),
	}
}

// Conversation returns the live conversation stored under id, starting one in
// language when there is none. Every call extends its idle expiry.
func (s *TriageService) Conversation(id, language string) *TriageConversation {
	if v, ok := s.conversations.Get(id); ok {
		conv := v.(*TriageConversation)
		s.conversations.Set(id, conv, ConversationIdleTTL)
		return conv
	}

	conv := NewTriageConversation(s, language)
	if err := s.conversations.Add(id, conv, ConversationIdleTTL); err != nil {
		// Lost a race with another request for the same id
		if v, ok := s.conversations.Get(id); ok {
			return v.(*TriageConversation)
		}
		s.conversations.Set(id, conv, ConversationIdleTTL)
	}
	return conv
}

// EndConversation forgets the conversation stored under id
func (s *TriageService) EndConversation(id string) {
	s.conversations.Delete(id)
}

// SubmitQuery asks the assistant about symptoms described by text, image or both
func (s *TriageService) SubmitQuery(ctx context.Context, query entities.TriageQuery) (*entities.TriageReply, error) {
	query.Prompt = strings.TrimSpace(query.Prompt)
	if query.Prompt == "" && query.Image == "" {
		return nil, apperrors.NewValidationError("prompt or image is required")
	}
	if len(query.History) > MaxTriageHistory {
		query.History = query.History[len(query.History)-MaxTriageHistory:]
	}
	if s.assistant == nil {
		return nil, apperrors.NewExternalError("triage assistant is not configured", providers.ErrTriageUnavailable)
	}

	reply, err := s.assistant.Chat(ctx, query)
	if err != nil {
		log.Warn().Err(err).Msg("Triage chat failed")
		return nil, apperrors.NewExternalError("the assistant could not answer, please try again", err)
	}
	return reply, nil
}

// Transcribe turns a voice note into text
func (s *TriageService) Transcribe(ctx context.Context, audio []byte) (*entities.Transcript, error) {
	if len(audio) == 0 {
		return nil, apperrors.NewValidationError("audio data is required")
	}
	if s.assistant == nil {
		return nil, apperrors.NewExternalError("triage assistant is not configured", providers.ErrTriageUnavailable)
	}

	transcript, err := s.assistant.Transcribe(ctx, audio)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(audio)).Msg("Transcription failed")
		return nil, apperrors.NewExternalError("could not transcribe the recording, please try again", err)
	}
	return transcript, nil
}

// SynthesizeSpeech reads text aloud. With speech disabled it returns an empty
// result marked feature_disabled, which callers treat as a no-op.
func (s *TriageService) SynthesizeSpeech(ctx context.Context, text, language string) (*entities.Speech, error) {
	if !s.speechEnabled || s.assistant == nil {
		return &entities.Speech{Status: entities.SpeechStatusDisabled}, nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("text is required")
	}

	speech, err := s.assistant.Speak(ctx, text, language)
	if err != nil {
		log.Warn().Err(err).Msg("Speech synthesis failed")
		return nil, apperrors.NewExternalError("could not read the answer aloud", err)
	}
	return speech, nil
}

// TriageConversation keeps the turns of one triage chat. A turn is appended
// only when the assistant answered, so a failed call can simply be retried.
type TriageConversation struct {
	mu       sync.Mutex
	service  *TriageService
	language string
	history  []entities.TriageMessage
}

// NewTriageConversation starts an empty conversation
func NewTriageConversation(service *TriageService, language string) *TriageConversation {
	return &TriageConversation{service: service, language: language}
}

// Ask sends prompt and image with the conversation so far
func (c *TriageConversation) Ask(ctx context.Context, prompt, image string) (*entities.TriageReply, error) {
	c.mu.Lock()
	history := append([]entities.TriageMessage(nil), c.history...)
	c.mu.Unlock()

	reply, err := c.service.SubmitQuery(ctx, entities.TriageQuery{
		Prompt:   prompt,
		Image:    image,
		Language: c.language,
		History:  history,
	})
	if err != nil {
		return nil, err
	}

	userText := strings.TrimSpace(prompt)
	if userText == "" {
		userText = "[image]"
	}

	c.mu.Lock()
	c.history = append(c.history,
		entities.TriageMessage{Role: entities.TriageRoleUser, Text: userText},
		entities.TriageMessage{Role: entities.TriageRoleAssistant, Text: reply.Text},
	)
	c.mu.Unlock()

	return reply, nil
}

// AskByVoice transcribes audio and asks the transcript. The detected language
// replaces the conversation language when none was set.
func (c *TriageConversation) AskByVoice(ctx context.Context, audio []byte) (*entities.Transcript, *entities.TriageReply, error) {
	transcript, err := c.service.Transcribe(ctx, audio)
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	if c.language == "" {
		c.language = transcript.Language
	}
	c.mu.Unlock()

	reply, err := c.Ask(ctx, transcript.Text, "")
	if err != nil {
		return transcript, nil, err
	}
	return transcript, reply, nil
}

// History returns a copy of the turns so far
func (c *TriageConversation) History() []entities.TriageMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entities.TriageMessage(nil), c.history...)
}
