package providers

import (
	"context"
	"errors"

	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
)

// ErrTriageUnavailable is returned when no assistant backend is configured
var ErrTriageUnavailable = errors.New("triage assistant unavailable")

// TriageAssistant answers symptom questions from text, images and voice.
// Every error it returns is recoverable; callers keep their conversation and may retry.
type TriageAssistant interface {
	Chat(ctx context.Context, query entities.TriageQuery) (*entities.TriageReply, error)
	Transcribe(ctx context.Context, audio []byte) (*entities.Transcript, error)
	Speak(ctx context.Context, text, language string) (*entities.Speech, error)
}
