package providers

import (
	"context"

	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
)

// ResponderAlerter reaches a frontline worker outside the app, for example
// over WhatsApp, when they are picked for an emergency. Delivery is best effort.
type ResponderAlerter interface {
	AlertResponder(ctx context.Context, responder *entities.Profile, emergencyID string) error
}
