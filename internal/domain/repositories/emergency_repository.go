package repositories

import (
	"context"

	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
)

// EmergencyRepository defines the interface for emergency data operations
type EmergencyRepository interface {
	// Create persists a new emergency
	Create(ctx context.Context, emergency *entities.Emergency) error

	// GetByID retrieves an emergency by ID
	GetByID(ctx context.Context, id string) (*entities.Emergency, error)

	// GetByIDs retrieves emergencies whose id is in ids; missing ids are skipped
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Emergency, error)

	// ListByPatient retrieves a patient's emergencies, newest first
	ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.Emergency, error)

	// Cancel moves an open emergency to cancelled. It reports whether a row
	// changed; cancelling a closed or unknown emergency changes nothing.
	Cancel(ctx context.Context, id string) (bool, error)
}

// EmergencyResponseRepository defines the interface for responder notifications
type EmergencyResponseRepository interface {
	// BulkCreate inserts all responses in one statement and returns how many
	// rows were written. Existing (emergency_id, responder_id) pairs are kept.
	BulkCreate(ctx context.Context, responses []*entities.EmergencyResponse) (int, error)

	// GetByID retrieves a response by ID
	GetByID(ctx context.Context, id string) (*entities.EmergencyResponse, error)

	// ListByEmergency retrieves the responses of an emergency in insertion order
	ListByEmergency(ctx context.Context, emergencyID string) ([]*entities.EmergencyResponse, error)

	// ListByResponder retrieves a responder's assignments, newest first
	ListByResponder(ctx context.Context, responderID string) ([]*entities.EmergencyResponse, error)

	// Decide moves a pending response to status. It reports false without
	// writing when the response was already answered.
	Decide(ctx context.Context, id string, status entities.ResponseStatus) (bool, error)
}
