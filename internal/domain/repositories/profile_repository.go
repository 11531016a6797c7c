package repositories

import (
	"context"

	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
)

// ProfileRepository is the read-only view of the user directory
type ProfileRepository interface {
	// GetByID retrieves a profile by ID
	GetByID(ctx context.Context, id string) (*entities.Profile, error)

	// GetByIDs retrieves profiles whose id is in ids; missing ids are skipped
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Profile, error)

	// GetByIdentifier retrieves a profile by phone or email
	GetByIdentifier(ctx context.Context, identifier entities.Identifier) (*entities.Profile, error)

	// ListFrontlineWorkers retrieves up to limit profiles flagged as frontline workers
	ListFrontlineWorkers(ctx context.Context, limit int) ([]*entities.Profile, error)
}

// FrontlineTypeRepository is the read-only list of frontline worker kinds
type FrontlineTypeRepository interface {
	// List retrieves all frontline types ordered by name
	List(ctx context.Context) ([]*entities.FrontlineType, error)

	// GetByIDs retrieves frontline types whose id is in ids
	GetByIDs(ctx context.Context, ids []string) ([]*entities.FrontlineType, error)
}
