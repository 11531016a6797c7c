package services

import (
	"context"

	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/firstresponder/backend/pkg/errors"
)

// DirectoryService reads the user directory on behalf of the API
type DirectoryService struct {
	profiles       repositories.ProfileRepository
	frontlineTypes repositories.FrontlineTypeRepository
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(profiles repositories.ProfileRepository, frontlineTypes repositories.FrontlineTypeRepository) *DirectoryService {
	return &DirectoryService{profiles: profiles, frontlineTypes: frontlineTypes}
}

// SessionForProfile builds the caller session from an authenticated profile id
func (s *DirectoryService) SessionForProfile(ctx context.Context, profileID string) (entities.Session, error) {
	if profileID == "" {
		return entities.Session{}, apperrors.NewUnauthorizedError("missing profile")
	}
	profile, err := s.profiles.GetByID(ctx, profileID)
	return s.session(profile, err)
}

// SessionForIdentifier builds the caller session from a verified phone or email
func (s *DirectoryService) SessionForIdentifier(ctx context.Context, identifier entities.Identifier) (entities.Session, error) {
	if identifier.IsZero() {
		return entities.Session{}, apperrors.NewUnauthorizedError("missing identifier")
	}
	profile, err := s.profiles.GetByIdentifier(ctx, identifier)
	return s.session(profile, err)
}

func (s *DirectoryService) session(profile *entities.Profile, err error) (entities.Session, error) {
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return entities.Session{}, apperrors.NewUnauthorizedError("unknown profile")
		}
		return entities.Session{}, apperrors.NewUnavailableError("could not load profile", err)
	}
	return entities.NewSession(profile), nil
}

// ListFrontlineTypes returns every kind of frontline worker
func (s *DirectoryService) ListFrontlineTypes(ctx context.Context) ([]*entities.FrontlineType, error) {
	types, err := s.frontlineTypes.List(ctx)
	if err != nil {
		return nil, apperrors.NewUnavailableError("could not load frontline types", err)
	}
	return types, nil
}
