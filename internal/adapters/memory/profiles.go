package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/firstresponder/backend/pkg/errors"
)

// ProfileRepository implements repositories.ProfileRepository on a Store
type ProfileRepository struct {
	s *Store
}

var _ repositories.ProfileRepository = (*ProfileRepository)(nil)

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*entities.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.profiles[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("profile with id %s not found", id))
	}
	return &p, nil
}

func (r *ProfileRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*entities.Profile, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.profiles[id]; ok {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r *ProfileRepository) GetByIdentifier(ctx context.Context, identifier entities.Identifier) (*entities.Profile, error) {
	if identifier.IsZero() {
		return nil, apperrors.NewValidationError("identifier is required")
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.profiles {
		switch identifier.Kind() {
		case entities.IdentifierPhone:
			if p.Phone == identifier.Value() {
				return &p, nil
			}
		case entities.IdentifierEmail:
			if strings.ToLower(p.Email) == identifier.Value() {
				return &p, nil
			}
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("profile with %s %s not found", identifier.Kind(), identifier.Value()))
}

func (r *ProfileRepository) ListFrontlineWorkers(ctx context.Context, limit int) ([]*entities.Profile, error) {
	r.s.mu.RLock()
	out := make([]*entities.Profile, 0)
	for _, p := range r.s.profiles {
		if p.IsFrontlineWorker {
			p := p
			out = append(out, &p)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FrontlineTypeRepository implements repositories.FrontlineTypeRepository on a Store
type FrontlineTypeRepository struct {
	s *Store
}

var _ repositories.FrontlineTypeRepository = (*FrontlineTypeRepository)(nil)

func (r *FrontlineTypeRepository) List(ctx context.Context) ([]*entities.FrontlineType, error) {
	r.s.mu.RLock()
	out := make([]*entities.FrontlineType, 0, len(r.s.types))
	for _, ft := range r.s.types {
		ft := ft
		out = append(out, &ft)
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *FrontlineTypeRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.FrontlineType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*entities.FrontlineType, 0, len(ids))
	for _, id := range ids {
		if ft, ok := r.s.types[id]; ok {
			out = append(out, &ft)
		}
	}
	return out, nil
}
