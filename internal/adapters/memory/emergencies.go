package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/firstresponder/backend/pkg/errors"
)

// EmergencyRepository implements repositories.EmergencyRepository on a Store
type EmergencyRepository struct {
	s *Store
}

var _ repositories.EmergencyRepository = (*EmergencyRepository)(nil)

func (r *EmergencyRepository) Create(ctx context.Context, emergency *entities.Emergency) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.emergencies[emergency.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("emergency with id %s already exists", emergency.ID))
	}
	if _, exists := r.s.profiles[emergency.PatientID]; !exists {
		return apperrors.NewValidationError(fmt.Sprintf("patient %s does not exist", emergency.PatientID))
	}
	r.s.emergencies[emergency.ID] = *emergency
	return nil
}

func (r *EmergencyRepository) GetByID(ctx context.Context, id string) (*entities.Emergency, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.emergencies[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("emergency with id %s not found", id))
	}
	return &e, nil
}

func (r *EmergencyRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.Emergency, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*entities.Emergency, 0, len(ids))
	for _, id := range ids {
		if e, ok := r.s.emergencies[id]; ok {
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *EmergencyRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.Emergency, error) {
	r.s.mu.RLock()
	out := make([]*entities.Emergency, 0)
	for _, e := range r.s.emergencies {
		if e.PatientID == patientID {
			e := e
			out = append(out, &e)
		}
	}
	r.s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *EmergencyRepository) Cancel(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.emergencies[id]
	if !ok || e.IsClosed() {
		return false, nil
	}
	e.Status = entities.EmergencyStatusCancelled
	e.UpdatedAt = time.Now()
	r.s.emergencies[id] = e
	return true, nil
}
