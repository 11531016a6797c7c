package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/firstresponder/backend/pkg/errors"
)

// ResponseRepository implements repositories.EmergencyResponseRepository on a Store
type ResponseRepository struct {
	s *Store
}

var _ repositories.EmergencyResponseRepository = (*ResponseRepository)(nil)

// BulkCreate inserts all rows atomically, skipping pairs that already exist
func (r *ResponseRepository) BulkCreate(ctx context.Context, responses []*entities.EmergencyResponse) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, resp := range responses {
		if _, ok := r.s.emergencies[resp.EmergencyID]; !ok {
			return 0, apperrors.NewValidationError(fmt.Sprintf("emergency %s does not exist", resp.EmergencyID))
		}
	}

	inserted := 0
	for _, resp := range responses {
		key := pairKey(resp.EmergencyID, resp.ResponderID)
		if _, exists := r.s.pairs[key]; exists {
			continue
		}
		if _, exists := r.s.responses[resp.ID]; exists {
			continue
		}
		r.s.responses[resp.ID] = *resp
		r.s.pairs[key] = resp.ID
		r.s.order = append(r.s.order, resp.ID)
		inserted++
	}
	return inserted, nil
}

func (r *ResponseRepository) GetByID(ctx context.Context, id string) (*entities.EmergencyResponse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	resp, ok := r.s.responses[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("emergency response with id %s not found", id))
	}
	return &resp, nil
}

func (r *ResponseRepository) ListByEmergency(ctx context.Context, emergencyID string) ([]*entities.EmergencyResponse, error) {
	return r.filter(func(resp entities.EmergencyResponse) bool { return resp.EmergencyID == emergencyID }, false), nil
}

func (r *ResponseRepository) ListByResponder(ctx context.Context, responderID string) ([]*entities.EmergencyResponse, error) {
	return r.filter(func(resp entities.EmergencyResponse) bool { return resp.ResponderID == responderID }, true), nil
}

func (r *ResponseRepository) Decide(ctx context.Context, id string, status entities.ResponseStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	resp, ok := r.s.responses[id]
	if !ok {
		return false, apperrors.NewNotFoundError(fmt.Sprintf("emergency response with id %s not found", id))
	}
	if resp.Status != entities.ResponseStatusPending {
		return false, nil
	}
	resp.Status = status
	resp.UpdatedAt = time.Now()
	r.s.responses[id] = resp
	return true, nil
}

func (r *ResponseRepository) filter(match func(entities.EmergencyResponse) bool, newestFirst bool) []*entities.EmergencyResponse {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*entities.EmergencyResponse, 0)
	for _, id := range r.s.order {
		resp := r.s.responses[id]
		if match(resp) {
			out = append(out, &resp)
		}
	}
	if newestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}
