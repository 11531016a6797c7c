package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/providers"
	"github.com/zatekoja/firstresponder/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/firstresponder/backend/pkg/errors"
)

// DefaultFanoutLimit is how many frontline workers one alert notifies
const DefaultFanoutLimit = 5

const fanoutGuardPrefix = "dispatch:fanout:"

const (
	responderAlertTimeout = 15 * time.Second
	guardReleaseTimeout   = 5 * time.Second
)

// ErrFanoutClaimed is wrapped by Notify when the emergency's fan-out marker
// is held by another attempt. Nothing was written, so the caller may retry
// once the marker is gone.
var ErrFanoutClaimed = errors.New("fan-out already claimed")

// Notifier notifies responders about a new emergency
type Notifier interface {
	Notify(ctx context.Context, emergencyID string) (int, error)
}

// FanoutService creates one pending response per selected frontline worker.
// Workers are picked without any proximity filter.
type FanoutService struct {
	profiles  repositories.ProfileRepository
	responses repositories.EmergencyResponseRepository
	feed      providers.ChangeFeed
	guard     providers.CacheProvider
	guardTTL  time.Duration
	alerter   providers.ResponderAlerter
	limit     int
	now       func() time.Time
}

// FanoutOption configures a FanoutService
type FanoutOption func(*FanoutService)

// WithFanoutGuard records performed fan-outs in a shared cache so a second
// API instance cannot notify the same emergency again
func WithFanoutGuard(cache providers.CacheProvider, ttl time.Duration) FanoutOption {
	return func(s *FanoutService) {
		s.guard = cache
		s.guardTTL = ttl
	}
}

// WithResponderAlerter also alerts every picked worker outside the app.
// Alerts are sent in the background and their failures are only logged.
func WithResponderAlerter(alerter providers.ResponderAlerter) FanoutOption {
	return func(s *FanoutService) {
		s.alerter = alerter
	}
}

// WithFanoutLimit overrides DefaultFanoutLimit
func WithFanoutLimit(limit int) FanoutOption {
	return func(s *FanoutService) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// NewFanoutService creates a new fan-out service
func NewFanoutService(
	profiles repositories.ProfileRepository,
	responses repositories.EmergencyResponseRepository,
	feed providers.ChangeFeed,
	opts ...FanoutOption,
) *FanoutService {
	s := &FanoutService{
		profiles:  profiles,
		responses: responses,
		feed:      feed,
		limit:     DefaultFanoutLimit,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify selects up to the limit of frontline workers and writes their
// pending responses in one bulk insert. Zero available workers is not an
// error. A failed insert writes nothing and may be retried.
func (s *FanoutService) Notify(ctx context.Context, emergencyID string) (int, error) {
	if emergencyID == "" {
		return 0, apperrors.NewValidationError("emergency id is required")
	}
	if entities.IsSimulatedID(emergencyID) {
		log.Info().Str("emergency_id", emergencyID).Msg("Skipping fan-out for simulated emergency")
		return 0, nil
	}

	acquired, err := s.acquire(ctx, emergencyID)
	if err != nil {
		return 0, err
	}
	if !acquired {
		log.Info().Str("emergency_id", emergencyID).Msg("Fan-out marker already held for emergency")
		return 0, &apperrors.AppError{
			Type:    apperrors.ErrorTypeConflict,
			Message: "responders for this alert are already being notified",
			Err:     ErrFanoutClaimed,
		}
	}

	notified, err := s.notify(ctx, emergencyID)
	if err != nil {
		s.release(ctx, emergencyID)
		return 0, err
	}

	recordFanout(ctx, notified)
	return notified, nil
}

func (s *FanoutService) notify(ctx context.Context, emergencyID string) (int, error) {
	workers, err := s.profiles.ListFrontlineWorkers(ctx, s.limit)
	if err != nil {
		return 0, apperrors.NewUnavailableError("failed to list frontline workers", err)
	}

	now := s.now()
	seen := make(map[string]struct{}, len(workers))
	picked := make([]*entities.Profile, 0, s.limit)
	responses := make([]*entities.EmergencyResponse, 0, s.limit)
	for _, w := range workers {
		if len(responses) == s.limit {
			break
		}
		if !w.IsFrontlineWorker {
			continue
		}
		if _, dup := seen[w.ID]; dup {
			continue
		}
		seen[w.ID] = struct{}{}
		picked = append(picked, w)
		responses = append(responses, &entities.EmergencyResponse{
			ID:          uuid.New().String(),
			EmergencyID: emergencyID,
			ResponderID: w.ID,
			Status:      entities.ResponseStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if len(responses) == 0 {
		log.Warn().Str("emergency_id", emergencyID).Msg("No frontline workers available for fan-out")
		return 0, nil
	}

	inserted, err := s.responses.BulkCreate(ctx, responses)
	if err != nil {
		return 0, apperrors.NewUnavailableError("failed to notify responders", err)
	}

	for _, r := range responses {
		publishChange(ctx, s.feed, entities.TableEmergencyResponses, entities.ChangeEventInsert, r,
			providers.ResponsesForResponder(r.ResponderID))
	}
	publishChange(ctx, s.feed, entities.TableEmergencyResponses, entities.ChangeEventInsert,
		map[string]interface{}{"emergency_id": emergencyID, "count": inserted},
		providers.ResponsesForEmergency(emergencyID))

	log.Info().
		Str("emergency_id", emergencyID).
		Int("selected", len(responses)).
		Int("inserted", inserted).
		Msg("Notified frontline workers")

	s.alertOutsideApp(ctx, emergencyID, picked)
	return inserted, nil
}

func (s *FanoutService) alertOutsideApp(ctx context.Context, emergencyID string, workers []*entities.Profile) {
	if s.alerter == nil {
		return
	}
	// The alert must outlive the request that raised the emergency
	ctx = context.WithoutCancel(ctx)
	for _, w := range workers {
		if w.Phone == "" {
			continue
		}
		go func(w *entities.Profile) {
			alertCtx, cancel := context.WithTimeout(ctx, responderAlertTimeout)
			defer cancel()
			if err := s.alerter.AlertResponder(alertCtx, w, emergencyID); err != nil {
				log.Warn().Err(err).
					Str("emergency_id", emergencyID).
					Str("responder_id", w.ID).
					Msg("Failed to alert responder outside the app")
			}
		}(w)
	}
}

func (s *FanoutService) acquire(ctx context.Context, emergencyID string) (bool, error) {
	if s.guard == nil {
		return true, nil
	}
	ok, err := s.guard.SetIfAbsent(ctx, fanoutGuardPrefix+emergencyID, []byte(s.now().Format(time.RFC3339)), int(s.guardTTL.Seconds()))
	if err != nil {
		return false, apperrors.NewUnavailableError(fmt.Sprintf("failed to claim fan-out for emergency %s", emergencyID), err)
	}
	return ok, nil
}

// release drops the marker after a failed attempt. It runs even when the
// request that held the marker has already been cancelled.
func (s *FanoutService) release(ctx context.Context, emergencyID string) {
	if s.guard == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), guardReleaseTimeout)
	defer cancel()
	if err := s.guard.Delete(ctx, fanoutGuardPrefix+emergencyID); err != nil {
		log.Warn().Err(err).Str("emergency_id", emergencyID).Msg("Failed to release fan-out claim")
	}
}
