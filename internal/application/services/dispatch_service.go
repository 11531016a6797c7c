package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/firstresponder/backend/internal/application/loaders"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/providers"
	"github.com/zatekoja/firstresponder/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/firstresponder/backend/pkg/errors"
)

// DefaultAlertDescription is stored when the patient pressed SOS without typing
const DefaultAlertDescription = "Emergency SOS alert"

// RaiseAlertRequest is what the patient sends from the alert screen
type RaiseAlertRequest struct {
	Description string
	Location    *string
	Latitude    *float64
	Longitude   *float64
}

// DispatchService drives the patient side of an alert: raise, observe, cancel
type DispatchService struct {
	emergencies repositories.EmergencyRepository
	responses   repositories.EmergencyResponseRepository
	loaders     *loaders.Loaders
	notifier    Notifier
	feed        providers.ChangeFeed
	sessions    *SessionRegistry
	now         func() time.Time
}

// NewDispatchService creates a new dispatch service
func NewDispatchService(
	emergencies repositories.EmergencyRepository,
	responses repositories.EmergencyResponseRepository,
	loaders *loaders.Loaders,
	notifier Notifier,
	feed providers.ChangeFeed,
	sessions *SessionRegistry,
) *DispatchService {
	return &DispatchService{
		emergencies: emergencies,
		responses:   responses,
		loaders:     loaders,
		notifier:    notifier,
		feed:        feed,
		sessions:    sessions,
		now:         time.Now,
	}
}

// RaiseAlert creates the patient's emergency and notifies responders once.
// When the store rejects the emergency a simulated one is returned so the
// alert screen keeps working; it is never persisted.
func (s *DispatchService) RaiseAlert(ctx context.Context, session entities.Session, req RaiseAlertRequest) (*AlertSession, error) {
	if !session.IsAuthenticated() {
		return nil, apperrors.NewUnauthorizedError("sign in to raise an alert")
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = DefaultAlertDescription
	}

	now := s.now()
	emergency := &entities.Emergency{
		ID:          uuid.New().String(),
		PatientID:   session.ProfileID(),
		Description: description,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Status:      entities.EmergencyStatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.emergencies.Create(ctx, emergency); err != nil {
		log.Warn().Err(err).Str("patient_id", emergency.PatientID).Msg("Failed to store emergency, continuing with simulated alert")
		emergency.ID = entities.SimulatedIDPrefix + uuid.New().String()
		emergency.Simulated = true
	} else {
		publishChange(ctx, s.feed, entities.TableEmergencies, entities.ChangeEventInsert, emergency,
			providers.EmergenciesForPatient(emergency.PatientID))
	}
	recordAlertRaised(ctx, emergency.Simulated)

	alert := newAlertSession(emergency)
	if err := alert.transition(entities.AlertStateSent, now); err != nil {
		return nil, apperrors.NewInternalError("failed to start alert session", err)
	}
	alert = s.sessions.Put(alert)

	s.runFanout(ctx, alert)

	log.Info().
		Str("emergency_id", emergency.ID).
		Str("patient_id", emergency.PatientID).
		Bool("simulated", emergency.Simulated).
		Int("notified", alert.Notified()).
		Msg("Alert raised")

	return alert, nil
}

// RetryFanout runs fan-out again for an alert whose previous attempt failed.
// It does nothing once responders were notified.
func (s *DispatchService) RetryFanout(ctx context.Context, session entities.Session, emergencyID string) (*AlertSession, error) {
	alert, err := s.alertFor(ctx, session, emergencyID)
	if err != nil {
		return nil, err
	}
	s.runFanout(ctx, alert)
	if err := alert.FanoutErr(); err != nil {
		return alert, err
	}
	return alert, nil
}

func (s *DispatchService) runFanout(ctx context.Context, alert *AlertSession) {
	if !alert.claimFanout() {
		return
	}
	notified, err := s.notifier.Notify(ctx, alert.EmergencyID())
	switch {
	case errors.Is(err, ErrFanoutClaimed):
		// Left retryable: the marker may belong to an attempt that failed
		log.Warn().Err(err).Str("emergency_id", alert.EmergencyID()).Msg("Fan-out not run, marker held")
	case err != nil:
		log.Error().Err(err).Str("emergency_id", alert.EmergencyID()).Msg("Fan-out failed")
	}
	alert.finishFanout(notified, err)
}

// Alert returns the caller's alert session
func (s *DispatchService) Alert(ctx context.Context, session entities.Session, emergencyID string) (*AlertSession, error) {
	return s.alertFor(ctx, session, emergencyID)
}

// Snapshot re-reads the alert's responders and returns what the patient sees now
func (s *DispatchService) Snapshot(ctx context.Context, session entities.Session, emergencyID string) (*entities.AlertSnapshot, error) {
	alert, err := s.alertFor(ctx, session, emergencyID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, alert), nil
}

func (s *DispatchService) snapshot(ctx context.Context, alert *AlertSession) *entities.AlertSnapshot {
	snap := &entities.AlertSnapshot{
		EmergencyID: alert.EmergencyID(),
		Simulated:   alert.Simulated(),
		NotifiedAt:  alert.SentAt(),
	}

	if snap.Simulated {
		snap.State = alert.State()
		snap.Placeholder = true
		snap.Responders = placeholderResponders()
		return snap
	}

	if alert.State() != entities.AlertStateCancelled {
		if emergency, err := s.emergencies.GetByID(ctx, snap.EmergencyID); err == nil && emergency.IsClosed() {
			_ = alert.transition(entities.AlertStateCancelled, s.now())
		}
	}

	views, err := s.responderViews(ctx, snap.EmergencyID)
	if err != nil {
		log.Warn().Err(err).Str("emergency_id", snap.EmergencyID).Msg("Failed to read responders, serving placeholders")
		recordDegradedSnapshot(ctx)
		snap.State = alert.State()
		snap.Degraded = true
		snap.Placeholder = true
		snap.Responders = placeholderResponders()
		return snap
	}

	if len(views) == 0 {
		snap.Placeholder = true
		snap.Responders = placeholderResponders()
	} else {
		snap.Responders = views
	}

	if snap.AcceptedCount() > 0 {
		_ = alert.transition(entities.AlertStateResponderAccepted, s.now())
	}
	snap.State = alert.State()
	return snap
}

// responderViews resolves every response of the emergency in store order.
// Responses whose responder profile cannot be resolved are dropped.
func (s *DispatchService) responderViews(ctx context.Context, emergencyID string) ([]entities.ResponderView, error) {
	responses, err := s.responses.ListByEmergency(ctx, emergencyID)
	if err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		return []entities.ResponderView{}, nil
	}

	responderIDs := make([]string, 0, len(responses))
	for _, r := range responses {
		responderIDs = append(responderIDs, r.ResponderID)
	}
	profiles := loaders.LoadFound(ctx, s.loaders.ProfileLoader, responderIDs)

	typeIDs := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if p.FrontlineTypeID != nil {
			typeIDs = append(typeIDs, *p.FrontlineTypeID)
		}
	}
	types := loaders.LoadFound(ctx, s.loaders.FrontlineTypeLoader, typeIDs)

	views := make([]entities.ResponderView, 0, len(responses))
	for _, r := range responses {
		profile, ok := profiles[r.ResponderID]
		if !ok {
			continue
		}
		role := "Frontline Worker"
		if profile.FrontlineTypeID != nil {
			if ft, ok := types[*profile.FrontlineTypeID]; ok {
				role = ft.Name
			}
		}
		views = append(views, entities.ResponderView{
			ResponseID:  r.ID,
			ResponderID: r.ResponderID,
			Name:        profile.DisplayName(),
			Role:        role,
			Phone:       profile.Phone,
			Status:      r.Status,
			Label:       responderLabel(r.Status),
			Distance:    PlaceholderDistance,
			Live:        true,
		})
	}
	return views, nil
}

// ObserveResponses streams a snapshot immediately and then one per change to
// the alert's responses or emergency. The subscription is released and the
// channel closed when ctx is done.
func (s *DispatchService) ObserveResponses(ctx context.Context, session entities.Session, emergencyID string) (<-chan *entities.AlertSnapshot, error) {
	alert, err := s.alertFor(ctx, session, emergencyID)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)

	var responseEvents, emergencyEvents <-chan *entities.ChangeEvent
	if !alert.Simulated() {
		responseEvents, err = s.feed.Subscribe(subCtx, providers.ResponsesForEmergency(emergencyID))
		if err != nil {
			cancel()
			return nil, apperrors.NewUnavailableError("failed to subscribe to responder updates", err)
		}
		emergencyEvents, err = s.feed.Subscribe(subCtx, providers.EmergenciesForPatient(alert.PatientID()))
		if err != nil {
			cancel()
			return nil, apperrors.NewUnavailableError("failed to subscribe to alert updates", err)
		}
	}

	out := make(chan *entities.AlertSnapshot, 1)
	go func() {
		defer close(out)
		defer cancel()

		send := func(snap *entities.AlertSnapshot) bool {
			select {
			case out <- snap:
				return true
			case <-subCtx.Done():
				return false
			}
		}

		if !send(s.snapshot(subCtx, alert)) {
			return
		}

		for {
			select {
			case <-subCtx.Done():
				return
			case event, ok := <-responseEvents:
				if !ok {
					return
				}
				log.Debug().Str("emergency_id", emergencyID).Str("event_id", event.ID).Msg("Responder change received")
			case event, ok := <-emergencyEvents:
				if !ok {
					return
				}
				if !emergencyEventMatches(event, emergencyID) {
					continue
				}
			}
			if !send(s.snapshot(subCtx, alert)) {
				return
			}
		}
	}()

	return out, nil
}

// CancelAlert cancels the patient's emergency. Cancelling an alert that is
// already closed succeeds without changing anything. A store failure is
// returned as retryable and leaves the session as it was.
func (s *DispatchService) CancelAlert(ctx context.Context, session entities.Session, emergencyID string) (*AlertSession, error) {
	alert, err := s.alertFor(ctx, session, emergencyID)
	if err != nil {
		return nil, err
	}

	changed := false
	if !alert.Simulated() {
		changed, err = s.emergencies.Cancel(ctx, emergencyID)
		if err != nil {
			log.Error().Err(err).Str("emergency_id", emergencyID).Msg("Failed to cancel emergency")
			return nil, apperrors.NewUnavailableError("could not cancel the alert, please try again", err)
		}
	}

	if err := alert.transition(entities.AlertStateCancelled, s.now()); err != nil {
		return nil, apperrors.NewInternalError("failed to close alert session", err)
	}

	if changed {
		emergency := alert.Emergency()
		publishChange(ctx, s.feed, entities.TableEmergencies, entities.ChangeEventUpdate, emergency,
			providers.EmergenciesForPatient(emergency.PatientID))
	}
	recordAlertCancelled(ctx, changed)

	log.Info().Str("emergency_id", emergencyID).Bool("changed", changed).Msg("Alert cancelled")
	return alert, nil
}

// ListAlerts returns the patient's own emergencies, newest first
func (s *DispatchService) ListAlerts(ctx context.Context, session entities.Session, limit int) ([]*entities.Emergency, error) {
	if !session.IsAuthenticated() {
		return nil, apperrors.NewUnauthorizedError("sign in to view your alerts")
	}
	emergencies, err := s.emergencies.ListByPatient(ctx, session.ProfileID(), limit)
	if err != nil {
		return nil, apperrors.NewUnavailableError("could not load alerts", err)
	}
	return emergencies, nil
}

// alertFor finds the live session of an emergency, rebuilding it from the
// store when needed, and checks that the caller owns it
func (s *DispatchService) alertFor(ctx context.Context, session entities.Session, emergencyID string) (*AlertSession, error) {
	if !session.IsAuthenticated() {
		return nil, apperrors.NewUnauthorizedError("sign in to view this alert")
	}
	if emergencyID == "" {
		return nil, apperrors.NewValidationError("emergency id is required")
	}

	alert, ok := s.sessions.Get(emergencyID)
	if !ok {
		if entities.IsSimulatedID(emergencyID) {
			return nil, apperrors.NewNotFoundError("alert session has expired")
		}
		emergency, err := s.emergencies.GetByID(ctx, emergencyID)
		if err != nil {
			if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
				return nil, err
			}
			return nil, apperrors.NewUnavailableError("could not load the alert", err)
		}
		alert = s.sessions.Put(restoreAlertSession(emergency))
	}

	if alert.PatientID() != session.ProfileID() {
		return nil, apperrors.NewForbiddenError("this alert belongs to another patient")
	}
	return alert, nil
}

func emergencyEventMatches(event *entities.ChangeEvent, emergencyID string) bool {
	var row struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Row, &row); err != nil {
		return true
	}
	return row.ID == "" || row.ID == emergencyID
}
