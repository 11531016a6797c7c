package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/firstresponder/backend/internal/application/loaders"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/providers"
	"github.com/zatekoja/firstresponder/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/firstresponder/backend/pkg/errors"
)

// RespondResult is the outcome of a responder decision
type RespondResult struct {
	Response *entities.EmergencyResponse
	// Changed is false when the response had already been answered
	Changed bool
}

// ResponderService drives the frontline worker dashboard
type ResponderService struct {
	responses repositories.EmergencyResponseRepository
	loaders   *loaders.Loaders
	feed      providers.ChangeFeed
	now       func() time.Time
}

// NewResponderService creates a new responder service
func NewResponderService(
	responses repositories.EmergencyResponseRepository,
	loaders *loaders.Loaders,
	feed providers.ChangeFeed,
) *ResponderService {
	return &ResponderService{
		responses: responses,
		loaders:   loaders,
		feed:      feed,
		now:       time.Now,
	}
}

func requireFrontline(session entities.Session) error {
	if !session.IsAuthenticated() {
		return apperrors.NewUnauthorizedError("sign in to open the responder dashboard")
	}
	if !session.IsFrontlineWorker() {
		return apperrors.NewForbiddenError("only frontline workers can access emergency assignments")
	}
	return nil
}

// ListAssignedEmergencies returns the caller's assignments, newest first.
// A caller who is not a frontline worker gets FORBIDDEN, never an empty list.
func (s *ResponderService) ListAssignedEmergencies(ctx context.Context, session entities.Session) ([]entities.AssignedEmergency, error) {
	if err := requireFrontline(session); err != nil {
		return nil, err
	}

	responses, err := s.responses.ListByResponder(ctx, session.ProfileID())
	if err != nil {
		return nil, apperrors.NewUnavailableError("could not load assigned emergencies", err)
	}
	if len(responses) == 0 {
		return []entities.AssignedEmergency{}, nil
	}

	emergencyIDs := make([]string, 0, len(responses))
	for _, r := range responses {
		emergencyIDs = append(emergencyIDs, r.EmergencyID)
	}
	emergencies := loaders.LoadFound(ctx, s.loaders.EmergencyLoader, emergencyIDs)

	patientIDs := make([]string, 0, len(emergencies))
	for _, e := range emergencies {
		patientIDs = append(patientIDs, e.PatientID)
	}
	patients := loaders.LoadFound(ctx, s.loaders.ProfileLoader, patientIDs)

	now := s.now()
	out := make([]entities.AssignedEmergency, 0, len(responses))
	for _, r := range responses {
		emergency, ok := emergencies[r.EmergencyID]
		if !ok {
			continue
		}

		patientName := "Unknown"
		if p, ok := patients[emergency.PatientID]; ok {
			patientName = p.DisplayName()
		}

		status := entities.AssignmentStatusOf(r.Status)
		out = append(out, entities.AssignedEmergency{
			ResponseID:  r.ID,
			EmergencyID: emergency.ID,
			PatientID:   emergency.PatientID,
			PatientName: patientName,
			Description: emergency.Description,
			Location:    emergency.Location,
			Latitude:    emergency.Latitude,
			Longitude:   emergency.Longitude,
			Status:      status,
			Actionable:  status == entities.AssignmentStatusNew && !emergency.IsClosed(),
			Distance:    PlaceholderDistance,
			CreatedAt:   emergency.CreatedAt,
			Elapsed:     ComputeElapsed(emergency.CreatedAt, now),
		})
	}
	return out, nil
}

// Respond records the assigned responder's decision. Only the first decision
// is written; later calls return the recorded response unchanged.
func (s *ResponderService) Respond(ctx context.Context, session entities.Session, responseID string, decision entities.Decision) (*RespondResult, error) {
	if err := requireFrontline(session); err != nil {
		return nil, err
	}
	if responseID == "" {
		return nil, apperrors.NewValidationError("response id is required")
	}
	if decision != entities.DecisionAccept && decision != entities.DecisionDecline {
		return nil, apperrors.NewValidationError("decision must be accept or decline")
	}

	response, err := s.responses.GetByID(ctx, responseID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, err
		}
		return nil, apperrors.NewUnavailableError("could not load the assignment", err)
	}
	if response.ResponderID != session.ProfileID() {
		return nil, apperrors.NewForbiddenError("this emergency was assigned to another responder")
	}
	if response.Status != entities.ResponseStatusPending {
		return &RespondResult{Response: response}, nil
	}

	status := decision.ResponseStatus()
	changed, err := s.responses.Decide(ctx, responseID, status)
	if err != nil {
		log.Error().Err(err).Str("response_id", responseID).Msg("Failed to record response")
		return nil, apperrors.NewUnavailableError("could not record your response, please try again", err)
	}
	if !changed {
		// A concurrent decision got there first
		recorded, err := s.responses.GetByID(ctx, responseID)
		if err != nil {
			return nil, apperrors.NewUnavailableError("could not load the assignment", err)
		}
		return &RespondResult{Response: recorded}, nil
	}
	response.Status = status
	response.UpdatedAt = s.now()

	publishChange(ctx, s.feed, entities.TableEmergencyResponses, entities.ChangeEventUpdate, response,
		providers.ResponsesForEmergency(response.EmergencyID),
		providers.ResponsesForResponder(response.ResponderID))
	recordResponse(ctx, string(decision))

	log.Info().
		Str("response_id", responseID).
		Str("emergency_id", response.EmergencyID).
		Str("decision", string(decision)).
		Msg("Responder decision recorded")

	return &RespondResult{Response: response, Changed: true}, nil
}

// ObserveAssignments streams the dashboard list immediately and again on
// every change to the caller's responses, until ctx is done
func (s *ResponderService) ObserveAssignments(ctx context.Context, session entities.Session) (<-chan []entities.AssignedEmergency, error) {
	initial, err := s.ListAssignedEmergencies(ctx, session)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	events, err := s.feed.Subscribe(subCtx, providers.ResponsesForResponder(session.ProfileID()))
	if err != nil {
		cancel()
		return nil, apperrors.NewUnavailableError("failed to subscribe to assignments", err)
	}

	out := make(chan []entities.AssignedEmergency, 1)
	go func() {
		defer close(out)
		defer cancel()

		send := func(list []entities.AssignedEmergency) bool {
			select {
			case out <- list:
				return true
			case <-subCtx.Done():
				return false
			}
		}

		if !send(initial) {
			return
		}
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				list, err := s.ListAssignedEmergencies(subCtx, session)
				if err != nil {
					log.Warn().Err(err).Str("responder_id", session.ProfileID()).Msg("Failed to refresh assignments")
					continue
				}
				if !send(list) {
					return
				}
			}
		}
	}()

	return out, nil
}
