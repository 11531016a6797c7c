package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/firstresponder/backend/internal/application/services"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/firstresponder/backend/pkg/errors"
)

func raise(t *testing.T, h *harness, description string) *services.AlertSession {
	t.Helper()
	alert, err := h.dispatch.RaiseAlert(context.Background(), h.patient, services.RaiseAlertRequest{Description: description})
	require.NoError(t, err)
	return alert
}

func responseFor(t *testing.T, h *harness, emergencyID, responderID string) *entities.EmergencyResponse {
	t.Helper()
	responses, err := h.store.Responses().ListByEmergency(context.Background(), emergencyID)
	require.NoError(t, err)
	for _, r := range responses {
		if r.ResponderID == responderID {
			return r
		}
	}
	t.Fatalf("no response for %s on %s", responderID, emergencyID)
	return nil
}

func TestListAssignedEmergencies_AccessDenied(t *testing.T) {
	h := newHarness(t, 2)
	raise(t, h, "headache")

	_, err := h.responder.ListAssignedEmergencies(context.Background(), h.patient)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))

	_, err = h.responder.ListAssignedEmergencies(context.Background(), entities.Session{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}

func TestListAssignedEmergencies_StatusMapping(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()
	w1 := h.sessionFor(t, "W1")

	pending := raise(t, h, "pending one")
	accepted := raise(t, h, "accepted one")
	declined := raise(t, h, "declined one")
	cancelled := raise(t, h, "cancelled one")

	_, err := h.responder.Respond(ctx, w1, responseFor(t, h, accepted.EmergencyID(), "W1").ID, entities.DecisionAccept)
	require.NoError(t, err)
	_, err = h.responder.Respond(ctx, w1, responseFor(t, h, declined.EmergencyID(), "W1").ID, entities.DecisionDecline)
	require.NoError(t, err)
	_, err = h.dispatch.CancelAlert(ctx, h.patient, cancelled.EmergencyID())
	require.NoError(t, err)

	list, err := h.responder.ListAssignedEmergencies(ctx, w1)
	require.NoError(t, err)
	require.Len(t, list, 4)

	byEmergency := map[string]entities.AssignedEmergency{}
	for _, a := range list {
		byEmergency[a.EmergencyID] = a
		assert.Equal(t, "Meera Nair", a.PatientName)
		assert.Equal(t, services.PlaceholderDistance, a.Distance)
		assert.NotEmpty(t, a.Elapsed)
	}

	assert.Equal(t, entities.AssignmentStatusNew, byEmergency[pending.EmergencyID()].Status)
	assert.True(t, byEmergency[pending.EmergencyID()].Actionable)

	assert.Equal(t, entities.AssignmentStatusAccepted, byEmergency[accepted.EmergencyID()].Status)
	assert.False(t, byEmergency[accepted.EmergencyID()].Actionable)

	assert.Equal(t, entities.AssignmentStatusDeclined, byEmergency[declined.EmergencyID()].Status)
	assert.False(t, byEmergency[declined.EmergencyID()].Actionable)

	assert.Equal(t, entities.AssignmentStatusNew, byEmergency[cancelled.EmergencyID()].Status)
	assert.False(t, byEmergency[cancelled.EmergencyID()].Actionable)
}

func TestListAssignedEmergencies_UnknownPatient(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()

	require.NoError(t, h.store.Emergencies().Create(ctx, &entities.Emergency{
		ID: "e-orphan", PatientID: patientID, Description: "dizzy", Status: entities.EmergencyStatusNew, CreatedAt: time.Now(),
	}))
	_, err := h.fanout.Notify(ctx, "e-orphan")
	require.NoError(t, err)

	// Simulate the patient's profile being removed after the alert was raised
	h.store.DeleteProfile(patientID)

	list, err := h.responder.ListAssignedEmergencies(ctx, h.sessionFor(t, "W1"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Unknown", list[0].PatientName)
}

func TestRespond_OnlyAssignedResponder(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()
	alert := raise(t, h, "cut")
	w1Response := responseFor(t, h, alert.EmergencyID(), "W1")

	_, err := h.responder.Respond(ctx, h.sessionFor(t, "W2"), w1Response.ID, entities.DecisionAccept)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))

	_, err = h.responder.Respond(ctx, h.patient, w1Response.ID, entities.DecisionAccept)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))

	stored, err := h.store.Responses().GetByID(ctx, w1Response.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ResponseStatusPending, stored.Status)
}

func TestRespond_FirstDecisionWins(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()
	w1 := h.sessionFor(t, "W1")
	alert := raise(t, h, "allergic reaction")
	response := responseFor(t, h, alert.EmergencyID(), "W1")

	first, err := h.responder.Respond(ctx, w1, response.ID, entities.DecisionDecline)
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.Equal(t, entities.ResponseStatusDeclined, first.Response.Status)

	second, err := h.responder.Respond(ctx, w1, response.ID, entities.DecisionAccept)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, entities.ResponseStatusDeclined, second.Response.Status)

	stored, err := h.store.Responses().GetByID(ctx, response.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ResponseStatusDeclined, stored.Status)
}

func TestRespond_Validation(t *testing.T) {
	h := newHarness(t, 1)
	w1 := h.sessionFor(t, "W1")

	_, err := h.responder.Respond(context.Background(), w1, "", entities.DecisionAccept)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = h.responder.Respond(context.Background(), w1, "r1", entities.Decision("maybe"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = h.responder.Respond(context.Background(), w1, "missing", entities.DecisionAccept)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestRespond_StoreFailureIsRetryable(t *testing.T) {
	h := newHarness(t, 1)
	w1 := h.sessionFor(t, "W1")

	responses := new(MockResponseRepository)
	responses.On("GetByID", mock.Anything, "r1").Return(&entities.EmergencyResponse{
		ID: "r1", EmergencyID: "e1", ResponderID: "W1", Status: entities.ResponseStatusPending,
	}, nil)
	responses.On("Decide", mock.Anything, "r1", entities.ResponseStatusAccepted).Return(false, errors.New("deadlock")).Once()
	responder := services.NewResponderService(responses, h.loaders, h.feed)

	_, err := responder.Respond(context.Background(), w1, "r1", entities.DecisionAccept)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))
	responses.AssertExpectations(t)
}

func TestRespond_ConcurrentDecisionLoses(t *testing.T) {
	h := newHarness(t, 1)
	w1 := h.sessionFor(t, "W1")

	// Both calls read pending; the store only lets the first write through
	pending := &entities.EmergencyResponse{ID: "r1", EmergencyID: "e1", ResponderID: "W1", Status: entities.ResponseStatusPending}
	accepted := &entities.EmergencyResponse{ID: "r1", EmergencyID: "e1", ResponderID: "W1", Status: entities.ResponseStatusAccepted}

	responses := new(MockResponseRepository)
	responses.On("GetByID", mock.Anything, "r1").Return(pending, nil).Once()
	responses.On("Decide", mock.Anything, "r1", entities.ResponseStatusDeclined).Return(false, nil).Once()
	responses.On("GetByID", mock.Anything, "r1").Return(accepted, nil).Once()
	responder := services.NewResponderService(responses, h.loaders, h.feed)

	result, err := responder.Respond(context.Background(), w1, "r1", entities.DecisionDecline)
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, entities.ResponseStatusAccepted, result.Response.Status)
	responses.AssertExpectations(t)
}

func TestObserveAssignments_SeesNewFanout(t *testing.T) {
	h := newHarness(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := h.responder.ObserveAssignments(ctx, h.sessionFor(t, "W1"))
	require.NoError(t, err)
	assert.Empty(t, nextAssignments(t, updates))

	alert := raise(t, h, "high fever")

	list := nextAssignments(t, updates)
	require.Len(t, list, 1)
	assert.Equal(t, alert.EmergencyID(), list[0].EmergencyID)
	assert.Equal(t, entities.AssignmentStatusNew, list[0].Status)
	assert.True(t, list[0].Actionable)
}

func TestObserveAssignments_Forbidden(t *testing.T) {
	h := newHarness(t, 0)

	_, err := h.responder.ObserveAssignments(context.Background(), h.patient)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
	assert.Zero(t, h.feed.SubscriberCount("emergency_responses:responder_id=eq.P1"))
}
