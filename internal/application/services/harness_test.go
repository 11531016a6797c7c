package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/firstresponder/backend/internal/adapters/events"
	"github.com/zatekoja/firstresponder/backend/internal/adapters/memory"
	"github.com/zatekoja/firstresponder/backend/internal/application/loaders"
	"github.com/zatekoja/firstresponder/backend/internal/application/services"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
)

const patientID = "P1"

type harness struct {
	store     *memory.Store
	feed      *events.MemoryChangeFeed
	loaders   *loaders.Loaders
	fanout    *services.FanoutService
	sessions  *services.SessionRegistry
	dispatch  *services.DispatchService
	responder *services.ResponderService
	patient   entities.Session
}

// newHarness wires the workflow on the memory store with n frontline workers W1..Wn
func newHarness(t *testing.T, workers int) *harness {
	t.Helper()

	store := memory.NewStore()
	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	store.PutFrontlineType(entities.FrontlineType{ID: "ft-asha", Name: "ASHA Worker"})
	store.PutProfile(entities.Profile{ID: patientID, FullName: "Meera Nair", Phone: "+919800000000", CreatedAt: base})
	for i := 1; i <= workers; i++ {
		ft := "ft-asha"
		store.PutProfile(entities.Profile{
			ID:                fmt.Sprintf("W%d", i),
			FullName:          fmt.Sprintf("Worker %d", i),
			Phone:             fmt.Sprintf("+91980000%04d", i),
			IsFrontlineWorker: true,
			FrontlineTypeID:   &ft,
			CreatedAt:         base.Add(time.Duration(i) * time.Minute),
		})
	}

	feed := events.NewMemoryChangeFeed()
	t.Cleanup(func() { feed.Close() })

	l := loaders.NewLoaders(store.Profiles(), store.FrontlineTypes(), store.Emergencies())
	fanout := services.NewFanoutService(store.Profiles(), store.Responses(), feed)
	sessions := services.NewSessionRegistry(time.Hour)

	h := &harness{
		store:     store,
		feed:      feed,
		loaders:   l,
		fanout:    fanout,
		sessions:  sessions,
		dispatch:  services.NewDispatchService(store.Emergencies(), store.Responses(), l, fanout, feed, sessions),
		responder: services.NewResponderService(store.Responses(), l, feed),
	}
	h.patient = h.sessionFor(t, patientID)
	return h
}

func (h *harness) sessionFor(t *testing.T, id string) entities.Session {
	t.Helper()
	p, err := h.store.Profiles().GetByID(context.Background(), id)
	require.NoError(t, err)
	return entities.NewSession(p)
}

func nextSnapshot(t *testing.T, ch <-chan *entities.AlertSnapshot) *entities.AlertSnapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "snapshot stream closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for alert snapshot")
		return nil
	}
}

func nextAssignments(t *testing.T, ch <-chan []entities.AssignedEmergency) []entities.AssignedEmergency {
	t.Helper()
	select {
	case list, ok := <-ch:
		require.True(t, ok, "assignment stream closed")
		return list
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for assignments")
		return nil
	}
}

// Mocks

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, emergencyID string) (int, error) {
	args := m.Called(ctx, emergencyID)
	return args.Int(0), args.Error(1)
}

type MockEmergencyRepository struct {
	mock.Mock
}

func (m *MockEmergencyRepository) Create(ctx context.Context, emergency *entities.Emergency) error {
	args := m.Called(ctx, emergency)
	return args.Error(0)
}

func (m *MockEmergencyRepository) GetByID(ctx context.Context, id string) (*entities.Emergency, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Emergency), args.Error(1)
}

func (m *MockEmergencyRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.Emergency, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Emergency), args.Error(1)
}

func (m *MockEmergencyRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.Emergency, error) {
	args := m.Called(ctx, patientID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Emergency), args.Error(1)
}

func (m *MockEmergencyRepository) Cancel(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockResponseRepository struct {
	mock.Mock
}

func (m *MockResponseRepository) BulkCreate(ctx context.Context, responses []*entities.EmergencyResponse) (int, error) {
	args := m.Called(ctx, responses)
	return args.Int(0), args.Error(1)
}

func (m *MockResponseRepository) GetByID(ctx context.Context, id string) (*entities.EmergencyResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.EmergencyResponse), args.Error(1)
}

func (m *MockResponseRepository) ListByEmergency(ctx context.Context, emergencyID string) ([]*entities.EmergencyResponse, error) {
	args := m.Called(ctx, emergencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.EmergencyResponse), args.Error(1)
}

func (m *MockResponseRepository) ListByResponder(ctx context.Context, responderID string) ([]*entities.EmergencyResponse, error) {
	args := m.Called(ctx, responderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.EmergencyResponse), args.Error(1)
}

func (m *MockResponseRepository) Decide(ctx context.Context, id string, status entities.ResponseStatus) (bool, error) {
	args := m.Called(ctx, id, status)
	return args.Bool(0), args.Error(1)
}

type MockTriageAssistant struct {
	mock.Mock
}

func (m *MockTriageAssistant) Chat(ctx context.Context, query entities.TriageQuery) (*entities.TriageReply, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TriageReply), args.Error(1)
}

func (m *MockTriageAssistant) Transcribe(ctx context.Context, audio []byte) (*entities.Transcript, error) {
	args := m.Called(ctx, audio)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transcript), args.Error(1)
}

func (m *MockTriageAssistant) Speak(ctx context.Context, text, language string) (*entities.Speech, error) {
	args := m.Called(ctx, text, language)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Speech), args.Error(1)
}

type MockResponderAlerter struct {
	mock.Mock
}

func (m *MockResponderAlerter) AlertResponder(ctx context.Context, responder *entities.Profile, emergencyID string) error {
	args := m.Called(ctx, responder, emergencyID)
	return args.Error(0)
}
