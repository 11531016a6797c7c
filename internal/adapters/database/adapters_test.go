package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/firstresponder/backend/internal/adapters/cache"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/firstresponder/backend/pkg/errors"
)

func setupMockDB(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return postgres.NewFromDB(db), mock
}

var (
	emergencyRowColumns = []string{"id", "patient_id", "description", "location", "latitude", "longitude", "status", "created_at", "updated_at"}
	responseRowColumns  = []string{"id", "emergency_id", "responder_id", "status", "created_at", "updated_at"}
	profileRowColumns   = []string{"id", "full_name", "phone", "email", "is_frontline_worker", "frontline_type", "created_at", "updated_at"}
)

func TestEmergencyAdapter_Create(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewEmergencyAdapter(client)

	now := time.Now()
	lat := 12.97
	mock.ExpectExec(`INSERT INTO "emergencies"`).WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.Create(context.Background(), &entities.Emergency{
		ID:          "e1",
		PatientID:   "p1",
		Description: "Chest pain",
		Latitude:    &lat,
		Status:      entities.EmergencyStatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmergencyAdapter_CreateFailure(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewEmergencyAdapter(client)

	mock.ExpectExec(`INSERT INTO "emergencies"`).WillReturnError(sql.ErrConnDone)

	err := adapter.Create(context.Background(), &entities.Emergency{ID: "e1", PatientID: "p1"})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestEmergencyAdapter_GetByID(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewEmergencyAdapter(client)

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM "emergencies" WHERE \("id" = 'e1'\)`).
		WillReturnRows(sqlmock.NewRows(emergencyRowColumns).
			AddRow("e1", "p1", "Fell down stairs", "MG Road", 12.97, 77.59, "new", now, now))

	emergency, err := adapter.GetByID(context.Background(), "e1")

	require.NoError(t, err)
	assert.Equal(t, "p1", emergency.PatientID)
	require.NotNil(t, emergency.Location)
	assert.Equal(t, "MG Road", *emergency.Location)
	require.NotNil(t, emergency.Longitude)
	assert.InDelta(t, 77.59, *emergency.Longitude, 0.0001)
	assert.False(t, emergency.Simulated)
}

func TestEmergencyAdapter_GetByIDNotFound(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewEmergencyAdapter(client)

	mock.ExpectQuery(`SELECT .* FROM "emergencies"`).WillReturnRows(sqlmock.NewRows(emergencyRowColumns))

	_, err := adapter.GetByID(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestEmergencyAdapter_ListByPatient(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewEmergencyAdapter(client)

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM "emergencies" WHERE \("patient_id" = 'p1'\) ORDER BY "created_at" DESC LIMIT 10`).
		WillReturnRows(sqlmock.NewRows(emergencyRowColumns).
			AddRow("e2", "p1", "b", nil, nil, nil, "cancelled", now, now).
			AddRow("e1", "p1", "a", nil, nil, nil, "new", now.Add(-time.Hour), now))

	list, err := adapter.ListByPatient(context.Background(), "p1", 10)

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "e2", list[0].ID)
	assert.Nil(t, list[0].Location)
	assert.Nil(t, list[0].Latitude)
}

func TestEmergencyAdapter_Cancel(t *testing.T) {
	t.Run("open emergency is cancelled", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := NewEmergencyAdapter(client)

		mock.ExpectExec(`UPDATE "emergencies" SET .* WHERE \(\("id" = 'e1'\) AND \("status" NOT IN \('cancelled', 'completed'\)\)\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		changed, err := adapter.Cancel(context.Background(), "e1")

		require.NoError(t, err)
		assert.True(t, changed)
	})

	t.Run("already closed emergency is left alone", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := NewEmergencyAdapter(client)

		mock.ExpectExec(`UPDATE "emergencies"`).WillReturnResult(sqlmock.NewResult(0, 0))

		changed, err := adapter.Cancel(context.Background(), "e1")

		require.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestEmergencyResponseAdapter_BulkCreate(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewEmergencyResponseAdapter(client)

	now := time.Now()
	responses := []*entities.EmergencyResponse{
		{ID: "r1", EmergencyID: "e1", ResponderID: "w1", Status: entities.ResponseStatusPending, CreatedAt: now, UpdatedAt: now},
		{ID: "r2", EmergencyID: "e1", ResponderID: "w2", Status: entities.ResponseStatusPending, CreatedAt: now, UpdatedAt: now},
	}

	mock.ExpectExec(`INSERT INTO "emergency_responses" .* VALUES \(.*\), \(.*\) ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := adapter.BulkCreate(context.Background(), responses)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmergencyResponseAdapter_BulkCreateEmpty(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewEmergencyResponseAdapter(client)

	n, err := adapter.BulkCreate(context.Background(), nil)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmergencyResponseAdapter_ListByEmergency(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewEmergencyResponseAdapter(client)

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM "emergency_responses" WHERE \("emergency_id" = 'e1'\) ORDER BY "seq" ASC`).
		WillReturnRows(sqlmock.NewRows(responseRowColumns).
			AddRow("r1", "e1", "w1", "accepted", now, now).
			AddRow("r2", "e1", "w2", "pending", now, now))

	list, err := adapter.ListByEmergency(context.Background(), "e1")

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, entities.ResponseStatusAccepted, list[0].Status)
	assert.Equal(t, "w2", list[1].ResponderID)
}

func TestEmergencyResponseAdapter_ListByResponder(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewEmergencyResponseAdapter(client)

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM "emergency_responses" WHERE \("responder_id" = 'w1'\) ORDER BY "created_at" DESC, "seq" DESC`).
		WillReturnRows(sqlmock.NewRows(responseRowColumns).
			AddRow("r2", "e2", "w1", "pending", now, now))

	list, err := adapter.ListByResponder(context.Background(), "w1")

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "e2", list[0].EmergencyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmergencyResponseAdapter_Decide(t *testing.T) {
	now := time.Now()
	decideSQL := `UPDATE "emergency_responses" SET .*"status"='accepted'.* WHERE \(\("id" = '(r\w+)'\) AND \("status" = 'pending'\)\)`

	t.Run("pending response is updated", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := NewEmergencyResponseAdapter(client)

		mock.ExpectExec(decideSQL).WillReturnResult(sqlmock.NewResult(0, 1))

		changed, err := adapter.Decide(context.Background(), "r1", entities.ResponseStatusAccepted)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("answered response is left alone", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := NewEmergencyResponseAdapter(client)

		mock.ExpectExec(decideSQL).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT .* FROM "emergency_responses" WHERE \("id" = 'r1'\)`).
			WillReturnRows(sqlmock.NewRows(responseRowColumns).
				AddRow("r1", "e1", "w1", "declined", now, now))

		changed, err := adapter.Decide(context.Background(), "r1", entities.ResponseStatusAccepted)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing response", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := NewEmergencyResponseAdapter(client)

		mock.ExpectExec(decideSQL).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT .* FROM "emergency_responses" WHERE \("id" = 'r404'\)`).
			WillReturnError(sql.ErrNoRows)

		_, err := adapter.Decide(context.Background(), "r404", entities.ResponseStatusAccepted)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}

func TestProfileAdapter_GetByIdentifier(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		identifier entities.Identifier
		pattern    string
	}{
		{"phone", entities.PhoneIdentifier(" +919800000001 "), `WHERE \("phone" = '\+919800000001'\)`},
		{"email", entities.EmailIdentifier("Asha@Example.org"), `WHERE \(LOWER\("email"\) = 'asha@example.org'\)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := setupMockDB(t)
			adapter := NewProfileAdapter(client)

			mock.ExpectQuery(`SELECT .* FROM "profiles" ` + tt.pattern + ` LIMIT 1`).
				WillReturnRows(sqlmock.NewRows(profileRowColumns).
					AddRow("w1", "Asha", "+919800000001", "asha@example.org", true, "ft-asha", now, now))

			profile, err := adapter.GetByIdentifier(context.Background(), tt.identifier)

			require.NoError(t, err)
			assert.Equal(t, "w1", profile.ID)
			assert.True(t, profile.IsFrontlineWorker)
			require.NotNil(t, profile.FrontlineTypeID)
			assert.Equal(t, "ft-asha", *profile.FrontlineTypeID)
		})
	}
}

func TestProfileAdapter_GetByIdentifierZero(t *testing.T) {
	client, _ := setupMockDB(t)
	adapter := NewProfileAdapter(client)

	_, err := adapter.GetByIdentifier(context.Background(), entities.Identifier{})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestProfileAdapter_ListFrontlineWorkers(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewProfileAdapter(client)

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM "profiles" WHERE \("is_frontline_worker" IS TRUE\) ORDER BY "created_at" ASC LIMIT 5`).
		WillReturnRows(sqlmock.NewRows(profileRowColumns).
			AddRow("w1", nil, "+91980", nil, true, nil, now, now))

	workers, err := adapter.ListFrontlineWorkers(context.Background(), 5)

	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, "+91980", workers[0].DisplayName())
	assert.Nil(t, workers[0].FrontlineTypeID)
}

func TestFrontlineTypeAdapter_List(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewFrontlineTypeAdapter(client)

	mock.ExpectQuery(`SELECT "id", "name" FROM "frontline_types" ORDER BY "name" ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow("ft-anm", "ANM").
			AddRow("ft-asha", "ASHA Worker"))

	types, err := adapter.List(context.Background())

	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "ASHA Worker", types[1].Name)
}

func TestCachedFrontlineTypeAdapter(t *testing.T) {
	client, mock := setupMockDB(t)
	store := cache.NewMemoryAdapter()
	adapter := NewCachedFrontlineTypeAdapter(NewFrontlineTypeAdapter(client), store)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT "id", "name" FROM "frontline_types" ORDER BY "name" ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow("ft-anm", "ANM").
			AddRow("ft-asha", "ASHA Worker"))

	types, err := adapter.List(ctx)
	require.NoError(t, err)
	require.Len(t, types, 2)

	assert.Eventually(t, func() bool {
		ok, _ := store.Exists(ctx, frontlineTypesKey)
		return ok
	}, time.Second, 10*time.Millisecond)

	// Served from cache: no further queries are expected
	types, err = adapter.List(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 2)

	byID, err := adapter.GetByIDs(ctx, []string{"ft-asha"})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "ASHA Worker", byID[0].Name)

	// An id the cached list lacks goes to the database
	mock.ExpectQuery(`SELECT "id", "name" FROM "frontline_types" WHERE \("id" IN \('ft-new'\)\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("ft-new", "PHC Staff"))

	byID, err = adapter.GetByIDs(ctx, []string{"ft-new"})
	require.NoError(t, err)
	require.Len(t, byID, 1)

	require.NoError(t, adapter.(*CachedFrontlineTypeAdapter).Invalidate(ctx))
	ok, _ := store.Exists(ctx, frontlineTypesKey)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
