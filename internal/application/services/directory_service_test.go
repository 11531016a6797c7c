package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/firstresponder/backend/internal/application/services"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/firstresponder/backend/pkg/errors"
)

func TestDirectoryService_Sessions(t *testing.T) {
	h := newHarness(t, 1)
	svc := services.NewDirectoryService(h.store.Profiles(), h.store.FrontlineTypes())
	ctx := context.Background()

	session, err := svc.SessionForProfile(ctx, "W1")
	require.NoError(t, err)
	assert.True(t, session.IsFrontlineWorker())

	session, err = svc.SessionForIdentifier(ctx, entities.PhoneIdentifier(" +919800000000 "))
	require.NoError(t, err)
	assert.Equal(t, patientID, session.ProfileID())
	assert.False(t, session.IsFrontlineWorker())

	_, err = svc.SessionForProfile(ctx, "nobody")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))

	_, err = svc.SessionForIdentifier(ctx, entities.Identifier{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}

func TestDirectoryService_ListFrontlineTypes(t *testing.T) {
	h := newHarness(t, 0)
	svc := services.NewDirectoryService(h.store.Profiles(), h.store.FrontlineTypes())

	types, err := svc.ListFrontlineTypes(context.Background())

	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "ASHA Worker", types[0].Name)
}
