package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
)

func TestAlertSession_Transitions(t *testing.T) {
	at := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	s := newAlertSession(&entities.Emergency{ID: "e1", PatientID: "P1", Status: entities.EmergencyStatusNew})

	assert.Equal(t, entities.AlertStateCreating, s.State())
	assert.Error(t, s.transition(entities.AlertStateResponderAccepted, at))

	require.NoError(t, s.transition(entities.AlertStateSent, at))
	assert.Equal(t, at, s.SentAt())

	require.NoError(t, s.transition(entities.AlertStateResponderAccepted, at))
	assert.Error(t, s.transition(entities.AlertStateSent, at))

	require.NoError(t, s.transition(entities.AlertStateCancelled, at))
	assert.Equal(t, entities.EmergencyStatusCancelled, s.Emergency().Status)
	assert.NoError(t, s.transition(entities.AlertStateCancelled, at))
	assert.Error(t, s.transition(entities.AlertStateResponderAccepted, at))
}

func TestAlertSession_FanoutClaimedOnce(t *testing.T) {
	s := newAlertSession(&entities.Emergency{ID: "e1"})

	var wg sync.WaitGroup
	var mu sync.Mutex
	claims := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.claimFanout() {
				mu.Lock()
				claims++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, claims)

	s.finishFanout(0, errors.New("insert failed"))
	assert.False(t, s.FanoutPerformed())
	require.True(t, s.claimFanout())

	s.finishFanout(4, nil)
	assert.True(t, s.FanoutPerformed())
	assert.Equal(t, 4, s.Notified())
	assert.NoError(t, s.FanoutErr())
	assert.False(t, s.claimFanout())
}

func TestRestoreAlertSession(t *testing.T) {
	created := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	open := restoreAlertSession(&entities.Emergency{ID: "e1", Status: entities.EmergencyStatusNew, CreatedAt: created})
	assert.Equal(t, entities.AlertStateSent, open.State())
	assert.Equal(t, created, open.SentAt())
	assert.False(t, open.claimFanout())

	closed := restoreAlertSession(&entities.Emergency{ID: "e2", Status: entities.EmergencyStatusCancelled})
	assert.Equal(t, entities.AlertStateCancelled, closed.State())
}

func TestSessionRegistry_PutKeepsExisting(t *testing.T) {
	r := NewSessionRegistry(time.Minute)
	first := newAlertSession(&entities.Emergency{ID: "e1"})
	second := newAlertSession(&entities.Emergency{ID: "e1"})

	assert.Same(t, first, r.Put(first))
	assert.Same(t, first, r.Put(second))
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get("e1")
	require.True(t, ok)
	assert.Same(t, first, got)

	r.Delete("e1")
	_, ok = r.Get("e1")
	assert.False(t, ok)
}

func TestSessionRegistry_Expiry(t *testing.T) {
	r := NewSessionRegistry(20 * time.Millisecond)
	r.Put(newAlertSession(&entities.Emergency{ID: "e1"}))

	// Get refreshes the expiry, so look only once the ttl has passed
	time.Sleep(60 * time.Millisecond)
	_, ok := r.Get("e1")
	assert.False(t, ok)
}
