package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
)

type fanoutState int

const (
	fanoutPending fanoutState = iota
	fanoutRunning
	fanoutDone
	fanoutFailed
)

// AlertSession tracks one patient alert from creation until it is cancelled.
// It carries the single-shot fan-out marker so re-observing the alert never
// notifies responders again.
type AlertSession struct {
	mu        sync.Mutex
	emergency entities.Emergency
	state     entities.AlertState
	fanout    fanoutState
	notified  int
	fanoutErr error
	sentAt    time.Time
}

func newAlertSession(emergency *entities.Emergency) *AlertSession {
	return &AlertSession{
		emergency: *emergency,
		state:     entities.AlertStateCreating,
	}
}

// restoreAlertSession rebuilds a session for an emergency created earlier.
// Its fan-out is considered performed.
func restoreAlertSession(emergency *entities.Emergency) *AlertSession {
	s := newAlertSession(emergency)
	s.state = entities.AlertStateSent
	s.sentAt = emergency.CreatedAt
	s.fanout = fanoutDone
	if emergency.IsClosed() {
		s.state = entities.AlertStateCancelled
	}
	return s
}

// EmergencyID returns the id of the alert's emergency
func (s *AlertSession) EmergencyID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emergency.ID
}

// PatientID returns the owner of the alert
func (s *AlertSession) PatientID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emergency.PatientID
}

// Simulated reports whether the emergency only exists in this session
func (s *AlertSession) Simulated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emergency.Simulated
}

// Emergency returns a copy of the alert's emergency
func (s *AlertSession) Emergency() entities.Emergency {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emergency
}

// State returns the current session state
func (s *AlertSession) State() entities.AlertState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Notified returns how many responders the fan-out reached
func (s *AlertSession) Notified() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notified
}

// FanoutErr returns the error of the last failed fan-out attempt, if any
func (s *AlertSession) FanoutErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fanoutErr
}

// SentAt is when the alert left the creating state
func (s *AlertSession) SentAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sentAt
}

// transition moves the session forward. Cancelled is terminal and
// ResponderAccepted never falls back to Sent.
func (s *AlertSession) transition(to entities.AlertState, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.state
	if from == to {
		return nil
	}

	allowed := false
	switch from {
	case entities.AlertStateCreating:
		allowed = to == entities.AlertStateSent
	case entities.AlertStateSent:
		allowed = to == entities.AlertStateResponderAccepted || to == entities.AlertStateCancelled
	case entities.AlertStateResponderAccepted:
		allowed = to == entities.AlertStateCancelled
	}
	if !allowed {
		return fmt.Errorf("alert %s cannot move from %s to %s", s.emergency.ID, from, to)
	}

	s.state = to
	if to == entities.AlertStateSent {
		s.sentAt = at
	}
	if to == entities.AlertStateCancelled {
		s.emergency.Status = entities.EmergencyStatusCancelled
	}
	return nil
}

// claimFanout hands out the right to run fan-out. It succeeds once, and
// again only after a failed attempt.
func (s *AlertSession) claimFanout() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fanout != fanoutPending && s.fanout != fanoutFailed {
		return false
	}
	s.fanout = fanoutRunning
	return true
}

func (s *AlertSession) finishFanout(notified int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.fanout = fanoutFailed
		s.fanoutErr = err
		return
	}
	s.fanout = fanoutDone
	s.fanoutErr = nil
	s.notified = notified
}

// FanoutPerformed reports whether responders were notified successfully
func (s *AlertSession) FanoutPerformed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fanout == fanoutDone
}
