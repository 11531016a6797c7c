package entities

import (
	"strings"
	"time"
)

// EmergencyStatus represents the status of an emergency alert
type EmergencyStatus string

const (
	EmergencyStatusNew       EmergencyStatus = "new"
	EmergencyStatusAccepted  EmergencyStatus = "accepted"
	EmergencyStatusDeclined  EmergencyStatus = "declined"
	EmergencyStatusCancelled EmergencyStatus = "cancelled"
	EmergencyStatusCompleted EmergencyStatus = "completed"
)

// SimulatedIDPrefix marks emergencies that exist only in the caller's session
const SimulatedIDPrefix = "simulated-"

// Emergency is one SOS raised by a patient
type Emergency struct {
	ID          string          `json:"id" db:"id"`
	PatientID   string          `json:"patient_id" db:"patient_id"`
	Description string          `json:"description" db:"description"`
	Location    *string         `json:"location,omitempty" db:"location"`
	Latitude    *float64        `json:"latitude,omitempty" db:"latitude"`
	Longitude   *float64        `json:"longitude,omitempty" db:"longitude"`
	Status      EmergencyStatus `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`

	// Simulated is set when the store rejected the insert and the record only
	// exists to keep the alert screen usable. It is never persisted.
	Simulated bool `json:"simulated" db:"-"`
}

// IsSimulatedID reports whether id was produced by the local fallback
func IsSimulatedID(id string) bool {
	return strings.HasPrefix(id, SimulatedIDPrefix)
}

// IsClosed reports whether the emergency can no longer change
func (e *Emergency) IsClosed() bool {
	return e.Status == EmergencyStatusCancelled || e.Status == EmergencyStatusCompleted
}

// ResponseStatus is the state of one responder's answer to an emergency
type ResponseStatus string

const (
	ResponseStatusPending  ResponseStatus = "pending"
	ResponseStatusAccepted ResponseStatus = "accepted"
	ResponseStatusDeclined ResponseStatus = "declined"
)

// EmergencyResponse is the notification of one frontline worker for one emergency.
// There is at most one per (EmergencyID, ResponderID).
type EmergencyResponse struct {
	ID          string         `json:"id" db:"id"`
	EmergencyID string         `json:"emergency_id" db:"emergency_id"`
	ResponderID string         `json:"responder_id" db:"responder_id"`
	Status      ResponseStatus `json:"status" db:"status"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// Decision is what a responder answers to an assignment
type Decision string

const (
	DecisionAccept  Decision = "accept"
	DecisionDecline Decision = "decline"
)

// ParseDecision validates a decision coming from the API
func ParseDecision(s string) (Decision, bool) {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case DecisionAccept:
		return DecisionAccept, true
	case DecisionDecline:
		return DecisionDecline, true
	}
	return "", false
}

// ResponseStatus returns the row status the decision writes
func (d Decision) ResponseStatus() ResponseStatus {
	if d == DecisionAccept {
		return ResponseStatusAccepted
	}
	return ResponseStatusDeclined
}

// AssignmentStatus is the responder dashboard's tri-state view of a response
type AssignmentStatus string

const (
	AssignmentStatusNew      AssignmentStatus = "new"
	AssignmentStatusAccepted AssignmentStatus = "accepted"
	AssignmentStatusDeclined AssignmentStatus = "declined"
)

// AssignmentStatusOf maps a response row status onto the dashboard tri-state
func AssignmentStatusOf(s ResponseStatus) AssignmentStatus {
	switch s {
	case ResponseStatusAccepted:
		return AssignmentStatusAccepted
	case ResponseStatusDeclined:
		return AssignmentStatusDeclined
	default:
		return AssignmentStatusNew
	}
}
