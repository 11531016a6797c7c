package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Tables observed through the change feed
const (
	TableEmergencies        = "emergencies"
	TableEmergencyResponses = "emergency_responses"
)

// ChangeEventType represents the kind of row change
type ChangeEventType string

const (
	ChangeEventInsert ChangeEventType = "INSERT"
	ChangeEventUpdate ChangeEventType = "UPDATE"
	ChangeEventDelete ChangeEventType = "DELETE"
)

// ChangeEvent is one row-level change pushed to subscribers.
// Delivery is at-least-once and unordered; consumers re-read state instead of
// trusting Row.
type ChangeEvent struct {
	ID        string          `json:"id"`
	Table     string          `json:"table"`
	Type      ChangeEventType `json:"event_type"`
	Row       json.RawMessage `json:"row"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewChangeEvent snapshots row as the event payload
func NewChangeEvent(table string, eventType ChangeEventType, row interface{}) (*ChangeEvent, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s row: %w", table, err)
	}
	return &ChangeEvent{
		ID:        uuid.NewString(),
		Table:     table,
		Type:      eventType,
		Row:       data,
		Timestamp: time.Now(),
	}, nil
}
