package providers

import (
	"context"
	"fmt"

	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
)

// ChangeFeed pushes row-level changes to subscribers of a filtered channel
type ChangeFeed interface {
	// Publish publishes an event to all subscribers of channel
	Publish(ctx context.Context, channel string, event *entities.ChangeEvent) error

	// Subscribe subscribes to a channel. The subscription is released and the
	// returned channel closed when ctx is done.
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ChangeEvent, error)

	// Unsubscribe drops every subscriber of a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the feed and all subscriptions
	Close() error
}

// Filter columns the workflow subscribes on
const (
	ColumnEmergencyID = "emergency_id"
	ColumnResponderID = "responder_id"
	ColumnPatientID   = "patient_id"
)

// ChangeChannel returns the channel name for rows of table where column = value
func ChangeChannel(table, column, value string) string {
	return fmt.Sprintf("%s:%s=eq.%s", table, column, value)
}

// ResponsesForEmergency is the channel a patient's alert view listens on
func ResponsesForEmergency(emergencyID string) string {
	return ChangeChannel(entities.TableEmergencyResponses, ColumnEmergencyID, emergencyID)
}

// ResponsesForResponder is the channel a frontline worker's dashboard listens on
func ResponsesForResponder(responderID string) string {
	return ChangeChannel(entities.TableEmergencyResponses, ColumnResponderID, responderID)
}

// EmergenciesForPatient carries changes to a patient's own emergencies
func EmergenciesForPatient(patientID string) string {
	return ChangeChannel(entities.TableEmergencies, ColumnPatientID, patientID)
}
