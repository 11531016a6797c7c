package entities

import "time"

// AlertState is the patient-side alert session state
type AlertState string

const (
	AlertStateCreating          AlertState = "creating"
	AlertStateSent              AlertState = "sent"
	AlertStateResponderAccepted AlertState = "responder_accepted"
	AlertStateCancelled         AlertState = "cancelled"
)

// Labels shown next to each responder on the patient's alert screen
const (
	ResponderLabelAwaiting = "Notified"
	ResponderLabelArriving = "Arriving"
	ResponderLabelDeclined = "Unavailable"
)

// ResponderView is one row of the patient's live responder list
type ResponderView struct {
	ResponseID  string         `json:"response_id,omitempty"`
	ResponderID string         `json:"responder_id,omitempty"`
	Name        string         `json:"name"`
	Role        string         `json:"role"`
	Phone       string         `json:"phone,omitempty"`
	Status      ResponseStatus `json:"status"`
	Label       string         `json:"label"`
	Distance    string         `json:"distance"`
	Live        bool           `json:"live"`
}

// AlertSnapshot is what the patient's alert view renders at one point in time
type AlertSnapshot struct {
	EmergencyID string          `json:"emergency_id"`
	State       AlertState      `json:"state"`
	Simulated   bool            `json:"simulated"`
	Placeholder bool            `json:"placeholder"`
	Degraded    bool            `json:"degraded"`
	Responders  []ResponderView `json:"responders"`
	NotifiedAt  time.Time       `json:"notified_at"`
}

// AcceptedCount counts live responders that accepted
func (s *AlertSnapshot) AcceptedCount() int {
	n := 0
	for _, r := range s.Responders {
		if r.Live && r.Status == ResponseStatusAccepted {
			n++
		}
	}
	return n
}

// AssignedEmergency is one row of a frontline worker's dashboard
type AssignedEmergency struct {
	ResponseID  string           `json:"response_id"`
	EmergencyID string           `json:"emergency_id"`
	PatientID   string           `json:"patient_id"`
	PatientName string           `json:"patient_name"`
	Description string           `json:"description"`
	Location    *string          `json:"location,omitempty"`
	Latitude    *float64         `json:"latitude,omitempty"`
	Longitude   *float64         `json:"longitude,omitempty"`
	Status      AssignmentStatus `json:"status"`
	Actionable  bool             `json:"actionable"`
	Distance    string           `json:"distance"`
	CreatedAt   time.Time        `json:"created_at"`
	Elapsed     string           `json:"elapsed"`
}
