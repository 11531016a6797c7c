package entities

// TriageRole is the author of one conversation turn
type TriageRole string

const (
	TriageRoleUser      TriageRole = "user"
	TriageRoleAssistant TriageRole = "assistant"
)

// TriageMessage is one turn of the triage conversation
type TriageMessage struct {
	Role TriageRole `json:"role"`
	Text string     `json:"text"`
}

// TriageQuery is a single request to the triage assistant.
// Image is a data URL or raw base64 JPEG/PNG.
type TriageQuery struct {
	Prompt   string          `json:"prompt"`
	Image    string          `json:"image,omitempty"`
	Language string          `json:"language,omitempty"`
	History  []TriageMessage `json:"history"`
}

// TriageReply is the assistant's answer
type TriageReply struct {
	Text string `json:"text"`
}

// Transcript is the text recognised in a voice note
type Transcript struct {
	Text     string `json:"transcript"`
	Language string `json:"language"`
}

// SpeechStatusDisabled is reported when speech synthesis is switched off
const SpeechStatusDisabled = "feature_disabled"

// Speech is synthesized audio. Empty Audio with Status=feature_disabled is a no-op.
type Speech struct {
	Audio  []byte
	Format string
	Status string
}

// Disabled reports whether synthesis was skipped
func (s *Speech) Disabled() bool {
	return s == nil || s.Status == SpeechStatusDisabled
}
