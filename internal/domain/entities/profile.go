package entities

import (
	"strings"
	"time"
)

// Profile is a user of the app, patient or frontline worker
type Profile struct {
	ID                string    `json:"id" db:"id"`
	FullName          string    `json:"full_name" db:"full_name"`
	Phone             string    `json:"phone" db:"phone"`
	Email             string    `json:"email" db:"email"`
	IsFrontlineWorker bool      `json:"is_frontline_worker" db:"is_frontline_worker"`
	FrontlineTypeID   *string   `json:"frontline_type,omitempty" db:"frontline_type"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName falls back to the phone number when no name was captured at signup
func (p *Profile) DisplayName() string {
	if name := strings.TrimSpace(p.FullName); name != "" {
		return name
	}
	if p.Phone != "" {
		return p.Phone
	}
	return "Unknown"
}

// FrontlineType names a kind of frontline worker (ASHA Worker, ANM, ...)
type FrontlineType struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// IdentifierKind tags which login identifier a user supplied
type IdentifierKind string

const (
	IdentifierPhone IdentifierKind = "phone"
	IdentifierEmail IdentifierKind = "email"
)

// Identifier is either a phone number or an email address, never both.
// Construct it with PhoneIdentifier or EmailIdentifier.
type Identifier struct {
	kind  IdentifierKind
	value string
}

// PhoneIdentifier builds a phone identifier
func PhoneIdentifier(phone string) Identifier {
	return Identifier{kind: IdentifierPhone, value: strings.TrimSpace(phone)}
}

// EmailIdentifier builds an email identifier
func EmailIdentifier(email string) Identifier {
	return Identifier{kind: IdentifierEmail, value: strings.ToLower(strings.TrimSpace(email))}
}

// Kind returns the variant tag
func (i Identifier) Kind() IdentifierKind { return i.kind }

// Value returns the normalised identifier
func (i Identifier) Value() string { return i.value }

// IsZero reports whether the identifier was never set
func (i Identifier) IsZero() bool { return i.kind == "" || i.value == "" }
