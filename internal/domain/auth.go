package domain

import "time"

// SubjectType differentiates owner vs staff tokens.
type SubjectType string

const (
	SubjectTypeOwner SubjectType = "OWNER"
	SubjectTypeStaff SubjectType = "STAFF"
)

// Token represents issued authentication token metadata.
type Token struct {
	ID           string
	SubjectID    string
	Subject      SubjectType
	Capabilities CapabilitySet
	ExpiresAt    time.Time
	IssuedAt     time.Time
}
