package domain

import "time"

// StaffStatus enumerates staff account lifecycle states.
type StaffStatus string

const (
	StaffStatusPending   StaffStatus = "PENDING"
	StaffStatusActive    StaffStatus = "ACTIVE"
	StaffStatusSuspended StaffStatus = "SUSPENDED"
)

// StaffAccount models a staff member subordinate to an owning business
// account. Capabilities is the persisted source of truth for what the staff
// member may access.
type StaffAccount struct {
	ID           string
	OwnerID      string
	Name         string
	Email        string
	PasswordHash string
	Capabilities CapabilitySet
	Status       StaffStatus
	Online       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanLogin reports whether the account may authenticate. Pending accounts
// may log in once; doing so activates them.
func (s *StaffAccount) CanLogin() bool {
	return s.Status == StaffStatusPending || s.Status == StaffStatusActive
}
