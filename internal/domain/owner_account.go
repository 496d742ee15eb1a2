package domain

import "time"

// OwnerStatus represents lifecycle states for a business account.
type OwnerStatus string

const (
	OwnerStatusActive    OwnerStatus = "ACTIVE"
	OwnerStatusSuspended OwnerStatus = "SUSPENDED"
)

// OwnerAccount is the domain model for a business account that owns staff.
type OwnerAccount struct {
	ID           string
	BusinessName string
	Email        string
	PasswordHash string
	Status       OwnerStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
