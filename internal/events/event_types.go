package events

import (
	"time"

	"github.com/spec-kit/staff-access-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccessChanged      EventType = "access_changed"
	EventStaffCreated       EventType = "staff_created"
	EventStaffStatusChanged EventType = "staff_status_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	StaffID   string      `json:"staff_id"`
	OwnerID   string      `json:"owner_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AccessChangeEvent describes one capability-set transition for a staff
// account. Receivers reconcile by removing Removed and adding Added to their
// local set; the operation is idempotent so applying the same event twice,
// or after a fresh read of persisted state, is harmless.
type AccessChangeEvent struct {
	ID         string               `json:"id"`
	StaffID    string               `json:"staff_id"`
	OwnerID    string               `json:"owner_id"`
	Previous   domain.CapabilitySet `json:"previous"`
	Current    domain.CapabilitySet `json:"current"`
	Added      domain.CapabilitySet `json:"added"`
	Removed    domain.CapabilitySet `json:"removed"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// IsNoOp reports whether the event carries no capability change.
func (e AccessChangeEvent) IsNoOp() bool {
	return e.Added.IsEmpty() && e.Removed.IsEmpty()
}

// StaffCreatedPayload payload.
type StaffCreatedPayload struct {
	Name         string               `json:"name"`
	Email        string               `json:"email"`
	Capabilities domain.CapabilitySet `json:"capabilities"`
}

// StaffStatusChangedPayload payload.
type StaffStatusChangedPayload struct {
	OldStatus domain.StaffStatus `json:"old_status"`
	NewStatus domain.StaffStatus `json:"new_status"`
}
