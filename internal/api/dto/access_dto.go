package dto

import "time"

// AccessUpdateRequest payload. Capabilities are wire names; unknown names
// are rejected before anything touches persistence.
type AccessUpdateRequest struct {
	Capabilities []string `json:"capabilities"`
}

// AccessChangeResponse mirrors the propagated event for the owner.
type AccessChangeResponse struct {
	EventID    string    `json:"event_id"`
	StaffID    string    `json:"staff_id"`
	Added      []string  `json:"added"`
	Removed    []string  `json:"removed"`
	Current    []string  `json:"current"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AccessSnapshotResponse is the authoritative pull view for a staff session.
type AccessSnapshotResponse struct {
	StaffID      string   `json:"staff_id"`
	Capabilities []string `json:"capabilities"`
	Status       string   `json:"status"`
}
