package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Envelope is one message pushed to a connected client session.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Session is a live binding between one connected client (device or tab)
// and a staff identity. It is purely in-memory routing state: created when
// the connection subscribes, destroyed on disconnect, never persisted.
type Session struct {
	ID      string
	StaffID string

	out  chan Envelope
	done chan struct{}
	once sync.Once
}

// NewSession creates a session handle with the given outbound buffer size.
func NewSession(staffID string, buffer int) *Session {
	if buffer <= 0 {
		buffer = 16
	}
	return &Session{
		ID:      uuid.NewString(),
		StaffID: staffID,
		out:     make(chan Envelope, buffer),
		done:    make(chan struct{}),
	}
}

// TrySend queues an envelope without blocking. It returns false when the
// session is closed or its buffer is saturated; the caller treats that as a
// per-session delivery failure and moves on.
func (s *Session) TrySend(env Envelope) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- env:
		return true
	default:
		return false
	}
}

// Events exposes the outbound queue for the connection's write loop.
func (s *Session) Events() <-chan Envelope {
	return s.out
}

// Close marks the session dead. Safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Done is closed when the session has been closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
