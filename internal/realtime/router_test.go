package realtime

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-access-service/internal/domain"
	"github.com/spec-kit/staff-access-service/internal/events"
	"github.com/spec-kit/staff-access-service/internal/observability"
)

func newTestRouter(registry *Registry) *Router {
	return NewRouter(registry, nil, zap.NewNop(), observability.NewMetrics())
}

func TestPublishFansOutToAllSessionsOfStaff(t *testing.T) {
	registry := NewRegistry(0, PresenceHooks{})
	router := newTestRouter(registry)

	first := NewSession("staff-1", 4)
	second := NewSession("staff-1", 4)
	other := NewSession("staff-2", 4)
	registry.Register(first)
	registry.Register(second)
	registry.Register(other)

	payload := events.AccessChangeEvent{
		ID:         "e1",
		StaffID:    "staff-1",
		Added:      domain.CapabilitySet(domain.CapabilityChat),
		Removed:    domain.CapabilitySet(domain.CapabilityLeads),
		OccurredAt: time.Now().UTC(),
	}
	if err := router.handleAccessChanged(context.Background(), events.Event{
		ID:      "e1",
		Type:    events.EventAccessChanged,
		StaffID: "staff-1",
		Payload: payload,
	}); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	for _, session := range []*Session{first, second} {
		select {
		case env := <-session.Events():
			if env.Type != EnvelopeAccessChanged {
				t.Fatalf("envelope type = %q", env.Type)
			}
			got, ok := env.Payload.(events.AccessChangeEvent)
			if !ok {
				t.Fatalf("payload type %T", env.Payload)
			}
			if got.Added != payload.Added || got.Removed != payload.Removed {
				t.Fatalf("payload diff mismatch: %+v", got)
			}
		default:
			t.Fatal("registered session received nothing")
		}
	}

	select {
	case <-other.Events():
		t.Fatal("unrelated staff session received the event")
	default:
	}

	stats := router.Stats()
	if stats.Delivered != 2 {
		t.Fatalf("delivered = %d, want 2", stats.Delivered)
	}
}

func TestPublishWithNoSessionsIsSafeNoOp(t *testing.T) {
	registry := NewRegistry(0, PresenceHooks{})
	router := newTestRouter(registry)

	router.Deliver("ghost", Envelope{Type: EnvelopeAccessChanged})

	stats := router.Stats()
	if stats.NoSessions != 1 || stats.Delivered != 0 {
		t.Fatalf("stats = %+v, want one no-session outcome", stats)
	}
}

func TestSaturatedSessionDropsWithoutBlocking(t *testing.T) {
	registry := NewRegistry(0, PresenceHooks{})
	router := newTestRouter(registry)

	slow := NewSession("staff-1", 1)
	registry.Register(slow)

	router.Deliver("staff-1", Envelope{Type: "a"})

	done := make(chan struct{})
	go func() {
		router.Deliver("staff-1", Envelope{Type: "b"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("delivery to saturated session blocked")
	}

	stats := router.Stats()
	if stats.Delivered != 1 || stats.Dropped != 1 {
		t.Fatalf("stats = %+v, want 1 delivered and 1 dropped", stats)
	}
}
