package events

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var received []Event
	d.Subscribe(EventAccessChanged, func(_ context.Context, e Event) error {
		received = append(received, e)
		return nil
	})
	d.Subscribe(EventStaffCreated, func(_ context.Context, e Event) error {
		t.Fatal("wrong event type delivered")
		return nil
	})

	if err := d.Publish(context.Background(), Event{ID: "e1", Type: EventAccessChanged, StaffID: "s1"}); err != nil {
		t.Fatalf("publish error: %v", err)
	}
	if len(received) != 1 || received[0].ID != "e1" {
		t.Fatalf("unexpected delivery: %+v", received)
	}
}

func TestDispatcherSwallowsHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	calls := 0
	d.Subscribe(EventAccessChanged, func(_ context.Context, _ Event) error {
		calls++
		return errors.New("subscriber broke")
	})
	d.Subscribe(EventAccessChanged, func(_ context.Context, _ Event) error {
		calls++
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventAccessChanged}); err != nil {
		t.Fatalf("publish returned error despite best-effort contract: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected both handlers to run, got %d calls", calls)
	}
}
