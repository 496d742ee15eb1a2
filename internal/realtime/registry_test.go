package realtime

import (
	"sync"
	"testing"
)

func TestRegisterUnregisterLeavesNoTrace(t *testing.T) {
	registry := NewRegistry(0, PresenceHooks{})
	session := NewSession("staff-1", 4)

	registry.Register(session)
	if registry.Count("staff-1") != 1 {
		t.Fatalf("count = %d, want 1", registry.Count("staff-1"))
	}

	registry.Unregister("staff-1", session.ID)
	if registry.Count("staff-1") != 0 {
		t.Fatalf("count = %d after unregister, want 0", registry.Count("staff-1"))
	}
	if registry.SessionsFor("staff-1") != nil {
		t.Fatal("sessions remain after unregister")
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	registry := NewRegistry(0, PresenceHooks{})
	session := NewSession("staff-1", 4)

	registry.Register(session)
	registry.Register(session)
	if registry.Count("staff-1") != 1 {
		t.Fatalf("count = %d after double register, want 1", registry.Count("staff-1"))
	}
}

func TestUnregisterUnknownBindingIsNoOp(t *testing.T) {
	registry := NewRegistry(0, PresenceHooks{})
	registry.Unregister("staff-1", "never-registered")
	if registry.Count("staff-1") != 0 {
		t.Fatal("phantom binding appeared")
	}
}

func TestPresenceHooksFireOnTransitions(t *testing.T) {
	var mu sync.Mutex
	online := 0
	offline := 0
	registry := NewRegistry(0, PresenceHooks{
		OnOnline: func(string) {
			mu.Lock()
			online++
			mu.Unlock()
		},
		OnOffline: func(string) {
			mu.Lock()
			offline++
			mu.Unlock()
		},
	})

	first := NewSession("staff-1", 4)
	second := NewSession("staff-1", 4)

	registry.Register(first)
	registry.Register(second)
	registry.Unregister("staff-1", first.ID)
	registry.Unregister("staff-1", second.ID)

	mu.Lock()
	defer mu.Unlock()
	if online != 1 {
		t.Fatalf("online hook fired %d times, want 1", online)
	}
	if offline != 1 {
		t.Fatalf("offline hook fired %d times, want 1", offline)
	}
}

func TestConcurrentRegistryAccess(t *testing.T) {
	registry := NewRegistry(5, PresenceHooks{})

	var wg sync.WaitGroup
	staffIDs := []string{"a", "b", "c", "d"}
	for _, staffID := range staffIDs {
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				session := NewSession(id, 4)
				registry.Register(session)
				registry.SessionsFor(id)
				registry.Unregister(id, session.ID)
			}(staffID)
		}
	}
	wg.Wait()

	for _, staffID := range staffIDs {
		if registry.Count(staffID) != 0 {
			t.Fatalf("staff %s leaked %d sessions", staffID, registry.Count(staffID))
		}
	}
}

func TestSessionTrySend(t *testing.T) {
	session := NewSession("staff-1", 2)

	if !session.TrySend(Envelope{Type: "a"}) || !session.TrySend(Envelope{Type: "b"}) {
		t.Fatal("sends within buffer failed")
	}
	if session.TrySend(Envelope{Type: "c"}) {
		t.Fatal("send on saturated buffer should fail")
	}

	<-session.Events()
	if !session.TrySend(Envelope{Type: "c"}) {
		t.Fatal("send after drain failed")
	}

	session.Close()
	session.Close()
	if session.TrySend(Envelope{Type: "d"}) {
		t.Fatal("send on closed session should fail")
	}
}
