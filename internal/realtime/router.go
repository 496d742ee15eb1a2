package realtime

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-access-service/internal/events"
	"github.com/spec-kit/staff-access-service/internal/observability"
)

// Envelope types pushed to client sessions.
const (
	EnvelopeAccessChanged  = "access_changed"
	EnvelopeStatusChanged  = "status_changed"
	EnvelopeAccessSnapshot = "access_snapshot"
)

// Router fans domain events out to every live session registered for the
// affected staff identity. Delivery is best-effort and at-most-once per
// session per publish: no retries, no durability, and a slow or dead session
// never blocks the publisher or its siblings.
type Router struct {
	registry *Registry
	relay    *Backplane
	logger   *zap.Logger
	metrics  *observability.Metrics

	delivered  atomic.Int64
	dropped    atomic.Int64
	noSessions atomic.Int64
}

// RouterStats is a snapshot of delivery counters.
type RouterStats struct {
	Delivered  int64 `json:"delivered"`
	Dropped    int64 `json:"dropped"`
	NoSessions int64 `json:"no_sessions"`
}

// NewRouter constructs the propagation router. relay may be nil when the
// service runs as a single process.
func NewRouter(registry *Registry, relay *Backplane, logger *zap.Logger, metrics *observability.Metrics) *Router {
	return &Router{registry: registry, relay: relay, logger: logger, metrics: metrics}
}

// RegisterHandlers subscribes the router to propagated event types.
func (r *Router) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventAccessChanged, r.handleAccessChanged)
	dispatcher.Subscribe(events.EventStaffStatusChanged, r.handleStatusChanged)
}

func (r *Router) handleAccessChanged(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccessChangeEvent)
	if !ok {
		r.logger.Warn("unexpected access event payload", zap.String("event_id", event.ID))
		return nil
	}
	env := Envelope{Type: EnvelopeAccessChanged, Payload: payload}
	r.Deliver(payload.StaffID, env)
	r.relayOut(payload.StaffID, env)
	return nil
}

func (r *Router) handleStatusChanged(_ context.Context, event events.Event) error {
	env := Envelope{Type: EnvelopeStatusChanged, Payload: event.Payload}
	r.Deliver(event.StaffID, env)
	r.relayOut(event.StaffID, env)
	return nil
}

// Deliver pushes an envelope to every local session of the staff identity.
// Zero registered sessions is a safe no-op: the staff member picks up
// current persisted state at next login.
func (r *Router) Deliver(staffID string, env Envelope) {
	sessions := r.registry.SessionsFor(staffID)
	if len(sessions) == 0 {
		r.noSessions.Add(1)
		r.metrics.RecordPush("no_session")
		return
	}
	for _, session := range sessions {
		if session.TrySend(env) {
			r.delivered.Add(1)
			r.metrics.RecordPush("delivered")
			continue
		}
		r.dropped.Add(1)
		r.metrics.RecordPush("dropped")
		r.logger.Warn("session delivery dropped",
			zap.String("staff_id", staffID),
			zap.String("session_id", session.ID),
			zap.String("envelope_type", env.Type))
	}
}

// relayOut forwards the envelope to other processes. Relay errors are
// logged only: cross-process sync is best-effort.
func (r *Router) relayOut(staffID string, env Envelope) {
	if r.relay == nil {
		return
	}
	go func() {
		if err := r.relay.Publish(context.Background(), staffID, env); err != nil {
			r.logger.Warn("backplane publish failed", zap.String("staff_id", staffID), zap.Error(err))
			return
		}
		r.metrics.RecordPush("relayed")
	}()
}

// Stats returns a snapshot of delivery counters.
func (r *Router) Stats() RouterStats {
	return RouterStats{
		Delivered:  r.delivered.Load(),
		Dropped:    r.dropped.Load(),
		NoSessions: r.noSessions.Load(),
	}
}
