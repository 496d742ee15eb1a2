package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-access-service/internal/domain"
	"github.com/spec-kit/staff-access-service/internal/events"
	"github.com/spec-kit/staff-access-service/internal/repository"
	apperrors "github.com/spec-kit/staff-access-service/pkg/util"
)

// AccessService is the only path through which a staff account's persisted
// capability set may change. Updates for one staff account serialize against
// each other; updates for different staff accounts never contend.
type AccessService struct {
	staff      repository.StaffRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	locks      *staffLocks
}

// AccessUpdateResult is the outcome of an UpdateAccess call. When the
// requested set equals the persisted set, NoOp is true and Event is nil;
// callers must not propagate anything in that case.
type AccessUpdateResult struct {
	NoOp  bool
	Event *events.AccessChangeEvent
}

// NewAccessService builds the service.
func NewAccessService(staff repository.StaffRepository, dispatcher events.Dispatcher, logger *zap.Logger) *AccessService {
	return &AccessService{
		staff:      staff,
		dispatcher: dispatcher,
		logger:     logger,
		locks:      newStaffLocks(),
	}
}

// UpdateAccess replaces the persisted capability set of a staff account.
// actingOwnerID must be the staff account's owner; anything else is an
// authorization failure regardless of caller. The persisted update commits
// before any propagation happens, and propagation failure can never fail or
// roll back the update.
func (s *AccessService) UpdateAccess(ctx context.Context, staffID string, requested domain.CapabilitySet, actingOwnerID string) (*AccessUpdateResult, error) {
	if !requested.Valid() {
		return nil, apperrors.NewValidationError("capability set contains unknown bits", map[string]any{
			"requested": uint64(requested),
		})
	}

	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("staff account", map[string]any{"staff_id": staffID})
		}
		return nil, apperrors.MapError(err)
	}
	if staff.OwnerID != actingOwnerID {
		return nil, apperrors.NewForbidden("acting account does not own this staff account")
	}

	unlock := s.locks.lock(staffID)
	defer unlock()

	previous, err := s.staff.ReplaceCapabilities(ctx, staffID, actingOwnerID, requested)
	if err != nil {
		if apperrors.IsNotFound(err) {
			// Ownership re-checked inside the transaction; a row that moved
			// or vanished since the first read is an authorization failure.
			return nil, apperrors.NewForbidden("acting account does not own this staff account")
		}
		return nil, apperrors.NewPersistenceFailure(err)
	}

	added, removed := previous.Diff(requested)
	if added.IsEmpty() && removed.IsEmpty() {
		return &AccessUpdateResult{NoOp: true}, nil
	}

	event := events.AccessChangeEvent{
		ID:         uuid.NewString(),
		StaffID:    staffID,
		OwnerID:    actingOwnerID,
		Previous:   previous,
		Current:    requested,
		Added:      added,
		Removed:    removed,
		OccurredAt: time.Now().UTC(),
	}

	// The dispatcher swallows handler errors and session sends are
	// non-blocking, so this hand-off cannot fail the committed update.
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        event.ID,
		Type:      events.EventAccessChanged,
		StaffID:   staffID,
		OwnerID:   actingOwnerID,
		Timestamp: event.OccurredAt,
		Payload:   event,
	})

	s.logger.Info("access updated",
		zap.String("staff_id", staffID),
		zap.Strings("added", added.Names()),
		zap.Strings("removed", removed.Names()))

	return &AccessUpdateResult{Event: &event}, nil
}

// EffectiveAccess returns the current persisted capability set and status
// for a staff account. This is the authoritative pull path sessions use to
// reconcile independently of live push.
func (s *AccessService) EffectiveAccess(ctx context.Context, staffID string) (domain.CapabilitySet, domain.StaffStatus, error) {
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return domain.CapabilityNone, "", apperrors.MapError(err)
	}
	return staff.Capabilities, staff.Status, nil
}

// staffLocks hands out one mutex per staff id so concurrent updates to the
// same staff serialize in-process without blocking unrelated staff.
type staffLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newStaffLocks() *staffLocks {
	return &staffLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *staffLocks) lock(staffID string) func() {
	l.mu.Lock()
	m, ok := l.locks[staffID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[staffID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
