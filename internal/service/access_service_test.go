package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-access-service/internal/domain"
	"github.com/spec-kit/staff-access-service/internal/events"
	"github.com/spec-kit/staff-access-service/internal/repository"
	apperrors "github.com/spec-kit/staff-access-service/pkg/util"
)

type fakeStaffRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.StaffAccount

	replaceErr   error
	blockStaffID string
	blockCh      chan struct{}

	inFlight map[string]bool
	overlap  bool
}

func newFakeStaffRepo(accounts ...*domain.StaffAccount) *fakeStaffRepo {
	repo := &fakeStaffRepo{
		accounts: make(map[string]*domain.StaffAccount),
		inFlight: make(map[string]bool),
	}
	for _, account := range accounts {
		repo.accounts[account.ID] = account
	}
	return repo
}

func (r *fakeStaffRepo) Create(_ context.Context, staff *domain.StaffAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[staff.ID] = staff
	return nil
}

func (r *fakeStaffRepo) Update(_ context.Context, staff *domain.StaffAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[staff.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.accounts[staff.ID] = staff
	return nil
}

func (r *fakeStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	staff, ok := r.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *staff
	return &copied, nil
}

func (r *fakeStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, staff := range r.accounts {
		if staff.Email == email {
			copied := *staff
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeStaffRepo) ListByOwner(_ context.Context, ownerID string, _ repository.StaffFilter) ([]domain.StaffAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.StaffAccount
	for _, staff := range r.accounts {
		if staff.OwnerID == ownerID {
			result = append(result, *staff)
		}
	}
	return result, nil
}

func (r *fakeStaffRepo) ReplaceCapabilities(_ context.Context, staffID, ownerID string, requested domain.CapabilitySet) (domain.CapabilitySet, error) {
	r.mu.Lock()
	if r.replaceErr != nil {
		r.mu.Unlock()
		return domain.CapabilityNone, r.replaceErr
	}
	staff, ok := r.accounts[staffID]
	if !ok || staff.OwnerID != ownerID {
		r.mu.Unlock()
		return domain.CapabilityNone, pgx.ErrNoRows
	}
	if r.inFlight[staffID] {
		r.overlap = true
	}
	r.inFlight[staffID] = true
	var block chan struct{}
	if staffID == r.blockStaffID {
		block = r.blockCh
	}
	r.mu.Unlock()

	if block != nil {
		<-block
	}
	// Simulated write latency keeps the critical section open long enough
	// for unserialized callers to overlap.
	time.Sleep(time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()
	previous := staff.Capabilities
	staff.Capabilities = requested
	r.inFlight[staffID] = false
	return previous, nil
}

func (r *fakeStaffRepo) SetStatus(_ context.Context, staffID string, status domain.StaffStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	staff, ok := r.accounts[staffID]
	if !ok {
		return pgx.ErrNoRows
	}
	staff.Status = status
	return nil
}

type fakeDispatcher struct {
	mu        sync.Mutex
	published []events.Event
}

func (d *fakeDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, event)
	return nil
}

func (d *fakeDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *fakeDispatcher) events() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event{}, d.published...)
}

func staffFixture(id, ownerID string, capabilities domain.CapabilitySet) *domain.StaffAccount {
	return &domain.StaffAccount{
		ID:           id,
		OwnerID:      ownerID,
		Name:         "Staff " + id,
		Email:        id + "@example.com",
		Capabilities: capabilities,
		Status:       domain.StaffStatusActive,
	}
}

func TestUpdateAccessComputesDiffAndPersists(t *testing.T) {
	repo := newFakeStaffRepo(staffFixture("s1", "o1",
		domain.CapabilitySet(domain.CapabilityInventory|domain.CapabilityLeads)))
	dispatcher := &fakeDispatcher{}
	svc := NewAccessService(repo, dispatcher, zap.NewNop())

	requested := domain.CapabilitySet(domain.CapabilityInventory | domain.CapabilityChat)
	result, err := svc.UpdateAccess(context.Background(), "s1", requested, "o1")
	if err != nil {
		t.Fatalf("update error: %v", err)
	}
	if result.NoOp || result.Event == nil {
		t.Fatalf("expected change event, got %+v", result)
	}
	if result.Event.Added != domain.CapabilitySet(domain.CapabilityChat) {
		t.Fatalf("added = %v, want {chat}", result.Event.Added.Names())
	}
	if result.Event.Removed != domain.CapabilitySet(domain.CapabilityLeads) {
		t.Fatalf("removed = %v, want {leads}", result.Event.Removed.Names())
	}

	persisted, _ := repo.GetByID(context.Background(), "s1")
	if persisted.Capabilities != requested {
		t.Fatalf("persisted = %v, want %v", persisted.Capabilities.Names(), requested.Names())
	}

	published := dispatcher.events()
	if len(published) != 1 || published[0].Type != events.EventAccessChanged {
		t.Fatalf("published = %+v, want one access_changed event", published)
	}
}

func TestUpdateAccessRejectsNonOwner(t *testing.T) {
	initial := domain.CapabilitySet(domain.CapabilityInventory | domain.CapabilityLeads)
	repo := newFakeStaffRepo(staffFixture("s1", "o1", initial))
	dispatcher := &fakeDispatcher{}
	svc := NewAccessService(repo, dispatcher, zap.NewNop())

	_, err := svc.UpdateAccess(context.Background(), "s1",
		domain.CapabilitySet(domain.CapabilityChat), "intruder")
	if err == nil {
		t.Fatal("expected authorization error")
	}
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Fatalf("error = %v, want FORBIDDEN", err)
	}

	persisted, _ := repo.GetByID(context.Background(), "s1")
	if persisted.Capabilities != initial {
		t.Fatal("persisted set changed despite authorization failure")
	}
	if len(dispatcher.events()) != 0 {
		t.Fatal("event published despite authorization failure")
	}
}

func TestUpdateAccessRejectsUnknownBits(t *testing.T) {
	repo := newFakeStaffRepo(staffFixture("s1", "o1", domain.CapabilityNone))
	dispatcher := &fakeDispatcher{}
	svc := NewAccessService(repo, dispatcher, zap.NewNop())

	_, err := svc.UpdateAccess(context.Background(), "s1", domain.CapabilitySet(1<<60), "o1")
	if err == nil {
		t.Fatal("expected validation error")
	}
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_FAILED" {
		t.Fatalf("error = %v, want VALIDATION_FAILED", err)
	}
}

func TestUpdateAccessNoOpWhenUnchanged(t *testing.T) {
	current := domain.CapabilitySet(domain.CapabilityInventory)
	repo := newFakeStaffRepo(staffFixture("s1", "o1", current))
	dispatcher := &fakeDispatcher{}
	svc := NewAccessService(repo, dispatcher, zap.NewNop())

	result, err := svc.UpdateAccess(context.Background(), "s1", current, "o1")
	if err != nil {
		t.Fatalf("update error: %v", err)
	}
	if !result.NoOp || result.Event != nil {
		t.Fatalf("expected no-op sentinel, got %+v", result)
	}
	if len(dispatcher.events()) != 0 {
		t.Fatal("no-op update published an event")
	}
	persisted, _ := repo.GetByID(context.Background(), "s1")
	if persisted.Capabilities != current {
		t.Fatal("persisted set changed on no-op")
	}
}

func TestUpdateAccessPersistenceFailurePublishesNothing(t *testing.T) {
	repo := newFakeStaffRepo(staffFixture("s1", "o1", domain.CapabilityNone))
	repo.replaceErr = errors.New("connection reset")
	dispatcher := &fakeDispatcher{}
	svc := NewAccessService(repo, dispatcher, zap.NewNop())

	_, err := svc.UpdateAccess(context.Background(), "s1",
		domain.CapabilitySet(domain.CapabilityChat), "o1")
	if err == nil {
		t.Fatal("expected persistence failure")
	}
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "PERSISTENCE_FAILED" {
		t.Fatalf("error = %v, want PERSISTENCE_FAILED", err)
	}
	if len(dispatcher.events()) != 0 {
		t.Fatal("event published for an uncommitted change")
	}
}

func TestConcurrentUpdatesSameStaffSerialize(t *testing.T) {
	repo := newFakeStaffRepo(staffFixture("s1", "o1", domain.CapabilityNone))
	svc := NewAccessService(repo, &fakeDispatcher{}, zap.NewNop())

	var wg sync.WaitGroup
	requests := []domain.CapabilitySet{
		domain.CapabilitySet(domain.CapabilityInventory),
		domain.CapabilitySet(domain.CapabilityLeads),
		domain.CapabilitySet(domain.CapabilityChat),
		domain.CapabilitySet(domain.CapabilityReports),
	}
	for _, requested := range requests {
		wg.Add(1)
		go func(set domain.CapabilitySet) {
			defer wg.Done()
			if _, err := svc.UpdateAccess(context.Background(), "s1", set, "o1"); err != nil {
				t.Errorf("update error: %v", err)
			}
		}(requested)
	}
	wg.Wait()

	if repo.overlap {
		t.Fatal("two updates for the same staff ran against the store concurrently")
	}
}

func TestUpdatesForDifferentStaffDoNotBlockEachOther(t *testing.T) {
	repo := newFakeStaffRepo(
		staffFixture("s1", "o1", domain.CapabilityNone),
		staffFixture("s2", "o1", domain.CapabilityNone),
	)
	repo.blockStaffID = "s1"
	repo.blockCh = make(chan struct{})
	svc := NewAccessService(repo, &fakeDispatcher{}, zap.NewNop())

	blockedDone := make(chan struct{})
	go func() {
		_, _ = svc.UpdateAccess(context.Background(), "s1",
			domain.CapabilitySet(domain.CapabilityInventory), "o1")
		close(blockedDone)
	}()

	otherDone := make(chan struct{})
	go func() {
		_, _ = svc.UpdateAccess(context.Background(), "s2",
			domain.CapabilitySet(domain.CapabilityLeads), "o1")
		close(otherDone)
	}()

	select {
	case <-otherDone:
	case <-time.After(time.Second):
		t.Fatal("update for unrelated staff blocked behind a stalled update")
	}

	close(repo.blockCh)
	<-blockedDone
}

func TestEffectiveAccessReadsPersistedTruth(t *testing.T) {
	set := domain.CapabilitySet(domain.CapabilityCalendar)
	repo := newFakeStaffRepo(staffFixture("s1", "o1", set))
	svc := NewAccessService(repo, &fakeDispatcher{}, zap.NewNop())

	capabilities, status, err := svc.EffectiveAccess(context.Background(), "s1")
	if err != nil {
		t.Fatalf("effective access error: %v", err)
	}
	if capabilities != set || status != domain.StaffStatusActive {
		t.Fatalf("got (%v, %s)", capabilities.Names(), status)
	}
}
