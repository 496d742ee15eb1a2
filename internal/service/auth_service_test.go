package service

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/staff-access-service/internal/auth"
	"github.com/spec-kit/staff-access-service/internal/config"
	"github.com/spec-kit/staff-access-service/internal/domain"
	"github.com/spec-kit/staff-access-service/internal/repository"
)

type fakeOwnerRepo struct {
	mu     sync.Mutex
	owners map[string]*domain.OwnerAccount
}

func newFakeOwnerRepo(owners ...*domain.OwnerAccount) *fakeOwnerRepo {
	repo := &fakeOwnerRepo{owners: make(map[string]*domain.OwnerAccount)}
	for _, owner := range owners {
		repo.owners[owner.ID] = owner
	}
	return repo
}

func (r *fakeOwnerRepo) Create(_ context.Context, owner *domain.OwnerAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner.ID == "" {
		owner.ID = "owner-" + owner.Email
	}
	r.owners[owner.ID] = owner
	return nil
}

func (r *fakeOwnerRepo) Update(_ context.Context, owner *domain.OwnerAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owners[owner.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.owners[owner.ID] = owner
	return nil
}

func (r *fakeOwnerRepo) GetByID(_ context.Context, id string) (*domain.OwnerAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *owner
	return &copied, nil
}

func (r *fakeOwnerRepo) GetByEmail(_ context.Context, email string) (*domain.OwnerAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, owner := range r.owners {
		if owner.Email == email {
			copied := *owner
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeResetRepo struct {
	mu     sync.Mutex
	tokens map[string]*repository.PasswordResetToken
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: make(map[string]*repository.PasswordResetToken)}
}

func (r *fakeResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token.ID == "" {
		token.ID = "reset-" + token.Token
	}
	r.tokens[token.Token] = token
	return nil
}

func (r *fakeResetRepo) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *token
	return &copied, nil
}

func (r *fakeResetRepo) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.tokens {
		if token.ID == id {
			now := token.ExpiresAt
			token.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

func testAuthConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   5,
			PasswordResetTTLMinutes: 5,
			BcryptCost:              bcrypt.MinCost,
		},
	}
}

func hashFixture(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return hash
}

func TestLoginStaffActivatesPendingAccount(t *testing.T) {
	account := staffFixture("s1", "o1", domain.CapabilitySet(domain.CapabilityInventory))
	account.Status = domain.StaffStatusPending
	account.PasswordHash = hashFixture(t, "secret123")
	staffRepo := newFakeStaffRepo(account)

	svc := NewAuthService(testAuthConfig(), AuthDependencies{
		OwnerRepo:         newFakeOwnerRepo(),
		StaffRepo:         staffRepo,
		PasswordResetRepo: newFakeResetRepo(),
	})

	staff, token, _, err := svc.LoginStaff(context.Background(), account.Email, "secret123")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	if staff.Status != domain.StaffStatusActive {
		t.Fatalf("status = %s, want active", staff.Status)
	}
	persisted, _ := staffRepo.GetByID(context.Background(), "s1")
	if persisted.Status != domain.StaffStatusActive {
		t.Fatal("first login did not activate the stored account")
	}

	claims, err := svc.TokenManager().ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != domain.SubjectTypeStaff || claims.SubjectID != "s1" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.Capabilities != account.Capabilities {
		t.Fatalf("token caps = %v, want %v", claims.Capabilities.Names(), account.Capabilities.Names())
	}
}

func TestLoginStaffRefusesSuspendedAccount(t *testing.T) {
	account := staffFixture("s1", "o1", domain.CapabilityNone)
	account.Status = domain.StaffStatusSuspended
	account.PasswordHash = hashFixture(t, "secret123")

	svc := NewAuthService(testAuthConfig(), AuthDependencies{
		OwnerRepo:         newFakeOwnerRepo(),
		StaffRepo:         newFakeStaffRepo(account),
		PasswordResetRepo: newFakeResetRepo(),
	})

	if _, _, _, err := svc.LoginStaff(context.Background(), account.Email, "secret123"); err == nil {
		t.Fatal("suspended account logged in")
	}
}

func TestLoginStaffRejectsWrongPassword(t *testing.T) {
	account := staffFixture("s1", "o1", domain.CapabilityNone)
	account.PasswordHash = hashFixture(t, "secret123")

	svc := NewAuthService(testAuthConfig(), AuthDependencies{
		OwnerRepo:         newFakeOwnerRepo(),
		StaffRepo:         newFakeStaffRepo(account),
		PasswordResetRepo: newFakeResetRepo(),
	})

	if _, _, _, err := svc.LoginStaff(context.Background(), account.Email, "wrong"); err == nil {
		t.Fatal("wrong password accepted")
	}
}

func TestRefreshReissuesCurrentCapabilitySnapshot(t *testing.T) {
	account := staffFixture("s1", "o1", domain.CapabilitySet(domain.CapabilityInventory))
	staffRepo := newFakeStaffRepo(account)

	svc := NewAuthService(testAuthConfig(), AuthDependencies{
		OwnerRepo:         newFakeOwnerRepo(),
		StaffRepo:         staffRepo,
		PasswordResetRepo: newFakeResetRepo(),
	})

	// Simulate an access change that happened after token issue.
	updated := domain.CapabilitySet(domain.CapabilityChat | domain.CapabilityReports)
	if _, err := staffRepo.ReplaceCapabilities(context.Background(), "s1", "o1", updated); err != nil {
		t.Fatalf("replace: %v", err)
	}

	token, _, err := svc.Refresh(context.Background(), AuthSubject{Type: domain.SubjectTypeStaff, ID: "s1"})
	if err != nil {
		t.Fatalf("refresh error: %v", err)
	}
	claims, err := svc.TokenManager().ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Capabilities != updated {
		t.Fatalf("refreshed caps = %v, want %v", claims.Capabilities.Names(), updated.Names())
	}
}

func TestPasswordResetRoundTrip(t *testing.T) {
	account := staffFixture("s1", "o1", domain.CapabilityNone)
	account.PasswordHash = hashFixture(t, "old-password")
	staffRepo := newFakeStaffRepo(account)

	svc := NewAuthService(testAuthConfig(), AuthDependencies{
		OwnerRepo:         newFakeOwnerRepo(),
		StaffRepo:         staffRepo,
		PasswordResetRepo: newFakeResetRepo(),
	})

	reset, err := svc.RequestPasswordReset(context.Background(), account.Email)
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if reset.SubjectType != string(domain.SubjectTypeStaff) || reset.SubjectID != "s1" {
		t.Fatalf("reset token = %+v", reset)
	}

	if err := svc.ConfirmPasswordReset(context.Background(), reset.Token, "new-password"); err != nil {
		t.Fatalf("confirm reset: %v", err)
	}
	if _, _, _, err := svc.LoginStaff(context.Background(), account.Email, "new-password"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, _, _, err := svc.LoginStaff(context.Background(), account.Email, "old-password"); err == nil {
		t.Fatal("old password still accepted")
	}

	// A used token must not work a second time.
	if err := svc.ConfirmPasswordReset(context.Background(), reset.Token, "another"); err == nil {
		t.Fatal("used reset token accepted")
	}
}

func TestRegisterOwnerRejectsDuplicateEmail(t *testing.T) {
	svc := NewAuthService(testAuthConfig(), AuthDependencies{
		OwnerRepo:         newFakeOwnerRepo(),
		StaffRepo:         newFakeStaffRepo(),
		PasswordResetRepo: newFakeResetRepo(),
	})

	if _, _, _, err := svc.RegisterOwner(context.Background(), "Shop", "o@example.com", "secret123"); err != nil {
		t.Fatalf("register error: %v", err)
	}
	if _, _, _, err := svc.RegisterOwner(context.Background(), "Shop 2", "o@example.com", "secret123"); err == nil {
		t.Fatal("duplicate email accepted")
	}
}
