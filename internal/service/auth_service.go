package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/staff-access-service/internal/auth"
	"github.com/spec-kit/staff-access-service/internal/config"
	"github.com/spec-kit/staff-access-service/internal/domain"
	"github.com/spec-kit/staff-access-service/internal/repository"
)

// AuthSubject identifies the caller when changing password or refreshing.
type AuthSubject struct {
	Type domain.SubjectType
	ID   string
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	owners     repository.OwnerRepository
	staff      repository.StaffRepository
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	OwnerRepo         repository.OwnerRepository
	StaffRepo         repository.StaffRepository
	PasswordResetRepo repository.PasswordResetRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		owners:     deps.OwnerRepo,
		staff:      deps.StaffRepo,
		resets:     deps.PasswordResetRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// RegisterOwner creates a new business account.
func (s *AuthService) RegisterOwner(ctx context.Context, businessName, email, password string) (*domain.OwnerAccount, string, time.Time, error) {
	if _, err := s.owners.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, errors.New("email already registered")
	} else if err != nil && err != pgx.ErrNoRows {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	owner := &domain.OwnerAccount{
		BusinessName: businessName,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.OwnerStatusActive,
	}
	if err := s.owners.Create(ctx, owner); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(owner.ID, domain.SubjectTypeOwner, domain.CapabilityNone)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return owner, token, exp, nil
}

// LoginOwner authenticates a business account.
func (s *AuthService) LoginOwner(ctx context.Context, email, password string) (*domain.OwnerAccount, string, time.Time, error) {
	owner, err := s.owners.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if owner.Status != domain.OwnerStatusActive {
		return nil, "", time.Time{}, errors.New("owner account suspended")
	}
	if err := auth.ComparePassword(owner.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, errors.New("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(owner.ID, domain.SubjectTypeOwner, domain.CapabilityNone)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return owner, token, exp, nil
}

// LoginStaff authenticates a staff account and returns a token carrying the
// current capability snapshot. A first successful login activates a Pending
// account; a Suspended account is refused.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffAccount, string, time.Time, error) {
	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if !staff.CanLogin() {
		return nil, "", time.Time{}, errors.New("staff account suspended")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, errors.New("invalid credentials")
	}
	if staff.Status == domain.StaffStatusPending {
		if err := s.staff.SetStatus(ctx, staff.ID, domain.StaffStatusActive); err != nil {
			return nil, "", time.Time{}, err
		}
		staff.Status = domain.StaffStatusActive
	}
	token, exp, err := s.tokenMgr.GenerateToken(staff.ID, domain.SubjectTypeStaff, staff.Capabilities)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return staff, token, exp, nil
}

// Refresh re-issues a token for the subject with the current persisted
// capability snapshot. This is the pull-based reconciliation path: a session
// that missed live pushes converges here without re-entering credentials.
func (s *AuthService) Refresh(ctx context.Context, subject AuthSubject) (string, time.Time, error) {
	switch subject.Type {
	case domain.SubjectTypeOwner:
		owner, err := s.owners.GetByID(ctx, subject.ID)
		if err != nil {
			return "", time.Time{}, err
		}
		if owner.Status != domain.OwnerStatusActive {
			return "", time.Time{}, errors.New("owner account suspended")
		}
		return s.tokenMgr.GenerateToken(owner.ID, domain.SubjectTypeOwner, domain.CapabilityNone)
	case domain.SubjectTypeStaff:
		staff, err := s.staff.GetByID(ctx, subject.ID)
		if err != nil {
			return "", time.Time{}, err
		}
		if staff.Status != domain.StaffStatusActive {
			return "", time.Time{}, errors.New("staff account not active")
		}
		return s.tokenMgr.GenerateToken(staff.ID, domain.SubjectTypeStaff, staff.Capabilities)
	default:
		return "", time.Time{}, errors.New("unknown subject")
	}
}

// RequestPasswordReset persists a reset token for either owner or staff email.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	subjectType := domain.SubjectTypeOwner
	subjectID := ""

	if owner, err := s.owners.GetByEmail(ctx, email); err == nil {
		subjectID = owner.ID
	} else if err == pgx.ErrNoRows {
		staff, staffErr := s.staff.GetByEmail(ctx, email)
		if staffErr != nil {
			return nil, staffErr
		}
		subjectType = domain.SubjectTypeStaff
		subjectID = staff.ID
	} else {
		return nil, err
	}

	token := &repository.PasswordResetToken{
		SubjectType: string(subjectType),
		SubjectID:   subjectID,
		Token:       uuid.NewString(),
		ExpiresAt:   time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		return err
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return errors.New("token expired or used")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	switch domain.SubjectType(token.SubjectType) {
	case domain.SubjectTypeOwner:
		owner, err := s.owners.GetByID(ctx, token.SubjectID)
		if err != nil {
			return err
		}
		owner.PasswordHash = hash
		if err := s.owners.Update(ctx, owner); err != nil {
			return err
		}
	case domain.SubjectTypeStaff:
		staff, err := s.staff.GetByID(ctx, token.SubjectID)
		if err != nil {
			return err
		}
		staff.PasswordHash = hash
		if err := s.staff.Update(ctx, staff); err != nil {
			return err
		}
	default:
		return errors.New("unknown subject type")
	}

	return s.resets.MarkUsed(ctx, token.ID)
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, subject AuthSubject, currentPassword, newPassword string) error {
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	switch subject.Type {
	case domain.SubjectTypeOwner:
		owner, err := s.owners.GetByID(ctx, subject.ID)
		if err != nil {
			return err
		}
		if err := auth.ComparePassword(owner.PasswordHash, currentPassword); err != nil {
			return errors.New("invalid credentials")
		}
		owner.PasswordHash = hash
		return s.owners.Update(ctx, owner)
	case domain.SubjectTypeStaff:
		staff, err := s.staff.GetByID(ctx, subject.ID)
		if err != nil {
			return err
		}
		if err := auth.ComparePassword(staff.PasswordHash, currentPassword); err != nil {
			return errors.New("invalid credentials")
		}
		staff.PasswordHash = hash
		return s.staff.Update(ctx, staff)
	default:
		return errors.New("unknown subject")
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
