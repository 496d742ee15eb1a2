package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-access-service/internal/auth"
	"github.com/spec-kit/staff-access-service/internal/config"
	"github.com/spec-kit/staff-access-service/internal/domain"
	"github.com/spec-kit/staff-access-service/internal/events"
	"github.com/spec-kit/staff-access-service/internal/repository"
	apperrors "github.com/spec-kit/staff-access-service/pkg/util"
)

// StaffService manages staff accounts on behalf of their owning business
// account. Every operation verifies the acting owner actually owns the
// target staff account.
type StaffService struct {
	staff      repository.StaffRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
}

// StaffListFilters define listing parameters.
type StaffListFilters struct {
	Status *domain.StaffStatus
	Limit  int
	Offset int
}

// NewStaffService constructs the service.
func NewStaffService(cfg config.Config, staff repository.StaffRepository, dispatcher events.Dispatcher, logger *zap.Logger) *StaffService {
	return &StaffService{
		staff:      staff,
		dispatcher: dispatcher,
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// CreateStaff adds a new staff account under the owner, in Pending status.
// The initial capability set must contain only known bits.
func (s *StaffService) CreateStaff(ctx context.Context, owner *domain.OwnerAccount, name, email, password string, capabilities domain.CapabilitySet) (*domain.StaffAccount, error) {
	if owner == nil {
		return nil, apperrors.NewForbidden("owner account required")
	}
	if !capabilities.Valid() {
		return nil, apperrors.NewValidationError("capability set contains unknown bits", nil)
	}
	if existing, err := s.staff.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("staff email already exists", map[string]any{"email": email})
	} else if err != nil && err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	staff := &domain.StaffAccount{
		OwnerID:      owner.ID,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Capabilities: capabilities,
		Status:       domain.StaffStatusPending,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return nil, apperrors.MapError(err)
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventStaffCreated,
		StaffID:   staff.ID,
		OwnerID:   owner.ID,
		Timestamp: time.Now().UTC(),
		Payload: events.StaffCreatedPayload{
			Name:         staff.Name,
			Email:        staff.Email,
			Capabilities: staff.Capabilities,
		},
	})
	return staff, nil
}

// ListStaff lists the owner's staff accounts.
func (s *StaffService) ListStaff(ctx context.Context, owner *domain.OwnerAccount, filters StaffListFilters) ([]domain.StaffAccount, error) {
	if owner == nil {
		return nil, apperrors.NewForbidden("owner account required")
	}
	return s.staff.ListByOwner(ctx, owner.ID, repository.StaffFilter{
		Status: filters.Status,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
}

// GetStaff fetches one staff account owned by the owner.
func (s *StaffService) GetStaff(ctx context.Context, owner *domain.OwnerAccount, staffID string) (*domain.StaffAccount, error) {
	if owner == nil {
		return nil, apperrors.NewForbidden("owner account required")
	}
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if staff.OwnerID != owner.ID {
		return nil, apperrors.NewForbidden("acting account does not own this staff account")
	}
	return staff, nil
}

// UpdateProfile updates staff name/email.
func (s *StaffService) UpdateProfile(ctx context.Context, owner *domain.OwnerAccount, staffID, name, email string) (*domain.StaffAccount, error) {
	staff, err := s.GetStaff(ctx, owner, staffID)
	if err != nil {
		return nil, err
	}
	if email != "" && email != staff.Email {
		if existing, err := s.staff.GetByEmail(ctx, email); err == nil && existing != nil && existing.ID != staff.ID {
			return nil, apperrors.NewConflict("staff email already exists", map[string]any{"email": email})
		} else if err != nil && err != pgx.ErrNoRows {
			return nil, apperrors.MapError(err)
		}
		staff.Email = email
	}
	if name != "" {
		staff.Name = name
	}
	if err := s.staff.Update(ctx, staff); err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// SetStatus suspends or reinstates a staff account and pushes the
// transition to any live sessions.
func (s *StaffService) SetStatus(ctx context.Context, owner *domain.OwnerAccount, staffID string, status domain.StaffStatus) (*domain.StaffAccount, error) {
	switch status {
	case domain.StaffStatusActive, domain.StaffStatusSuspended:
	default:
		return nil, apperrors.NewValidationError("status must be ACTIVE or SUSPENDED", nil)
	}

	staff, err := s.GetStaff(ctx, owner, staffID)
	if err != nil {
		return nil, err
	}
	if staff.Status == status {
		return staff, nil
	}
	oldStatus := staff.Status
	if err := s.staff.SetStatus(ctx, staffID, status); err != nil {
		return nil, apperrors.MapError(err)
	}
	staff.Status = status

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventStaffStatusChanged,
		StaffID:   staffID,
		OwnerID:   owner.ID,
		Timestamp: time.Now().UTC(),
		Payload: events.StaffStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: status,
		},
	})

	s.logger.Info("staff status changed",
		zap.String("staff_id", staffID),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(status)))
	return staff, nil
}
