package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staff-access-service/internal/domain"
)

// StaffRepository handles persistence for staff accounts. The capabilities
// column is the authoritative bitmask; it is only ever replaced through
// ReplaceCapabilities so concurrent readers never observe a partial update.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffAccount) error
	Update(ctx context.Context, staff *domain.StaffAccount) error
	GetByID(ctx context.Context, id string) (*domain.StaffAccount, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffAccount, error)
	ListByOwner(ctx context.Context, ownerID string, filter StaffFilter) ([]domain.StaffAccount, error)
	ReplaceCapabilities(ctx context.Context, staffID, ownerID string, requested domain.CapabilitySet) (domain.CapabilitySet, error)
	SetStatus(ctx context.Context, staffID string, status domain.StaffStatus) error
}

// StaffFilter defines query params for staff listing.
type StaffFilter struct {
	Status *domain.StaffStatus
	Limit  int
	Offset int
}

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

const staffColumns = `id, owner_account_id, name, email, password_hash, capabilities, status, created_at, updated_at`

func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffAccount) error {
	const query = `
        INSERT INTO staff_accounts (owner_account_id, name, email, password_hash, capabilities, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		staff.OwnerID,
		staff.Name,
		staff.Email,
		staff.PasswordHash,
		int64(staff.Capabilities),
		staff.Status,
	).Scan(&staff.ID, &staff.CreatedAt, &staff.UpdatedAt)
}

func (r *staffRepository) Update(ctx context.Context, staff *domain.StaffAccount) error {
	const query = `
        UPDATE staff_accounts
        SET name=$1, email=$2, password_hash=$3, status=$4, updated_at=NOW()
        WHERE id=$5`

	cmd, err := r.pool.Exec(ctx, query,
		staff.Name,
		staff.Email,
		staff.PasswordHash,
		staff.Status,
		staff.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffAccount, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_accounts WHERE id=$1`
	return scanStaff(r.pool.QueryRow(ctx, query, id))
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffAccount, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_accounts WHERE email=$1`
	return scanStaff(r.pool.QueryRow(ctx, query, email))
}

func (r *staffRepository) ListByOwner(ctx context.Context, ownerID string, filter StaffFilter) ([]domain.StaffAccount, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_accounts`
	args := []any{ownerID}
	clauses := []string{"owner_account_id=$1"}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	query += " WHERE " + strings.Join(clauses, " AND ")
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffAccount
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *staff)
	}
	return result, rows.Err()
}

// ReplaceCapabilities atomically swaps the persisted bitmask and returns the
// previous value. The row is locked for the duration of the transaction so
// concurrent replacements for the same staff account serialize at the
// storage layer and diffs are never computed from a stale snapshot. The row
// must belong to ownerID or pgx.ErrNoRows is returned.
func (r *staffRepository) ReplaceCapabilities(ctx context.Context, staffID, ownerID string, requested domain.CapabilitySet) (domain.CapabilitySet, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.CapabilityNone, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var previous int64
	const selectQuery = `
        SELECT capabilities FROM staff_accounts
        WHERE id=$1 AND owner_account_id=$2
        FOR UPDATE`
	if err := tx.QueryRow(ctx, selectQuery, staffID, ownerID).Scan(&previous); err != nil {
		return domain.CapabilityNone, err
	}

	const updateQuery = `
        UPDATE staff_accounts SET capabilities=$1, updated_at=NOW()
        WHERE id=$2`
	if _, err := tx.Exec(ctx, updateQuery, int64(requested), staffID); err != nil {
		return domain.CapabilityNone, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.CapabilityNone, err
	}
	return domain.CapabilitySet(previous), nil
}

func (r *staffRepository) SetStatus(ctx context.Context, staffID string, status domain.StaffStatus) error {
	const query = `
        UPDATE staff_accounts SET status=$1, updated_at=NOW()
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, staffID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanStaff(row pgx.Row) (*domain.StaffAccount, error) {
	var staff domain.StaffAccount
	var capabilities int64
	if err := row.Scan(
		&staff.ID,
		&staff.OwnerID,
		&staff.Name,
		&staff.Email,
		&staff.PasswordHash,
		&capabilities,
		&staff.Status,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, err
	}
	staff.Capabilities = domain.CapabilitySet(capabilities)
	return &staff, nil
}
