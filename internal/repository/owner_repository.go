package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staff-access-service/internal/domain"
)

// OwnerRepository defines persistence access for business accounts.
type OwnerRepository interface {
	Create(ctx context.Context, owner *domain.OwnerAccount) error
	Update(ctx context.Context, owner *domain.OwnerAccount) error
	GetByID(ctx context.Context, id string) (*domain.OwnerAccount, error)
	GetByEmail(ctx context.Context, email string) (*domain.OwnerAccount, error)
}

type ownerRepository struct {
	pool *pgxpool.Pool
}

// NewOwnerRepository returns a Postgres-backed implementation.
func NewOwnerRepository(pool *pgxpool.Pool) OwnerRepository {
	return &ownerRepository{pool: pool}
}

func (r *ownerRepository) Create(ctx context.Context, owner *domain.OwnerAccount) error {
	const query = `
        INSERT INTO owner_accounts (business_name, email, password_hash, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		owner.BusinessName,
		owner.Email,
		owner.PasswordHash,
		owner.Status,
	).Scan(&owner.ID, &owner.CreatedAt, &owner.UpdatedAt)
}

func (r *ownerRepository) Update(ctx context.Context, owner *domain.OwnerAccount) error {
	const query = `
        UPDATE owner_accounts SET business_name=$1, email=$2, password_hash=$3, status=$4, updated_at=NOW()
        WHERE id=$5`

	cmd, err := r.pool.Exec(ctx, query,
		owner.BusinessName,
		owner.Email,
		owner.PasswordHash,
		owner.Status,
		owner.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ownerRepository) GetByID(ctx context.Context, id string) (*domain.OwnerAccount, error) {
	const query = `
        SELECT id, business_name, email, password_hash, status, created_at, updated_at
        FROM owner_accounts WHERE id=$1`

	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *ownerRepository) GetByEmail(ctx context.Context, email string) (*domain.OwnerAccount, error) {
	const query = `
        SELECT id, business_name, email, password_hash, status, created_at, updated_at
        FROM owner_accounts WHERE email=$1`

	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *ownerRepository) scanOne(row pgx.Row) (*domain.OwnerAccount, error) {
	var owner domain.OwnerAccount
	if err := row.Scan(
		&owner.ID,
		&owner.BusinessName,
		&owner.Email,
		&owner.PasswordHash,
		&owner.Status,
		&owner.CreatedAt,
		&owner.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &owner, nil
}
