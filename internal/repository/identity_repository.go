package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/custody-service/internal/domain"
)

// IdentityFilter defines query params for identity listing.
type IdentityFilter struct {
	Role   *domain.Role
	Active *bool
	Limit  int
	Offset int
}

// IdentityRepository defines persistence access for staff identities.
type IdentityRepository interface {
	Create(ctx context.Context, identity *domain.Identity) error
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Identity, error)
	List(ctx context.Context, filter IdentityFilter) ([]domain.Identity, error)
	SetActive(ctx context.Context, id string, active bool) error
	RecordLogin(ctx context.Context, id, ip string, at time.Time) error
}

type identityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository returns a Postgres-backed implementation.
func NewIdentityRepository(pool *pgxpool.Pool) IdentityRepository {
	return &identityRepository{pool: pool}
}

func (r *identityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	const query = `
        INSERT INTO identities (phone, name, role, designation, biometric_hash, active_flag)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		identity.Phone,
		identity.Name,
		identity.Role,
		identity.Designation,
		identity.BiometricHash,
		identity.Active,
	).Scan(&identity.ID, &identity.CreatedAt, &identity.UpdatedAt)
	if isUniqueViolation(err) {
		// Two registrations racing past the phone pre-check; the unique
		// index on identities.phone decides the loser.
		return ErrDuplicate
	}
	return err
}

func (r *identityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	const query = `
        SELECT id, phone, name, role, designation, biometric_hash, active_flag,
               last_login_at, last_login_ip, created_at, updated_at
        FROM identities WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *identityRepository) GetByPhone(ctx context.Context, phone string) (*domain.Identity, error) {
	const query = `
        SELECT id, phone, name, role, designation, biometric_hash, active_flag,
               last_login_at, last_login_ip, created_at, updated_at
        FROM identities WHERE phone=$1`
	return r.fetchSingle(ctx, query, phone)
}

func (r *identityRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Identity, error) {
	var identity domain.Identity
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&identity.ID,
		&identity.Phone,
		&identity.Name,
		&identity.Role,
		&identity.Designation,
		&identity.BiometricHash,
		&identity.Active,
		&identity.LastLoginAt,
		&identity.LastLoginIP,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (r *identityRepository) List(ctx context.Context, filter IdentityFilter) ([]domain.Identity, error) {
	query := `
        SELECT id, phone, name, role, designation, biometric_hash, active_flag,
               last_login_at, last_login_ip, created_at, updated_at
        FROM identities WHERE 1=1`
	args := []any{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		query += fmt.Sprintf(" AND role=$%d", len(args))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		query += fmt.Sprintf(" AND active_flag=$%d", len(args))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var identities []domain.Identity
	for rows.Next() {
		var identity domain.Identity
		if err := rows.Scan(
			&identity.ID,
			&identity.Phone,
			&identity.Name,
			&identity.Role,
			&identity.Designation,
			&identity.BiometricHash,
			&identity.Active,
			&identity.LastLoginAt,
			&identity.LastLoginIP,
			&identity.CreatedAt,
			&identity.UpdatedAt,
		); err != nil {
			return nil, err
		}
		identities = append(identities, identity)
	}
	return identities, rows.Err()
}

func (r *identityRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `
        UPDATE identities SET active_flag=$1, updated_at=NOW()
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, active, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *identityRepository) RecordLogin(ctx context.Context, id, ip string, at time.Time) error {
	const query = `
        UPDATE identities SET last_login_at=$1, last_login_ip=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, at, ip, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
