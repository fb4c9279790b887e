package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/custody-service/internal/domain"
)

// ProvisionTokenRepository manages one-time staff provisioning tokens.
type ProvisionTokenRepository interface {
	Create(ctx context.Context, token *domain.ProvisionToken) error
	GetByToken(ctx context.Context, value string) (*domain.ProvisionToken, error)
	// Redeem atomically flips an unused, unexpired token to used and returns
	// it. Two concurrent redeemers yield exactly one winner; the loser gets
	// pgx.ErrNoRows and must inspect the token to report why.
	Redeem(ctx context.Context, value string, now time.Time) (*domain.ProvisionToken, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type provisionTokenRepository struct {
	pool *pgxpool.Pool
}

// NewProvisionTokenRepository returns a Postgres-backed implementation.
func NewProvisionTokenRepository(pool *pgxpool.Pool) ProvisionTokenRepository {
	return &provisionTokenRepository{pool: pool}
}

func (r *provisionTokenRepository) Create(ctx context.Context, token *domain.ProvisionToken) error {
	const query = `
        INSERT INTO provision_tokens (token, role, used, issued_by, expires_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		token.Token,
		token.Role,
		token.Used,
		token.IssuedBy,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
}

func (r *provisionTokenRepository) GetByToken(ctx context.Context, value string) (*domain.ProvisionToken, error) {
	const query = `
        SELECT id, token, role, used, issued_by, expires_at, created_at
        FROM provision_tokens WHERE token=$1`

	var token domain.ProvisionToken
	if err := r.pool.QueryRow(ctx, query, value).Scan(
		&token.ID,
		&token.Token,
		&token.Role,
		&token.Used,
		&token.IssuedBy,
		&token.ExpiresAt,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *provisionTokenRepository) Redeem(ctx context.Context, value string, now time.Time) (*domain.ProvisionToken, error) {
	const query = `
        UPDATE provision_tokens SET used=TRUE
        WHERE token=$1 AND used=FALSE AND expires_at > $2
        RETURNING id, token, role, used, issued_by, expires_at, created_at`

	var token domain.ProvisionToken
	if err := r.pool.QueryRow(ctx, query, value, now).Scan(
		&token.ID,
		&token.Token,
		&token.Role,
		&token.Used,
		&token.IssuedBy,
		&token.ExpiresAt,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *provisionTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM provision_tokens WHERE expires_at <= $1`
	cmd, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
