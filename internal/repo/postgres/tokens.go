package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soloviov/accounthub/internal/observability"
)

var ErrTokenNotFound = errors.New("token not found")

// AccessTokenRow is one issued bearer token. Only the HMAC hash of the raw
// token is stored.
type AccessTokenRow struct {
	ID        string // jti
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

type TokensRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *TokensRepo {
	return &TokensRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *TokensRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *TokensRepo) Create(ctx context.Context, row AccessTokenRow) error {
	return r.observe("tokens.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO access_tokens (id, user_id, token_hash, expires_at, revoked_at, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			row.ID, row.UserID, row.TokenHash, row.ExpiresAt, row.RevokedAt, row.CreatedAt,
		)
		return err
	})
}

func (r *TokensRepo) Get(ctx context.Context, id string) (AccessTokenRow, error) {
	var row AccessTokenRow

	err := r.observe("tokens.get", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
			FROM access_tokens
			WHERE id = $1
		`, id).Scan(
			&row.ID,
			&row.UserID,
			&row.TokenHash,
			&row.ExpiresAt,
			&row.RevokedAt,
			&row.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccessTokenRow{}, ErrTokenNotFound
		}

		return AccessTokenRow{}, err
	}

	return row, nil
}

// Revoke is idempotent: revoking an already revoked token is a no-op.
func (r *TokensRepo) Revoke(ctx context.Context, id string) error {
	return r.observe("tokens.revoke", func() error {
		_, err := r.pool.Exec(ctx, `
			UPDATE access_tokens
			SET revoked_at = NOW()
			WHERE id = $1 AND revoked_at IS NULL
		`, id)

		return err
	})
}
