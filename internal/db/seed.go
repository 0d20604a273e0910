package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soloviov/accounthub/internal/config"
	"github.com/soloviov/accounthub/internal/security"
)

// EnsureSeedUser creates the bootstrap account if it does not exist yet.
// Registration sits behind auth, so without this no first login is possible.
func EnsureSeedUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.SeedEmail == "" || cfg.SeedPassword == "" {
		return nil
	}

	// check if the user exists

	var dummy int64

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, cfg.SeedEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.SeedPassword)

	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (name, email, password_hash, gender)
		VALUES ($1, $2, $3, $4)
		`,
		cfg.SeedName, cfg.SeedEmail, hash, cfg.SeedGender,
	)

	return err
}
