// Package postgres implements the catalog stores (draws and managed bridges)
// on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lottery-bridge-lab/internal/storage"
)

// ApplicationName tags catalog connections in pg_stat_activity.
const ApplicationName = "lottery-bridge-lab"

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to the DSN and pings the server.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if _, ok := config.ConnConfig.RuntimeParams["application_name"]; !ok {
		config.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

const pgErrUniqueViolation = "23505"

// constraintErrors maps the unique constraints of the catalog schema to the
// storage error a caller can match on.
var constraintErrors = map[string]error{
	"draws_pkey":                          storage.ErrDuplicateKey,
	"managed_bridges_pkey":                storage.ErrDuplicateKey,
	"idx_managed_bridges_normalized_name": storage.ErrNameConflict,
}

// mapError turns driver errors into storage errors. A missing row becomes
// ErrNotFound and a unique violation becomes the error of its constraint.
// Anything else is wrapped with op.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
		if mapped, ok := constraintErrors[pgErr.ConstraintName]; ok {
			return mapped
		}
		return fmt.Errorf("%s: constraint %s: %w", op, pgErr.ConstraintName, storage.ErrDuplicateKey)
	}
	return fmt.Errorf("%s: %w", op, err)
}
