package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxDB is the part of a pgx pool the runner uses. Both *pgxpool.Pool and
// the catalog store's Pool satisfy it.
type PgxDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type postgresTarget struct {
	db PgxDB
}

// RunPostgresMigrations applies the embedded PostgreSQL files not yet
// recorded, each in its own transaction.
func RunPostgresMigrations(ctx context.Context, db PgxDB) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("postgres pool is required")
	}
	return Run(ctx, postgresTarget{db: db}, PostgresFS, "postgres")
}

func (t postgresTarget) Prepare(ctx context.Context) error {
	_, err := t.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+MigrationTable+` (
		name       TEXT PRIMARY KEY,
		applied_at BIGINT NOT NULL
	)`)
	return err
}

func (t postgresTarget) Applied(ctx context.Context) (map[string]bool, error) {
	rows, err := t.db.Query(ctx, "SELECT name FROM "+MigrationTable)
	if err != nil {
		return nil, err
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	applied := make(map[string]bool, len(names))
	for _, name := range names {
		applied[name] = true
	}
	return applied, nil
}

func (t postgresTarget) Apply(ctx context.Context, m Migration, appliedAt int64) error {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// No arguments: pgx sends the file over the simple protocol, which
	// accepts several statements.
	if _, err := tx.Exec(ctx, m.Up); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO "+MigrationTable+" (name, applied_at) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING",
		m.Name, appliedAt,
	); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return tx.Commit(ctx)
}
