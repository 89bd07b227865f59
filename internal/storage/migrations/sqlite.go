package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

type sqliteTarget struct {
	db *sql.DB
}

// RunSQLiteMigrations applies the embedded SQLite files not yet recorded,
// each in its own transaction.
func RunSQLiteMigrations(ctx context.Context, db *sql.DB) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("sql db is required")
	}
	return Run(ctx, sqliteTarget{db: db}, SQLiteFS, "sqlite")
}

func (t sqliteTarget) Prepare(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+MigrationTable+` (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`)
	return err
}

func (t sqliteTarget) Applied(ctx context.Context) (map[string]bool, error) {
	rows, err := t.db.QueryContext(ctx, "SELECT name FROM "+MigrationTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

func (t sqliteTarget) Apply(ctx context.Context, m Migration, appliedAt int64) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO "+MigrationTable+" (name, applied_at) VALUES (?, ?)",
		m.Name, appliedAt,
	); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return tx.Commit()
}
