package migrations

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickhouseConn is the part of a ClickHouse connection the runner uses.
type ClickhouseConn interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
}

type clickhouseTarget struct {
	conn ClickhouseConn
}

// RunClickhouseMigrations applies the embedded ClickHouse files not yet
// recorded on conn's database, which must already exist.
//
// ClickHouse has no DDL transactions. A file that fails halfway is not
// recorded and runs whole on the next attempt, so every statement uses
// IF NOT EXISTS.
func RunClickhouseMigrations(ctx context.Context, conn ClickhouseConn) ([]string, error) {
	if conn == nil {
		return nil, fmt.Errorf("clickhouse connection is required")
	}
	return Run(ctx, clickhouseTarget{conn: conn}, ClickhouseFS, "clickhouse")
}

func (t clickhouseTarget) Prepare(ctx context.Context) error {
	return t.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+MigrationTable+` (
		name       String,
		applied_at Int64
	) ENGINE = ReplacingMergeTree(applied_at)
	ORDER BY name`)
}

func (t clickhouseTarget) Applied(ctx context.Context) (map[string]bool, error) {
	rows, err := t.conn.Query(ctx, "SELECT name FROM "+MigrationTable+" FINAL")
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

func (t clickhouseTarget) Apply(ctx context.Context, m Migration, appliedAt int64) error {
	if err := validateNoSemicolonInStrings(m.Up); err != nil {
		return err
	}
	// The native protocol takes one statement per Exec.
	for _, stmt := range splitStatements(m.Up) {
		if err := t.conn.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	if err := t.conn.Exec(ctx,
		"INSERT INTO "+MigrationTable+" (name, applied_at) VALUES (?, ?)",
		m.Name, appliedAt,
	); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return nil
}

// splitStatements splits a file on semicolons after dropping blank and
// "--" comment lines. It does not understand quoting: migrations keep
// semicolons out of string literals and out of /* */ comments, which
// validateNoSemicolonInStrings checks for the literal case.
func splitStatements(input string) []string {
	var filtered []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		filtered = append(filtered, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(filtered, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings rejects SQL with a semicolon inside a
// single-quoted literal. Doubled quotes are escapes.
func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return fmt.Errorf("semicolon inside string literal at offset %d", i)
			}
		}
	}
	return nil
}
