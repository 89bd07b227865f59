// Package migrations holds the embedded schema of every store backend and
// applies it. Each backend records applied files in a schema_migrations
// table, so a file runs once per database.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"
)

// MigrationTable records applied migration files by name.
const MigrationTable = "schema_migrations"

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// Migration is the forward section of one embedded SQL file.
type Migration struct {
	Name string
	Up   string
}

// Target is a database the runner can migrate.
type Target interface {
	// Prepare creates the bookkeeping table.
	Prepare(ctx context.Context) error
	// Applied returns the names already recorded.
	Applied(ctx context.Context) (map[string]bool, error)
	// Apply executes m and records it under appliedAt (unix ms).
	Apply(ctx context.Context, m Migration, appliedAt int64) error
}

// Load reads the .sql files under dir in lexical order.
// Files with an empty Up section are skipped.
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	migrations := make([]Migration, 0, len(files))
	for _, file := range files {
		data, err := fs.ReadFile(fsys, dir+"/"+file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		up := strings.TrimSpace(extractUp(string(data)))
		if up == "" {
			continue
		}
		migrations = append(migrations, Migration{Name: file, Up: up})
	}
	return migrations, nil
}

// Run applies the migrations under dir that target has not recorded yet and
// returns their names in the order applied.
func Run(ctx context.Context, target Target, fsys fs.FS, dir string) ([]string, error) {
	migrations, err := Load(fsys, dir)
	if err != nil {
		return nil, err
	}
	if err := target.Prepare(ctx); err != nil {
		return nil, fmt.Errorf("ensure migration table: %w", err)
	}
	applied, err := target.Applied(ctx)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}

	var ran []string
	for _, m := range migrations {
		if applied[m.Name] {
			continue
		}
		if err := target.Apply(ctx, m, time.Now().UTC().UnixMilli()); err != nil {
			return ran, fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		ran = append(ran, m.Name)
	}
	return ran, nil
}

// extractUp returns the SQL between the Up and Down markers.
// Files without markers are applied whole.
func extractUp(content string) string {
	upIdx := strings.Index(content, upMarker)
	if upIdx == -1 {
		return content
	}
	rest := content[upIdx+len(upMarker):]
	if downIdx := strings.Index(rest, downMarker); downIdx != -1 {
		return rest[:downIdx]
	}
	return rest
}
