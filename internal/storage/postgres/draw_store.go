package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/storage"
)

// DrawStore implements storage.DrawStore using PostgreSQL.
type DrawStore struct {
	pool *Pool
}

// NewDrawStore creates a new DrawStore.
func NewDrawStore(pool *Pool) *DrawStore {
	return &DrawStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DrawStore = (*DrawStore)(nil)

const insertDrawQuery = `
	INSERT INTO draws (
		period_id, seq, draw_date, gdb, g1, g2, g3, g4, g5, g6, g7
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

const selectDrawColumns = `
	SELECT period_id, seq, draw_date, gdb, g1, g2, g3, g4, g5, g6, g7, created_at
	FROM draws
`

func drawArgs(d *domain.Draw) []any {
	args := []any{d.PeriodID, d.Seq, d.DrawDate}
	for _, v := range d.Tiers {
		args = append(args, v)
	}
	return args
}

// Insert adds a new draw. Returns ErrDuplicateKey if period_id exists.
func (s *DrawStore) Insert(ctx context.Context, d *domain.Draw) error {
	if d == nil || d.PeriodID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertDrawQuery, drawArgs(d)...)
	return mapError("insert draw", err)
}

// InsertBulk adds multiple draws atomically. Fails entire batch on any duplicate.
func (s *DrawStore) InsertBulk(ctx context.Context, draws []*domain.Draw) error {
	if len(draws) == 0 {
		return nil
	}
	for _, d := range draws {
		if d == nil || d.PeriodID == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, d := range draws {
		if _, err := tx.Exec(ctx, insertDrawQuery, drawArgs(d)...); err != nil {
			return mapError("insert draw in bulk", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetAll retrieves every draw, ordered by seq ASC.
func (s *DrawStore) GetAll(ctx context.Context) ([]*domain.Draw, error) {
	rows, err := s.pool.Query(ctx, selectDrawColumns+` ORDER BY seq ASC, period_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("get all draws: %w", err)
	}
	defer rows.Close()

	return scanDraws(rows)
}

// GetLatest retrieves the n most recent draws, ordered by seq ASC.
func (s *DrawStore) GetLatest(ctx context.Context, n int) ([]*domain.Draw, error) {
	if n < 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT * FROM (` + selectDrawColumns + `
			ORDER BY seq DESC, period_id DESC
			LIMIT $1
		) latest
		ORDER BY seq ASC, period_id ASC
	`
	rows, err := s.pool.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("get latest draws: %w", err)
	}
	defer rows.Close()

	return scanDraws(rows)
}

// GetByPeriod retrieves a draw by its period. Returns ErrNotFound if not exists.
func (s *DrawStore) GetByPeriod(ctx context.Context, periodID string) (*domain.Draw, error) {
	row := s.pool.QueryRow(ctx, selectDrawColumns+` WHERE period_id = $1`, periodID)
	d, err := scanDraw(row)
	if err != nil {
		return nil, mapError("get draw by period", err)
	}
	return d, nil
}

func drawDest(d *domain.Draw) []any {
	dest := []any{&d.PeriodID, &d.Seq, &d.DrawDate}
	for i := range d.Tiers {
		dest = append(dest, &d.Tiers[i])
	}
	return append(dest, &d.CreatedAt)
}

// scanDraw scans a single row into a Draw.
func scanDraw(row pgx.Row) (*domain.Draw, error) {
	var d domain.Draw
	if err := row.Scan(drawDest(&d)...); err != nil {
		return nil, err
	}
	return &d, nil
}

// scanDraws scans multiple rows into a slice of Draw.
func scanDraws(rows pgx.Rows) ([]*domain.Draw, error) {
	var draws []*domain.Draw

	for rows.Next() {
		var d domain.Draw
		if err := rows.Scan(drawDest(&d)...); err != nil {
			return nil, fmt.Errorf("scan draw row: %w", err)
		}
		draws = append(draws, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate draw rows: %w", err)
	}

	return draws, nil
}
