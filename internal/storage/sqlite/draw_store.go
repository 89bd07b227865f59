package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/storage"
)

// DrawStore implements storage.DrawStore using SQLite.
type DrawStore struct {
	db *DB
}

// NewDrawStore creates a new DrawStore.
func NewDrawStore(db *DB) *DrawStore {
	return &DrawStore{db: db}
}

var _ storage.DrawStore = (*DrawStore)(nil)

const insertDrawQuery = `
	INSERT INTO draws (
		period_id, seq, draw_date, gdb, g1, g2, g3, g4, g5, g6, g7, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectDrawColumns = `
	SELECT period_id, seq, draw_date, gdb, g1, g2, g3, g4, g5, g6, g7, created_at
	FROM draws
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertDraw(ctx context.Context, ex execer, d *domain.Draw, now int64) error {
	if d == nil || d.PeriodID == "" {
		return storage.ErrInvalidInput
	}
	createdAt := d.CreatedAt
	if createdAt == 0 {
		createdAt = now
	}
	args := []any{d.PeriodID, d.Seq, d.DrawDate}
	for _, v := range d.Tiers {
		args = append(args, v)
	}
	args = append(args, createdAt)

	if _, err := ex.ExecContext(ctx, insertDrawQuery, args...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert draw: %w", err)
	}
	return nil
}

// Insert adds a new draw. Returns ErrDuplicateKey if period_id exists.
func (s *DrawStore) Insert(ctx context.Context, d *domain.Draw) error {
	return insertDraw(ctx, s.db.sqlDB, d, time.Now().UnixMilli())
}

// InsertBulk adds multiple draws atomically. Fails entire batch on any duplicate.
func (s *DrawStore) InsertBulk(ctx context.Context, draws []*domain.Draw) error {
	if len(draws) == 0 {
		return nil
	}

	tx, err := s.db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for _, d := range draws {
		if err := insertDraw(ctx, tx, d, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetAll retrieves every draw, ordered by seq ASC.
func (s *DrawStore) GetAll(ctx context.Context) ([]*domain.Draw, error) {
	rows, err := s.db.sqlDB.QueryContext(ctx, selectDrawColumns+` ORDER BY seq ASC, period_id ASC`)
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
			LIMIT ?
		)
		ORDER BY seq ASC, period_id ASC
	`
	rows, err := s.db.sqlDB.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("get latest draws: %w", err)
	}
	defer rows.Close()

	return scanDraws(rows)
}

// GetByPeriod retrieves a draw by its period. Returns ErrNotFound if not exists.
func (s *DrawStore) GetByPeriod(ctx context.Context, periodID string) (*domain.Draw, error) {
	var d domain.Draw
	err := s.db.sqlDB.QueryRowContext(ctx, selectDrawColumns+` WHERE period_id = ?`, periodID).Scan(drawDest(&d)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get draw by period: %w", err)
	}
	return &d, nil
}

func drawDest(d *domain.Draw) []any {
	dest := []any{&d.PeriodID, &d.Seq, &d.DrawDate}
	for i := range d.Tiers {
		dest = append(dest, &d.Tiers[i])
	}
	return append(dest, &d.CreatedAt)
}

func scanDraws(rows *sql.Rows) ([]*domain.Draw, error) {
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
