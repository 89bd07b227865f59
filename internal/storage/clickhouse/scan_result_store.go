package clickhouse

import (
	"context"
	"fmt"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/storage"
)

// ScanResultStore implements storage.ScanResultStore using ClickHouse.
type ScanResultStore struct {
	conn *Conn
}

// NewScanResultStore creates a new ScanResultStore.
func NewScanResultStore(conn *Conn) *ScanResultStore {
	return &ScanResultStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ScanResultStore = (*ScanResultStore)(nil)

// InsertBulk adds candidate snapshots. Fails entire batch on any duplicate
// (run_id, rank).
func (s *ScanResultStore) InsertBulk(ctx context.Context, snapshots []*domain.ScanSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	runs := make(map[string]map[int]struct{})
	for _, sn := range snapshots {
		if sn == nil || sn.RunID == "" || sn.Rank < 0 {
			return storage.ErrInvalidInput
		}
		if runs[sn.RunID] == nil {
			runs[sn.RunID] = make(map[int]struct{})
		}
		if _, exists := runs[sn.RunID][sn.Rank]; exists {
			return storage.ErrDuplicateKey
		}
		runs[sn.RunID][sn.Rank] = struct{}{}
	}

	for runID := range runs {
		exists, err := s.exists(ctx, runID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO scan_results (
			run_id, rank, scanned_at,
			kind, operand_a, operand_b, k_offset,
			name, normalized_name, description,
			streak, recent_wins, max_losing_streak,
			short_rate, frame_rate, rates_missing,
			prediction_kind, prediction, prediction_label,
			score, audit
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, sn := range snapshots {
		c := sn.Candidate
		err := batch.Append(
			sn.RunID, int64(sn.Rank), sn.ScannedAt,
			string(c.Spec.Kind), int64(c.Spec.OperandA), int64(c.Spec.OperandB), int64(c.Spec.KOffset),
			c.Name, c.NormalizedName, c.Description,
			int64(c.Streak), int64(c.RecentWins), int64(c.MaxLosingStreak),
			c.ShortRate, c.FrameRate, c.RatesMissing,
			string(c.Next.Kind), c.Next.String(), c.Next.Label,
			c.Score, c.Audit,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRun retrieves the snapshots of a scan run, ordered by rank ASC.
func (s *ScanResultStore) GetByRun(ctx context.Context, runID string) ([]*domain.ScanSnapshot, error) {
	query := `
		SELECT
			run_id, rank, scanned_at,
			kind, operand_a, operand_b, k_offset,
			name, normalized_name, description,
			streak, recent_wins, max_losing_streak,
			short_rate, frame_rate, rates_missing,
			prediction_kind, prediction, prediction_label,
			score, audit
		FROM scan_results FINAL
		WHERE run_id = ?
		ORDER BY rank ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query scan results: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// exists reports whether any snapshot of the run is stored. Scan runs are
// written in one batch, so a stored run is never extended.
func (s *ScanResultStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM scan_results FINAL WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanSnapshots(rows chRows) ([]*domain.ScanSnapshot, error) {
	var snapshots []*domain.ScanSnapshot

	for rows.Next() {
		var (
			sn                        domain.ScanSnapshot
			rank                      int64
			kind, predKind, pred      string
			opA, opB, kOffset         int64
			streak, recent, maxLosing int64
		)
		c := &sn.Candidate
		err := rows.Scan(
			&sn.RunID, &rank, &sn.ScannedAt,
			&kind, &opA, &opB, &kOffset,
			&c.Name, &c.NormalizedName, &c.Description,
			&streak, &recent, &maxLosing,
			&c.ShortRate, &c.FrameRate, &c.RatesMissing,
			&predKind, &pred, &c.Next.Label,
			&c.Score, &c.Audit,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		sn.Rank = int(rank)
		c.Spec = domain.BridgeSpec{
			Kind:     domain.BridgeKind(kind),
			OperandA: int(opA),
			OperandB: int(opB),
			KOffset:  int(kOffset),
		}
		c.Streak = int(streak)
		c.RecentWins = int(recent)
		c.MaxLosingStreak = int(maxLosing)

		if predKind != "" {
			label := c.Next.Label
			next, err := domain.ParsePrediction(domain.PredictionKind(predKind), pred)
			if err != nil {
				return nil, fmt.Errorf("scan snapshot row: %w", err)
			}
			next.Label = label
			c.Next = next
		}

		snapshots = append(snapshots, &sn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}
