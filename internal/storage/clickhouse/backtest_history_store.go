package clickhouse

import (
	"context"
	"fmt"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/storage"
)

// BacktestHistoryStore implements storage.BacktestHistoryStore using ClickHouse.
type BacktestHistoryStore struct {
	conn *Conn
}

// NewBacktestHistoryStore creates a new BacktestHistoryStore.
func NewBacktestHistoryStore(conn *Conn) *BacktestHistoryStore {
	return &BacktestHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BacktestHistoryStore = (*BacktestHistoryStore)(nil)

type historyKey struct {
	runID    string
	bridgeID string
}

// InsertBulk adds history rows. Fails entire batch on any duplicate
// (run_id, bridge_id, day), within the batch or against stored rows.
func (s *BacktestHistoryStore) InsertBulk(ctx context.Context, records []*domain.BacktestRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	days := make(map[historyKey]map[int]struct{})
	for _, r := range records {
		if r == nil || r.RunID == "" || r.BridgeID == "" {
			return storage.ErrInvalidInput
		}
		k := historyKey{r.RunID, r.BridgeID}
		if days[k] == nil {
			days[k] = make(map[int]struct{})
		}
		if _, exists := days[k][r.Day]; exists {
			return storage.ErrDuplicateKey
		}
		days[k][r.Day] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for k, batchDays := range days {
		stored, err := s.storedDays(ctx, k.runID, k.bridgeID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, d := range stored {
			if _, exists := batchDays[d]; exists {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO backtest_history (
			run_id, bridge_id, day, period_id, prediction, status, streak, note
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err := batch.Append(
			r.RunID,
			r.BridgeID,
			int64(r.Day),
			r.PeriodID,
			r.Prediction,
			string(r.Status),
			int64(r.Streak),
			r.Note,
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

// GetByBridge retrieves the rows of one run for a bridge, ordered by day ASC.
func (s *BacktestHistoryStore) GetByBridge(ctx context.Context, runID, bridgeID string) ([]*domain.BacktestRecord, error) {
	query := `
		SELECT run_id, bridge_id, day, period_id, prediction, status, streak, note
		FROM backtest_history FINAL
		WHERE run_id = ? AND bridge_id = ?
		ORDER BY day ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, bridgeID)
	if err != nil {
		return nil, fmt.Errorf("query backtest history: %w", err)
	}
	defer rows.Close()

	return scanBacktestRecords(rows)
}

// storedDays returns the days already recorded for a run and bridge.
func (s *BacktestHistoryStore) storedDays(ctx context.Context, runID, bridgeID string) ([]int, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT day FROM backtest_history FINAL
		WHERE run_id = ? AND bridge_id = ?
	`, runID, bridgeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []int
	for rows.Next() {
		var d int64
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days = append(days, int(d))
	}
	return days, rows.Err()
}

func scanBacktestRecords(rows chRows) ([]*domain.BacktestRecord, error) {
	var records []*domain.BacktestRecord

	for rows.Next() {
		var (
			r      domain.BacktestRecord
			day    int64
			streak int64
			status string
		)
		err := rows.Scan(
			&r.RunID, &r.BridgeID, &day, &r.PeriodID,
			&r.Prediction, &status, &streak, &r.Note,
		)
		if err != nil {
			return nil, fmt.Errorf("scan backtest row: %w", err)
		}
		r.Day = int(day)
		r.Streak = int(streak)
		r.Status = domain.DayStatus(status)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest rows: %w", err)
	}

	return records, nil
}
