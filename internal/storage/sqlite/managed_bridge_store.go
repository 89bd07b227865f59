package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/storage"
)

// ManagedBridgeStore implements storage.ManagedBridgeStore using SQLite.
type ManagedBridgeStore struct {
	db *DB
}

// NewManagedBridgeStore creates a new ManagedBridgeStore.
func NewManagedBridgeStore(db *DB) *ManagedBridgeStore {
	return &ManagedBridgeStore{db: db}
}

var _ storage.ManagedBridgeStore = (*ManagedBridgeStore)(nil)

const selectBridgeColumns = `
	SELECT bridge_id, name, normalized_name, description,
		kind, operand_a, operand_b, k_offset,
		enabled, manual_override, needs_evaluation, metrics,
		prediction_kind, prediction, prediction_label, pending,
		created_at, updated_at
	FROM managed_bridges
`

// Upsert inserts or replaces a bridge by bridge_id.
// Returns ErrNameConflict if another bridge already uses the normalized name.
func (s *ManagedBridgeStore) Upsert(ctx context.Context, b *domain.ManagedBridge) error {
	if b == nil || b.BridgeID == "" || b.NormalizedName == "" {
		return storage.ErrInvalidInput
	}

	metrics, err := storage.EncodeMetrics(b.Metrics)
	if err != nil {
		return err
	}
	predKind, pred, predLabel := storage.EncodePrediction(b.NextPrediction)

	_, err = s.db.sqlDB.ExecContext(ctx, `
		INSERT INTO managed_bridges (
			bridge_id, name, normalized_name, description,
			kind, operand_a, operand_b, k_offset,
			enabled, manual_override, needs_evaluation, metrics,
			prediction_kind, prediction, prediction_label, pending,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (bridge_id) DO UPDATE SET
			name = excluded.name,
			normalized_name = excluded.normalized_name,
			description = excluded.description,
			kind = excluded.kind,
			operand_a = excluded.operand_a,
			operand_b = excluded.operand_b,
			k_offset = excluded.k_offset,
			enabled = excluded.enabled,
			manual_override = excluded.manual_override,
			needs_evaluation = excluded.needs_evaluation,
			metrics = excluded.metrics,
			prediction_kind = excluded.prediction_kind,
			prediction = excluded.prediction,
			prediction_label = excluded.prediction_label,
			pending = excluded.pending,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		b.BridgeID, b.Name, b.NormalizedName, b.Description,
		string(b.Spec.Kind), b.Spec.OperandA, b.Spec.OperandB, b.Spec.KOffset,
		boolToInt(b.Enabled), boolToInt(b.ManualOverride), boolToInt(b.NeedsEvaluation), nullText(metrics),
		predKind, pred, predLabel, boolToInt(b.Pending),
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		// bridge_id conflicts update in place, so only the name index can fire.
		if isDuplicateKeyError(err) {
			return storage.ErrNameConflict
		}
		return fmt.Errorf("upsert managed bridge: %w", err)
	}
	return nil
}

// GetByID retrieves a bridge by its ID. Returns ErrNotFound if not exists.
func (s *ManagedBridgeStore) GetByID(ctx context.Context, bridgeID string) (*domain.ManagedBridge, error) {
	return s.getOne(ctx, selectBridgeColumns+` WHERE bridge_id = ?`, bridgeID)
}

// GetByName retrieves a bridge by normalized name. Returns ErrNotFound if not exists.
func (s *ManagedBridgeStore) GetByName(ctx context.Context, normalizedName string) (*domain.ManagedBridge, error) {
	return s.getOne(ctx, selectBridgeColumns+` WHERE normalized_name = ?`, normalizedName)
}

func (s *ManagedBridgeStore) getOne(ctx context.Context, query string, arg string) (*domain.ManagedBridge, error) {
	b, err := scanBridge(s.db.sqlDB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get managed bridge: %w", err)
	}
	return b, nil
}

// GetAll retrieves bridges ordered by name ASC, optionally only enabled ones.
func (s *ManagedBridgeStore) GetAll(ctx context.Context, onlyEnabled bool) ([]*domain.ManagedBridge, error) {
	query := selectBridgeColumns + ` WHERE (? = 0 OR enabled = 1) ORDER BY name ASC`
	rows, err := s.db.sqlDB.QueryContext(ctx, query, boolToInt(onlyEnabled))
	if err != nil {
		return nil, fmt.Errorf("get managed bridges: %w", err)
	}
	defer rows.Close()

	var bridges []*domain.ManagedBridge
	for rows.Next() {
		b, err := scanBridge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan managed bridge row: %w", err)
		}
		bridges = append(bridges, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate managed bridge rows: %w", err)
	}
	return bridges, nil
}

// UpdateState writes the lifecycle-owned fields of a bridge.
// Returns ErrNotFound if not exists.
func (s *ManagedBridgeStore) UpdateState(ctx context.Context, bridgeID string, state domain.BridgeState) error {
	metrics, err := storage.EncodeMetrics(state.Metrics)
	if err != nil {
		return err
	}
	predKind, pred, predLabel := storage.EncodePrediction(state.NextPrediction)

	res, err := s.db.sqlDB.ExecContext(ctx, `
		UPDATE managed_bridges SET
			enabled = ?, needs_evaluation = ?, metrics = ?,
			prediction_kind = ?, prediction = ?, prediction_label = ?,
			pending = ?, updated_at = ?
		WHERE bridge_id = ?`,
		boolToInt(state.Enabled), boolToInt(state.NeedsEvaluation), nullText(metrics),
		predKind, pred, predLabel,
		boolToInt(state.Pending), state.UpdatedAt,
		bridgeID,
	)
	if err != nil {
		return fmt.Errorf("update managed bridge state: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a bridge. Returns ErrNotFound if not exists.
func (s *ManagedBridgeStore) Delete(ctx context.Context, bridgeID string) error {
	res, err := s.db.sqlDB.ExecContext(ctx, `DELETE FROM managed_bridges WHERE bridge_id = ?`, bridgeID)
	if err != nil {
		return fmt.Errorf("delete managed bridge: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// nullText stores encoded JSON as TEXT, nil as NULL.
func nullText(data []byte) sql.NullString {
	if data == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBridge(row rowScanner) (*domain.ManagedBridge, error) {
	var (
		b                                 domain.ManagedBridge
		kind, predKind, predLabel         string
		metrics, pred                     sql.NullString
		enabled, override, needsEval, pnd int
	)
	err := row.Scan(
		&b.BridgeID, &b.Name, &b.NormalizedName, &b.Description,
		&kind, &b.Spec.OperandA, &b.Spec.OperandB, &b.Spec.KOffset,
		&enabled, &override, &needsEval, &metrics,
		&predKind, &pred, &predLabel, &pnd,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Spec.Kind = domain.BridgeKind(kind)
	b.Enabled = enabled != 0
	b.ManualOverride = override != 0
	b.NeedsEvaluation = needsEval != 0
	b.Pending = pnd != 0

	if metrics.Valid {
		if b.Metrics, err = storage.DecodeMetrics([]byte(metrics.String)); err != nil {
			return nil, err
		}
	}
	var predValue *string
	if pred.Valid {
		predValue = &pred.String
	}
	if b.NextPrediction, err = storage.DecodePrediction(predKind, predValue, predLabel); err != nil {
		return nil, err
	}
	return &b, nil
}
