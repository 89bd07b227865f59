package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/storage"
)

// ManagedBridgeStore implements storage.ManagedBridgeStore using PostgreSQL.
type ManagedBridgeStore struct {
	pool *Pool
}

// NewManagedBridgeStore creates a new ManagedBridgeStore.
func NewManagedBridgeStore(pool *Pool) *ManagedBridgeStore {
	return &ManagedBridgeStore{pool: pool}
}

// Compile-time interface check.
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

	query := `
		INSERT INTO managed_bridges (
			bridge_id, name, normalized_name, description,
			kind, operand_a, operand_b, k_offset,
			enabled, manual_override, needs_evaluation, metrics,
			prediction_kind, prediction, prediction_label, pending,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (bridge_id) DO UPDATE SET
			name = EXCLUDED.name,
			normalized_name = EXCLUDED.normalized_name,
			description = EXCLUDED.description,
			kind = EXCLUDED.kind,
			operand_a = EXCLUDED.operand_a,
			operand_b = EXCLUDED.operand_b,
			k_offset = EXCLUDED.k_offset,
			enabled = EXCLUDED.enabled,
			manual_override = EXCLUDED.manual_override,
			needs_evaluation = EXCLUDED.needs_evaluation,
			metrics = EXCLUDED.metrics,
			prediction_kind = EXCLUDED.prediction_kind,
			prediction = EXCLUDED.prediction,
			prediction_label = EXCLUDED.prediction_label,
			pending = EXCLUDED.pending,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.pool.Exec(ctx, query,
		b.BridgeID,
		b.Name,
		b.NormalizedName,
		b.Description,
		string(b.Spec.Kind),
		b.Spec.OperandA,
		b.Spec.OperandB,
		b.Spec.KOffset,
		b.Enabled,
		b.ManualOverride,
		b.NeedsEvaluation,
		metrics,
		predKind,
		pred,
		predLabel,
		b.Pending,
		b.CreatedAt,
		b.UpdatedAt,
	)
	return mapError("upsert managed bridge", err)
}

// GetByID retrieves a bridge by its ID. Returns ErrNotFound if not exists.
func (s *ManagedBridgeStore) GetByID(ctx context.Context, bridgeID string) (*domain.ManagedBridge, error) {
	row := s.pool.QueryRow(ctx, selectBridgeColumns+` WHERE bridge_id = $1`, bridgeID)
	b, err := scanBridge(row)
	if err != nil {
		return nil, mapError("get managed bridge by id", err)
	}
	return b, nil
}

// GetByName retrieves a bridge by normalized name. Returns ErrNotFound if not exists.
func (s *ManagedBridgeStore) GetByName(ctx context.Context, normalizedName string) (*domain.ManagedBridge, error) {
	row := s.pool.QueryRow(ctx, selectBridgeColumns+` WHERE normalized_name = $1`, normalizedName)
	b, err := scanBridge(row)
	if err != nil {
		return nil, mapError("get managed bridge by name", err)
	}
	return b, nil
}

// GetAll retrieves bridges ordered by name ASC, optionally only enabled ones.
func (s *ManagedBridgeStore) GetAll(ctx context.Context, onlyEnabled bool) ([]*domain.ManagedBridge, error) {
	query := selectBridgeColumns + ` WHERE ($1 = FALSE OR enabled) ORDER BY name ASC`

	rows, err := s.pool.Query(ctx, query, onlyEnabled)
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

	query := `
		UPDATE managed_bridges SET
			enabled = $2,
			needs_evaluation = $3,
			metrics = $4,
			prediction_kind = $5,
			prediction = $6,
			prediction_label = $7,
			pending = $8,
			updated_at = $9
		WHERE bridge_id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		bridgeID,
		state.Enabled,
		state.NeedsEvaluation,
		metrics,
		predKind,
		pred,
		predLabel,
		state.Pending,
		state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update managed bridge state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a bridge. Returns ErrNotFound if not exists.
func (s *ManagedBridgeStore) Delete(ctx context.Context, bridgeID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM managed_bridges WHERE bridge_id = $1`, bridgeID)
	if err != nil {
		return fmt.Errorf("delete managed bridge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanBridge scans a single row into a ManagedBridge.
func scanBridge(row pgx.Row) (*domain.ManagedBridge, error) {
	var (
		b         domain.ManagedBridge
		kind      string
		metrics   []byte
		predKind  string
		pred      *string
		predLabel string
	)

	err := row.Scan(
		&b.BridgeID,
		&b.Name,
		&b.NormalizedName,
		&b.Description,
		&kind,
		&b.Spec.OperandA,
		&b.Spec.OperandB,
		&b.Spec.KOffset,
		&b.Enabled,
		&b.ManualOverride,
		&b.NeedsEvaluation,
		&metrics,
		&predKind,
		&pred,
		&predLabel,
		&b.Pending,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Spec.Kind = domain.BridgeKind(kind)
	if b.Metrics, err = storage.DecodeMetrics(metrics); err != nil {
		return nil, err
	}
	if b.NextPrediction, err = storage.DecodePrediction(predKind, pred, predLabel); err != nil {
		return nil, err
	}
	return &b, nil
}
