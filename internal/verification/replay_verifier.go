package verification

import (
	"context"
	"errors"
	"io"
	"log"

	"lottery-bridge-lab/internal/config"
	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/lifecycle"
	"lottery-bridge-lab/internal/position"
	"lottery-bridge-lab/internal/storage"
)

var (
	// ErrBridgeNotFound is returned when bridge ID doesn't exist.
	ErrBridgeNotFound = errors.New("bridge not found")

	// ErrNotEvaluated is returned when the stored bridge has no metrics or
	// the replay window resolves no frame.
	ErrNotEvaluated = errors.New("bridge has no stored metrics")
)

// Compile-time interface check.
var _ Verifier = (*ReplayVerifier)(nil)

// ReplayVerifier implements Verifier by recomputing bridges exactly the way
// a lifecycle pass does.
type ReplayVerifier struct {
	store   storage.ManagedBridgeStore
	manager *lifecycle.Manager
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	Config config.Config
	Store  storage.ManagedBridgeStore
	Logger *log.Logger
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &ReplayVerifier{
		store: opts.Store,
		// Recompute never writes, so the manager gets no store.
		manager: lifecycle.NewManager(lifecycle.Options{Config: opts.Config, Logger: logger}),
	}
}

// VerifyBridge verifies a single bridge by replaying its backtest.
func (v *ReplayVerifier) VerifyBridge(ctx context.Context, series *position.Series, bridgeID string) (*VerificationResult, error) {
	// 1. Load stored bridge
	stored, err := v.store.GetByID(ctx, bridgeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrBridgeNotFound
		}
		return nil, err
	}
	return v.verify(ctx, series, stored)
}

// VerifyAll verifies all stored bridges.
func (v *ReplayVerifier) VerifyAll(ctx context.Context, series *position.Series) (*VerificationReport, error) {
	bridges, err := v.store.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{Results: make([]VerificationResult, 0, len(bridges))}
	for _, b := range bridges {
		result, err := v.verify(ctx, series, b)
		if errors.Is(err, ErrNotEvaluated) {
			report.Unevaluated++
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			// Record error as divergence
			report.Results = append(report.Results, VerificationResult{
				BridgeID:      b.BridgeID,
				Name:          b.Name,
				StoredWinRate: b.Metrics.WinRate,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.TotalBridges++
			report.DivergentBridges++
			continue
		}

		report.TotalBridges++
		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedBridges++
		} else {
			report.DivergentBridges++
		}
	}
	return report, nil
}

func (v *ReplayVerifier) verify(ctx context.Context, series *position.Series, stored *domain.ManagedBridge) (*VerificationResult, error) {
	if stored.Metrics == nil {
		return nil, ErrNotEvaluated
	}

	// 2. Replay on a copy; Recompute updates bridges in place.
	replayed := *stored
	if err := v.manager.Recompute(ctx, series, []*domain.ManagedBridge{&replayed}); err != nil {
		return nil, err
	}
	// Nothing resolved in the window: the stored metrics are only carried over.
	if replayed.NeedsEvaluation {
		return nil, ErrNotEvaluated
	}

	// 3. Compare results
	divergences := CompareMetrics(stored.Metrics, replayed.Metrics)
	if !ComparePredictions(stored.NextPrediction, replayed.NextPrediction) {
		divergences = append(divergences, FieldDivergence{
			Field:    "NextPrediction",
			Expected: predictionString(stored.NextPrediction),
			Actual:   predictionString(replayed.NextPrediction),
		})
	}
	if stored.Pending != replayed.Pending {
		divergences = append(divergences, FieldDivergence{
			Field:    "Pending",
			Expected: stored.Pending,
			Actual:   replayed.Pending,
		})
	}

	result := &VerificationResult{
		BridgeID:      stored.BridgeID,
		Name:          stored.Name,
		Match:         len(divergences) == 0,
		Divergences:   divergences,
		StoredWinRate: stored.Metrics.WinRate,
	}
	if replayed.Metrics != nil {
		result.ReplayedWinRate = replayed.Metrics.WinRate
	}
	return result, nil
}

func predictionString(p *domain.Prediction) string {
	if p == nil {
		return ""
	}
	return p.String()
}
