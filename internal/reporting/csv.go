package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"lottery-bridge-lab/internal/domain"
)

// WriteHistoryCSV writes a backtest history as CSV.
func WriteHistoryCSV(w io.Writer, records []domain.BacktestRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"day", "period_id", "prediction", "status", "streak", "note"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		err := cw.Write([]string{
			strconv.Itoa(r.Day),
			r.PeriodID,
			r.Prediction,
			string(r.Status),
			strconv.Itoa(r.Streak),
			r.Note,
		})
		if err != nil {
			return fmt.Errorf("write row %d: %w", r.Day, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCandidatesCSV writes ranked scan candidates as CSV.
func WriteCandidatesCSV(w io.Writer, cands []domain.Candidate) error {
	cw := csv.NewWriter(w)
	header := []string{
		"rank", "name", "kind", "description", "streak", "recent_wins",
		"max_losing_streak", "short_rate", "frame_rate", "next", "score", "audit",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, c := range cands {
		frame := strconv.FormatFloat(c.FrameRate, 'f', 2, 64)
		if c.RatesMissing {
			frame = ""
		}
		err := cw.Write([]string{
			strconv.Itoa(i + 1),
			c.Name,
			string(c.Spec.Kind),
			c.Description,
			strconv.Itoa(c.Streak),
			strconv.Itoa(c.RecentWins),
			strconv.Itoa(c.MaxLosingStreak),
			strconv.FormatFloat(c.ShortRate, 'f', 2, 64),
			frame,
			c.Next.String(),
			strconv.FormatFloat(c.Score, 'f', 4, 64),
			strconv.FormatBool(c.Audit),
		})
		if err != nil {
			return fmt.Errorf("write candidate %s: %w", c.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePairsCSV writes scored Lô pairs as CSV.
func WritePairsCSV(w io.Writer, pairs []domain.ScoredPair) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"rank", "pair", "score", "sources", "confidence", "gan_days", "recommendation"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, p := range pairs {
		err := cw.Write([]string{
			strconv.Itoa(i + 1),
			p.Pair,
			strconv.FormatFloat(p.Score, 'f', 4, 64),
			strconv.Itoa(p.Sources),
			strconv.FormatFloat(p.Confidence, 'f', 4, 64),
			strconv.Itoa(p.GanDays),
			string(p.Recommendation),
		})
		if err != nil {
			return fmt.Errorf("write pair %s: %w", p.Pair, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
