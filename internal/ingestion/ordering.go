package ingestion

import (
	"errors"
	"sort"

	"lottery-bridge-lab/internal/domain"
)

// ErrInvalidOrdering is returned when draws are not in chronological order.
var ErrInvalidOrdering = errors.New("draws are not in chronological order")

// SortDraws orders draws by draw date ASC. Draws without a date keep their
// position relative to each other, so an undated source stays in file order.
func SortDraws(draws []*domain.Draw) {
	sort.SliceStable(draws, func(i, j int) bool {
		return compareDraws(draws[i], draws[j]) < 0
	})
}

// ValidateDrawOrdering checks that dated draws never go back in time and
// that no period appears twice. Returns ErrInvalidOrdering if not.
func ValidateDrawOrdering(draws []*domain.Draw) error {
	seen := make(map[string]struct{}, len(draws))
	for i, d := range draws {
		if _, dup := seen[d.PeriodID]; dup {
			return ErrInvalidOrdering
		}
		seen[d.PeriodID] = struct{}{}
		if i > 0 && compareDraws(draws[i-1], d) > 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// AssignSeq numbers draws consecutively after last.
func AssignSeq(draws []*domain.Draw, last int64) {
	for i, d := range draws {
		d.Seq = last + int64(i) + 1
	}
}

// compareDraws returns:
//   - negative if a is earlier than b
//   - zero if the order is unknown or equal
//   - positive if a is later than b
//
// Only two dated draws are comparable.
func compareDraws(a, b *domain.Draw) int {
	if a.DrawDate == 0 || b.DrawDate == 0 {
		return 0
	}
	switch {
	case a.DrawDate < b.DrawDate:
		return -1
	case a.DrawDate > b.DrawDate:
		return 1
	default:
		return 0
	}
}
