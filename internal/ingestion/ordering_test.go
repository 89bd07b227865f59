package ingestion

import (
	"errors"
	"testing"

	"lottery-bridge-lab/internal/domain"
)

func TestSortDraws(t *testing.T) {
	// Intentionally unordered draws
	draws := []*domain.Draw{
		{PeriodID: "c", DrawDate: 300},
		{PeriodID: "a", DrawDate: 100},
		{PeriodID: "b", DrawDate: 200},
	}

	SortDraws(draws)

	for i, want := range []string{"a", "b", "c"} {
		if draws[i].PeriodID != want {
			t.Errorf("Index %d: got %s, want %s", i, draws[i].PeriodID, want)
		}
	}
	if err := ValidateDrawOrdering(draws); err != nil {
		t.Errorf("sorted draws should validate: %v", err)
	}
}

func TestSortDraws_UndatedKeepOrder(t *testing.T) {
	draws := []*domain.Draw{{PeriodID: "x"}, {PeriodID: "y"}, {PeriodID: "z"}}
	SortDraws(draws)
	if draws[0].PeriodID != "x" || draws[2].PeriodID != "z" {
		t.Error("undated draws should keep input order")
	}
}

func TestSortDraws_Empty(t *testing.T) {
	var draws []*domain.Draw
	SortDraws(draws) // Should not panic
}

func TestValidateDrawOrdering(t *testing.T) {
	tests := []struct {
		name  string
		draws []*domain.Draw
		ok    bool
	}{
		{"ordered", []*domain.Draw{{PeriodID: "a", DrawDate: 1}, {PeriodID: "b", DrawDate: 2}}, true},
		{"same day", []*domain.Draw{{PeriodID: "a", DrawDate: 1}, {PeriodID: "b", DrawDate: 1}}, true},
		{"backwards", []*domain.Draw{{PeriodID: "a", DrawDate: 2}, {PeriodID: "b", DrawDate: 1}}, false},
		{"repeated period", []*domain.Draw{{PeriodID: "a"}, {PeriodID: "a"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDrawOrdering(tt.draws)
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidOrdering) {
				t.Errorf("expected ErrInvalidOrdering, got %v", err)
			}
		})
	}
}

func TestAssignSeq(t *testing.T) {
	draws := []*domain.Draw{{PeriodID: "a"}, {PeriodID: "b"}}
	AssignSeq(draws, 41)
	if draws[0].Seq != 42 || draws[1].Seq != 43 {
		t.Errorf("expected 42, 43, got %d, %d", draws[0].Seq, draws[1].Seq)
	}
}
