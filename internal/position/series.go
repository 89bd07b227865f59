package position

import "lottery-bridge-lab/internal/domain"

// Series is a chronologically ordered history with every derived view
// computed once. A Series is never mutated after construction and is safe
// for concurrent readers.
type Series struct {
	draws    []domain.Draw
	vectors  []Vector
	memory   []MemoryLotos
	outcomes []domain.Outcome
	complete []bool
}

// NewSeries precomputes vectors, memory lotos and outcomes for draws.
// The draws slice is copied.
func NewSeries(draws []domain.Draw) *Series {
	s := &Series{
		draws:    make([]domain.Draw, len(draws)),
		vectors:  make([]Vector, len(draws)),
		memory:   make([]MemoryLotos, len(draws)),
		outcomes: make([]domain.Outcome, len(draws)),
		complete: make([]bool, len(draws)),
	}
	copy(s.draws, draws)
	for i := range s.draws {
		d := &s.draws[i]
		s.vectors[i] = Extract(d)
		s.memory[i] = Memory(&s.vectors[i])
		s.outcomes[i] = Outcome(d)
		s.complete[i] = d.IsComplete()
	}
	return s
}

// Len returns the number of draws.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.draws)
}

// Draw returns draw i.
func (s *Series) Draw(i int) *domain.Draw {
	return &s.draws[i]
}

// Vector returns the position vector of draw i. Callers must not modify it.
func (s *Series) Vector(i int) *Vector {
	return &s.vectors[i]
}

// Digit returns slot pos of draw i.
func (s *Series) Digit(i, pos int) (int, bool) {
	if i < 0 || i >= len(s.vectors) {
		return 0, false
	}
	return s.vectors[i].Digit(pos)
}

// Memory returns memory loto idx of draw i.
func (s *Series) Memory(i, idx int) (int, bool) {
	if i < 0 || i >= len(s.memory) {
		return 0, false
	}
	return s.memory[i].Value(idx)
}

// Outcome returns the outcome of draw i.
func (s *Series) Outcome(i int) domain.Outcome {
	return s.outcomes[i]
}

// Complete reports whether draw i has the fields needed to take part in a
// backtest.
func (s *Series) Complete(i int) bool {
	return s.complete[i]
}

// PeriodID returns the period of draw i.
func (s *Series) PeriodID(i int) string {
	return s.draws[i].PeriodID
}

// Slice returns the draws in [from, to) as a Series sharing storage.
func (s *Series) Slice(from, to int) *Series {
	if from < 0 {
		from = 0
	}
	if to > s.Len() {
		to = s.Len()
	}
	if from > to {
		from = to
	}
	return &Series{
		draws:    s.draws[from:to:to],
		vectors:  s.vectors[from:to:to],
		memory:   s.memory[from:to:to],
		outcomes: s.outcomes[from:to:to],
		complete: s.complete[from:to:to],
	}
}

// Tail returns the last n draws, or all of them when n <= 0 or n > Len.
func (s *Series) Tail(n int) *Series {
	if n <= 0 || n >= s.Len() {
		return s
	}
	return s.Slice(s.Len()-n, s.Len())
}

// Draws returns a copy of the underlying draws.
func (s *Series) Draws() []domain.Draw {
	out := make([]domain.Draw, len(s.draws))
	copy(out, s.draws)
	return out
}
