package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"lottery-bridge-lab/internal/domain"
)

// CSV errors
var (
	ErrMissingColumn = errors.New("missing column")
	ErrBadDate       = errors.New("unparseable date")
)

// dateLayouts are the accepted draw date formats, tried in order.
var dateLayouts = []string{"2006-01-02", "02-01-2006", "02/01/2006", "2006/01/02"}

// CSVSource reads draws from CSV with the columns
// period,[date,]gdb,g1,g2,g3,g4,g5,g6,g7.
// A header row is optional; with a header, columns may appear in any order.
// Multi-valued tiers are quoted and comma-separated.
type CSVSource struct {
	r io.Reader
}

// NewCSVSource creates a CSV draw source.
func NewCSVSource(r io.Reader) *CSVSource {
	return &CSVSource{r: r}
}

// Fetch implements DrawSource.
func (s *CSVSource) Fetch(ctx context.Context) ([]*domain.Draw, error) {
	cr := csv.NewReader(s.r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		draws []*domain.Draw
		cols  columns
		line  int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line++

		if line == 1 {
			if h, ok := parseHeader(rec); ok {
				cols = h
				continue
			}
			cols = positional(len(rec))
		}

		d, err := cols.draw(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		draws = append(draws, d)
	}
	return draws, nil
}

// columns maps fields to record indexes; -1 marks an absent column.
type columns struct {
	period int
	date   int
	tiers  [domain.TierCount]int
}

func positional(n int) columns {
	c := columns{period: 0, date: -1}
	first := 1
	if n > domain.TierCount+1 {
		c.date = 1
		first = 2
	}
	for t := range c.tiers {
		c.tiers[t] = first + t
	}
	return c
}

func parseHeader(rec []string) (columns, bool) {
	c := columns{period: -1, date: -1}
	for t := range c.tiers {
		c.tiers[t] = -1
	}
	for i, name := range rec {
		name = strings.ToUpper(strings.TrimSpace(name))
		switch name {
		case "PERIOD", "PERIOD_ID", "KY":
			c.period = i
		case "DATE", "DRAW_DATE", "NGAY":
			c.date = i
		default:
			for t := domain.TierSpecial; t <= domain.TierSeventh; t++ {
				if name == t.Code() {
					c.tiers[t] = i
				}
			}
		}
	}
	return c, c.period >= 0
}

func (c columns) draw(rec []string) (*domain.Draw, error) {
	field := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	d := &domain.Draw{PeriodID: field(c.period)}
	if d.PeriodID == "" {
		return nil, fmt.Errorf("period: %w", ErrMissingColumn)
	}
	for t := range c.tiers {
		if c.tiers[t] >= len(rec) {
			return nil, fmt.Errorf("%s: %w", domain.Tier(t).Code(), ErrMissingColumn)
		}
		d.Tiers[t] = normalizeTier(field(c.tiers[t]))
	}

	raw := field(c.date)
	if raw == "" {
		// Periods are often the draw date itself.
		if ms, err := parseDate(d.PeriodID); err == nil {
			d.DrawDate = ms
		}
		return d, nil
	}
	ms, err := parseDate(raw)
	if err != nil {
		return nil, err
	}
	d.DrawDate = ms
	return d, nil
}

// normalizeTier accepts "-", ";" and whitespace as value separators.
// A run of whitespace counts as one separator; an empty field between
// explicit separators is kept so later numbers stay in their group.
func normalizeTier(s string) string {
	s = strings.NewReplacer(";", ",", "-", ",").Replace(strings.TrimSpace(s))
	parts := strings.Split(s, domain.ValueSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		fields := strings.Fields(p)
		if len(fields) == 0 {
			out = append(out, "")
			continue
		}
		out = append(out, fields...)
	}
	return strings.Join(out, domain.ValueSeparator)
}

// parseDate returns the date as Unix milliseconds at midnight UTC.
func parseDate(s string) (int64, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrBadDate)
}
