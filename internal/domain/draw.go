package domain

import "strings"

// Tier identifies a prize tier within a draw, in announcement order.
type Tier int

const (
	TierSpecial Tier = iota // GDB
	TierFirst               // G1
	TierSecond              // G2
	TierThird               // G3
	TierFourth              // G4
	TierFifth               // G5
	TierSixth               // G6
	TierSeventh             // G7
)

// TierCount is the number of prize tiers in a draw.
const TierCount = 8

// ValueSeparator separates the numbers of a multi-valued tier field.
const ValueSeparator = ","

var tierCodes = [TierCount]string{"GDB", "G1", "G2", "G3", "G4", "G5", "G6", "G7"}

// Code returns the short tier code (GDB, G1 ... G7).
func (t Tier) Code() string {
	if !t.IsValid() {
		return ""
	}
	return tierCodes[t]
}

// IsValid checks if the tier is within range.
func (t Tier) IsValid() bool {
	return t >= TierSpecial && t <= TierSeventh
}

// Draw is one lottery result announcement.
// Corresponds to draws table in PostgreSQL / SQLite.
type Draw struct {
	PeriodID  string            // PRIMARY KEY, e.g. "23-12-2024" or a sequence number
	Seq       int64             // chronological order, assigned on import
	DrawDate  int64             // Unix timestamp in milliseconds, 0 if unknown
	Tiers     [TierCount]string // raw tier fields, multi-valued tiers separated by ","
	CreatedAt int64             // record creation timestamp (ms)
}

// Values returns the trimmed numbers of a tier by position. An empty part
// stays in place as "" so later numbers keep their group.
func (d *Draw) Values(t Tier) []string {
	if d == nil || !t.IsValid() {
		return nil
	}
	raw := d.Tiers[t]
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ValueSeparator)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// IsComplete reports whether the draw carries the special prize and the
// seventh tier, the minimum for a row to take part in a backtest.
func (d *Draw) IsComplete() bool {
	if d == nil {
		return false
	}
	return hasValue(d.Values(TierSpecial)) && hasValue(d.Values(TierSeventh))
}

func hasValue(values []string) bool {
	for _, v := range values {
		if v != "" {
			return true
		}
	}
	return false
}
