package domain

// Candidate is a bridge surfaced by a scan, awaiting approval.
// Never persisted by the scanner itself.
type Candidate struct {
	Spec           BridgeSpec
	Name           string
	NormalizedName string
	Description    string

	Streak          int
	RecentWins      int
	MaxLosingStreak int

	ShortRate    float64 // N1 win rate over the scan window (%)
	FrameRate    float64 // K2N frame win rate over the full history (%)
	RatesMissing bool    // neither computed nor found in the rates cache

	Next  Prediction
	Score float64 // ranking score within a scan
	Audit bool    // audit-only kind, never promotable
}

// TouchCombo is one touch combination evaluated by the "thông" search.
type TouchCombo struct {
	Touches        []int
	Window         int
	Hits           int
	MaxConsecutive int
	ConsecutiveEnd int  // run of hits ending at the most recent draw
	Thong          bool // ConsecutiveEnd >= configured minimum
	RatePercent    float64
}

// ScanSnapshot is one candidate as recorded by a scan run.
// Corresponds to scan_results table in ClickHouse.
type ScanSnapshot struct {
	RunID     string
	Rank      int   // position in the ranked scan output, 0-based
	ScannedAt int64 // ms
	Candidate Candidate
}
