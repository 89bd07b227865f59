package domain

// DayStatus is the outcome of one backtest step.
type DayStatus string

const (
	DayWinN1   DayStatus = "WIN_N1"  // hit on the first draw of a frame
	DayWinN2   DayStatus = "WIN_N2"  // hit on the confirmation draw
	DayOpen    DayStatus = "OPEN"    // miss on N1, frame awaiting confirmation
	DayLoss    DayStatus = "LOSS"    // miss on N2 (K2N) or miss (N1 mode)
	DaySkipped DayStatus = "SKIPPED" // structurally invalid row, not counted
	DayPending DayStatus = "PENDING" // final row: prediction for the next draw
)

// IsResolved reports whether the step resolved a frame.
func (s DayStatus) IsResolved() bool {
	return s == DayWinN1 || s == DayWinN2 || s == DayLoss
}

// IsWin reports whether the step is a win.
func (s DayStatus) IsWin() bool {
	return s == DayWinN1 || s == DayWinN2
}

// NextPhase tags the final prediction of a backtest.
type NextPhase string

const (
	PhaseNewFrame   NextPhase = "NEW_FRAME"
	PhaseAwaitingN2 NextPhase = "AWAITING_N2"
)

// BacktestRecord is one audit row of a backtest history.
// Corresponds to backtest_history table in ClickHouse.
type BacktestRecord struct {
	RunID      string
	BridgeID   string
	Day        int    // index into the replayed history
	PeriodID   string // period of the draw being checked
	Prediction string // Prediction.String()
	Status     DayStatus
	Streak     int // current win streak after this step
	Note       string
}
