package contracts

import (
	"errors"
	"fmt"
	"time"
)

// ErrRunInvalid wraps every contract violation; a backtest whose
// correctness cannot be guaranteed must not produce metrics.
var ErrRunInvalid = errors.New("backtest run invalid")

// LookaheadError reports an access to data dated after the decision
// point it was meant to inform.
type LookaheadError struct {
	Symbol      string
	DataDate    time.Time
	DecisionDate time.Time
}

func (e *LookaheadError) Error() string {
	return fmt.Sprintf("lookahead violation: %s data dated %s used for decision on %s",
		e.Symbol, e.DataDate.Format("2006-01-02"), e.DecisionDate.Format("2006-01-02"))
}

func (e *LookaheadError) Unwrap() error { return ErrRunInvalid }

// HoldingPeriodError reports a trade whose holding period falls outside
// [MinHoldingSessions, MaxHoldingSessions] without a stop-loss explanation.
type HoldingPeriodError struct {
	Trade    TradeRecord
	Min, Max int
}

func (e *HoldingPeriodError) Error() string {
	return fmt.Sprintf("holding period violation: %s held %d sessions (%s -> %s), allowed [%d,%d] for exit reason %s",
		e.Trade.Symbol, e.Trade.HoldingSessions,
		e.Trade.EntryDate.Format("2006-01-02"), e.Trade.ExitDate.Format("2006-01-02"),
		e.Min, e.Max, e.Trade.ExitReason)
}

func (e *HoldingPeriodError) Unwrap() error { return ErrRunInvalid }

// Holding-period audit bounds, in trading sessions.
const (
	MinHoldingSessions = 1
	MaxHoldingSessions = 60
)

// WarningCounter tallies non-fatal data-quality events for run metadata.
type WarningCounter struct {
	AnchorClamps      int `json:"anchor_clamps"`
	AnchorDefaults    int `json:"anchor_defaults"`
	StaleCarryForward int `json:"stale_carry_forward"`
	MalformedSignals  int `json:"malformed_signals"`
}

// Total returns the sum of all warning counts.
func (w *WarningCounter) Total() int {
	return w.AnchorClamps + w.AnchorDefaults + w.StaleCarryForward + w.MalformedSignals
}
