package contracts

import (
	"errors"
	"testing"
)

func TestPosition_MarketValue(t *testing.T) {
	p := &Position{Shares: 100, LastPrice: 85.5}
	if got := p.MarketValue(); got != 8550 {
		t.Errorf("MarketValue() = %v, want 8550", got)
	}
}

func TestPosition_UnrealizedReturn(t *testing.T) {
	tests := []struct {
		name       string
		entryPrice float64
		lastPrice  float64
		want       float64
	}{
		{"up 10pct", 100, 110, 0.10},
		{"down 15pct", 100, 85, -0.15},
		{"flat", 50, 50, 0},
		{"zero entry guards div", 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Position{EntryPrice: tt.entryPrice, LastPrice: tt.lastPrice}
			got := p.UnrealizedReturn()
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("UnrealizedReturn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHoldingPeriodError_Unwrap(t *testing.T) {
	err := &HoldingPeriodError{
		Trade: TradeRecord{
			Symbol:          "UAL",
			EntryDate:       date("2019-01-17"),
			ExitDate:        date("2020-10-29"),
			HoldingSessions: 452,
			ExitReason:      ExitScheduled,
		},
		Min: MinHoldingSessions,
		Max: MaxHoldingSessions,
	}

	if !errors.Is(err, ErrRunInvalid) {
		t.Error("expected HoldingPeriodError to wrap ErrRunInvalid")
	}
}

func TestLookaheadError_Unwrap(t *testing.T) {
	err := &LookaheadError{
		Symbol:       "NVDA",
		DataDate:     date("2019-02-20"),
		DecisionDate: date("2019-02-15"),
	}

	if !errors.Is(err, ErrRunInvalid) {
		t.Error("expected LookaheadError to wrap ErrRunInvalid")
	}
}

func TestWarningCounter_Total(t *testing.T) {
	w := &WarningCounter{
		AnchorClamps:      2,
		AnchorDefaults:    1,
		StaleCarryForward: 3,
	}
	if w.Total() != 6 {
		t.Errorf("Total() = %d, want 6", w.Total())
	}
}
