package contracts

import (
	"fmt"
	"time"
)

// PositionKey scopes open-position uniqueness to (symbol, quarter).
// A symbol closed in Q1 may be re-entered in Q3 of the same year.
type PositionKey struct {
	Symbol  string
	Year    int
	Quarter int
}

func (k PositionKey) String() string {
	return fmt.Sprintf("%s:%dQ%d", k.Symbol, k.Year, k.Quarter)
}

// Position is a live holding, lifecycle-owned by the simulator.
type Position struct {
	Symbol  string `json:"symbol"`
	Year    int    `json:"year"`
	Quarter int    `json:"quarter"`
	Tier    Tier   `json:"tier"`

	EntryDate  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"`
	Shares     float64   `json:"shares"`

	// OriginalShares is the entry fill before add-ons; add-on size is
	// computed from it, not from the grown position.
	OriginalShares float64 `json:"original_shares"`

	MaxPriceSinceEntry float64 `json:"max_price_since_entry"`
	EverReachedTrigger bool    `json:"ever_reached_trigger"`
	AddOnCount         int     `json:"add_on_count"`
	StopLossPrice      float64 `json:"stop_loss_price"`

	LastPrice       float64 `json:"last_price"`
	HoldingSessions int     `json:"holding_sessions"`
	StaleSessions   int     `json:"stale_sessions"` // sessions priced by carry-forward
	EntryRegime     Regime  `json:"entry_regime"`
}

// Key returns the map key for this position.
func (p *Position) Key() PositionKey {
	return PositionKey{Symbol: p.Symbol, Year: p.Year, Quarter: p.Quarter}
}

// MarketValue returns the position's current notional at the last mark.
func (p *Position) MarketValue() float64 {
	return p.Shares * p.LastPrice
}

// UnrealizedReturn is the fractional return against the entry price.
func (p *Position) UnrealizedReturn() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return p.LastPrice/p.EntryPrice - 1
}

// ExitReason tags why a position was closed.
type ExitReason string

const (
	ExitScheduled ExitReason = "Scheduled"
	ExitStopLoss  ExitReason = "StopLoss"
	// ExitEndOfRun marks the forced liquidation at the end of the
	// simulated range; it is excluded from the holding-period audit.
	ExitEndOfRun ExitReason = "EndOfRun"
)

// TradeRecord is one closed trade, append-only.
type TradeRecord struct {
	Symbol          string     `json:"symbol"`
	Tier            Tier       `json:"tier"`
	Year            int        `json:"year"`
	Quarter         int        `json:"quarter"`
	EntryDate       time.Time  `json:"entry_date"`
	ExitDate        time.Time  `json:"exit_date"`
	EntryPrice      float64    `json:"entry_price"`
	ExitPrice       float64    `json:"exit_price"`
	Shares          float64    `json:"shares"`
	HoldingSessions int        `json:"holding_sessions"`
	ReturnPct       float64    `json:"return_pct"`
	AddOnCount      int        `json:"add_on_count"`
	ExitReason      ExitReason `json:"exit_reason"`
	EntryRegime     Regime     `json:"entry_regime"`
}

// Regime is the market-wide risk state derived daily from VIX.
type Regime string

const (
	RegimeNormal  Regime = "Normal"
	RegimeRiskOff Regime = "RiskOff"
	RegimeStress  Regime = "Stress"
)

// NAVPoint is one row of the NAV series, one per session.
type NAVPoint struct {
	Date          time.Time `json:"date"`
	NAV           float64   `json:"nav"`
	Cash          float64   `json:"cash"`
	GrossExposure float64   `json:"gross_exposure"` // sum notional / equity
	Regime        Regime    `json:"regime"`
	OpenPositions int       `json:"open_positions"`
}
