package contracts

import (
	"context"
	"time"
)

// Repository interfaces are defined here only; implementations live in
// internal/marketdata.

// Bar is one daily OHLC bar for a symbol.
type Bar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// MarketDay is one session of market-wide context: the VIX close used
// for regime detection and the SPY daily return used by the breaker.
type MarketDay struct {
	Date      time.Time `json:"date"`
	VIXClose  float64   `json:"vix_close"`
	SPYReturn float64   `json:"spy_return"`
}

// BarRepository manages per-symbol daily bars.
type BarRepository interface {
	GetBySymbolAndRange(ctx context.Context, symbol string, from, to time.Time) ([]*Bar, error)
	GetLatestDate(ctx context.Context, symbol string) (time.Time, error)
	SaveBatch(ctx context.Context, bars []*Bar) error
}

// MarketRepository manages the market-wide VIX/SPY series.
type MarketRepository interface {
	GetRange(ctx context.Context, from, to time.Time) ([]*MarketDay, error)
	SaveBatch(ctx context.Context, days []*MarketDay) error
}

// SignalRepository manages earnings signals.
type SignalRepository interface {
	GetByDateRange(ctx context.Context, from, to time.Time) ([]*Signal, error)
	Save(ctx context.Context, signal *Signal) error
	SaveBatch(ctx context.Context, signals []*Signal) error
}

// RunRepository persists completed backtest runs for later inspection.
type RunRepository interface {
	SaveRun(ctx context.Context, run *RunRecord) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	SaveTrades(ctx context.Context, runID string, trades []TradeRecord) error
	GetTrades(ctx context.Context, runID string) ([]TradeRecord, error)
	SaveNAV(ctx context.Context, runID string, nav []NAVPoint) error
	GetNAV(ctx context.Context, runID string) ([]NAVPoint, error)
}

// RunRecord is the persisted header of one backtest run.
type RunRecord struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	ConfigHash   string    `json:"config_hash"`
	InitialCash  float64   `json:"initial_cash"`
	FinalNAV     float64   `json:"final_nav"`
	TradeCount   int       `json:"trade_count"`
	WarningCount int       `json:"warning_count"`
}
