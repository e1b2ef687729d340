package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joonho/earnquant/internal/contracts"
	"github.com/joonho/earnquant/internal/strategyconfig"
	"github.com/joonho/earnquant/pkg/logger"
)

// Input is everything a run consumes, pre-fetched and immutable. The
// engine never reaches out for data mid-run.
type Input struct {
	From    time.Time
	To      time.Time
	Bars    []*contracts.Bar
	Market  []*contracts.MarketDay
	Signals []*contracts.Signal
}

// Result is the complete outcome of one run.
type Result struct {
	RunID      string                    `json:"run_id"`
	ConfigHash string                    `json:"config_hash"`
	StartedAt  time.Time                 `json:"started_at"`
	Duration   time.Duration             `json:"duration"`
	From       time.Time                 `json:"from"`
	To         time.Time                 `json:"to"`
	Sessions   int                       `json:"sessions"`
	InitialNAV float64                   `json:"initial_nav"`
	FinalNAV   float64                   `json:"final_nav"`
	Metrics    Metrics                   `json:"metrics"`
	Trades     []contracts.TradeRecord   `json:"trades"`
	NAV        []contracts.NAVPoint      `json:"nav"`
	Warnings   *contracts.WarningCounter `json:"warnings"`
}

// Engine orchestrates a run: builds the session calendar, drives the
// simulator through it in order, audits the ledger, and computes the
// performance metrics. A run either completes the full range or
// returns an error that invalidates it; partial results are never
// reported.
type Engine struct {
	cfg *strategyconfig.Config
	log *logger.Logger

	// OnSession, when set, is called after each completed session with
	// the latest NAV point. Used for progress streaming.
	OnSession func(contracts.NAVPoint)
}

// NewEngine builds an engine over validated strategy config.
func NewEngine(cfg *strategyconfig.Config, log *logger.Logger) *Engine {
	return &Engine{cfg: cfg, log: log}
}

// Run executes one backtest over the input range.
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	if in.To.Before(in.From) {
		return nil, fmt.Errorf("invalid range: %s before %s: %w",
			in.To.Format("2006-01-02"), in.From.Format("2006-01-02"), contracts.ErrRunInvalid)
	}

	configHash, err := strategyconfig.Hash(e.cfg)
	if err != nil {
		return nil, fmt.Errorf("hash config: %w", err)
	}

	started := time.Now()
	runID := uuid.New().String()

	e.log.WithFields(map[string]interface{}{
		"run_id":       runID,
		"from":         in.From.Format("2006-01-02"),
		"to":           in.To.Format("2006-01-02"),
		"signals":      len(in.Signals),
		"initial_cash": e.cfg.Backtest.InitialCash,
	}).Info("Starting backtest run")

	cal := NewCalendar(in.From, in.To)
	sim := NewSimulator(e.cfg, cal, e.log)
	sim.LoadBars(in.Bars)
	sim.LoadMarket(in.Market)
	sim.LoadSignals(in.Signals)

	sessions := cal.Sessions()
	for _, day := range sessions {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run aborted at %s: %w", dateKey(day), contracts.ErrRunInvalid)
		}
		if err := sim.Step(day); err != nil {
			return nil, err
		}
		if e.OnSession != nil {
			nav := sim.NAV()
			e.OnSession(nav[len(nav)-1])
		}
	}

	if len(sessions) > 0 {
		sim.CloseAll(sessions[len(sessions)-1])
	}

	trades := sim.Trades()
	if err := AuditTrades(trades); err != nil {
		return nil, err
	}

	nav := sim.NAV()
	result := &Result{
		RunID:      runID,
		ConfigHash: configHash,
		StartedAt:  started,
		Duration:   time.Since(started),
		From:       in.From,
		To:         in.To,
		Sessions:   len(sessions),
		InitialNAV: e.cfg.Backtest.InitialCash,
		FinalNAV:   sim.Equity(),
		Trades:     trades,
		NAV:        nav,
		Warnings:   sim.Warnings(),
	}
	result.Metrics = ComputeMetrics(nav, trades, e.cfg.Backtest.InitialCash)
	result.Metrics.MarginInterestPaid = sim.MarginInterestPaid()
	result.Metrics.MaxLeverage = sim.MaxLeverage()

	e.log.WithFields(map[string]interface{}{
		"run_id":       runID,
		"sessions":     result.Sessions,
		"trades":       len(trades),
		"final_nav":    fmt.Sprintf("%.2f", result.FinalNAV),
		"total_return": fmt.Sprintf("%.2f%%", result.Metrics.TotalReturn*100),
		"max_drawdown": fmt.Sprintf("%.2f%%", result.Metrics.MaxDrawdown*100),
		"warnings":     result.Warnings.Total(),
		"duration":     time.Since(started).Seconds(),
	}).Info("Backtest run completed")

	return result, nil
}

// RunRecord converts a result into its persistence header.
func (r *Result) RunRecord() *contracts.RunRecord {
	return &contracts.RunRecord{
		ID:           r.RunID,
		StartedAt:    r.StartedAt,
		From:         r.From,
		To:           r.To,
		ConfigHash:   r.ConfigHash,
		InitialCash:  r.InitialNAV,
		FinalNAV:     r.FinalNAV,
		TradeCount:   len(r.Trades),
		WarningCount: r.Warnings.Total(),
	}
}
