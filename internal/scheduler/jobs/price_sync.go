package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/joonho/earnquant/internal/contracts"
	"github.com/joonho/earnquant/internal/external/fmp"
	"github.com/joonho/earnquant/pkg/logger"
)

// PriceSyncJob refreshes daily bars for every symbol with a recent
// signal, plus the VIX/SPY market series, after the US close.
type PriceSyncJob struct {
	fmp     *fmp.Client
	bars    contracts.BarRepository
	market  contracts.MarketRepository
	signals contracts.SignalRepository
	logger  *logger.Logger
}

// NewPriceSyncJob creates a new price sync job.
func NewPriceSyncJob(
	client *fmp.Client,
	bars contracts.BarRepository,
	market contracts.MarketRepository,
	signals contracts.SignalRepository,
	log *logger.Logger,
) *PriceSyncJob {
	return &PriceSyncJob{
		fmp:     client,
		bars:    bars,
		market:  market,
		signals: signals,
		logger:  log,
	}
}

// Name returns the job name.
func (j *PriceSyncJob) Name() string {
	return "price_sync"
}

// Schedule runs weekdays at 5:30 PM ET, after the close settles.
func (j *PriceSyncJob) Schedule() string {
	return "0 30 17 * * 1-5"
}

// Run fetches and stores the last week of bars plus market context.
func (j *PriceSyncJob) Run(ctx context.Context) error {
	to := time.Now()
	from := to.AddDate(0, 0, -7)

	symbols, err := j.trackedSymbols(ctx, to)
	if err != nil {
		return fmt.Errorf("resolve tracked symbols: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"from":    from.Format("2006-01-02"),
		"to":      to.Format("2006-01-02"),
	}).Info("Starting price sync")

	for _, symbol := range symbols {
		bars, err := j.fmp.GetDailyBars(ctx, symbol, from, to)
		if err != nil {
			return fmt.Errorf("fetch bars for %s: %w", symbol, err)
		}
		if err := j.bars.SaveBatch(ctx, bars); err != nil {
			return fmt.Errorf("save bars for %s: %w", symbol, err)
		}
	}

	days, err := j.fmp.GetMarketDays(ctx, from, to)
	if err != nil {
		return fmt.Errorf("fetch market days: %w", err)
	}
	if err := j.market.SaveBatch(ctx, days); err != nil {
		return fmt.Errorf("save market days: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"symbols":     len(symbols),
		"market_days": len(days),
	}).Info("Price sync completed")

	return nil
}

// trackedSymbols collects the distinct symbols with a signal in the
// last two quarters.
func (j *PriceSyncJob) trackedSymbols(ctx context.Context, now time.Time) ([]string, error) {
	signals, err := j.signals.GetByDateRange(ctx, now.AddDate(0, -6, 0), now)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var symbols []string
	for _, s := range signals {
		if !seen[s.Symbol] {
			seen[s.Symbol] = true
			symbols = append(symbols, s.Symbol)
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}
