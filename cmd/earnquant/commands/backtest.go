package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joonho/earnquant/internal/backtest"
	"github.com/joonho/earnquant/internal/contracts"
	"github.com/joonho/earnquant/internal/marketdata"
	"github.com/joonho/earnquant/pkg/config"
	"github.com/joonho/earnquant/pkg/database"
	"github.com/joonho/earnquant/pkg/logger"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Event-driven portfolio backtesting",
	Long: `Replays earnings signals through the portfolio simulator.

The run verifies:
- Strategy returns
- Risk metrics (Sharpe, Sortino, MDD)
- Win rate and exposure
- Tier and regime contribution

Example:
  go run ./cmd/earnquant backtest run --from 2019-01-02 --to 2019-12-31 --signals signals.csv --bars bars.csv --market market.csv
  go run ./cmd/earnquant backtest run --from 2019-01-02 --to 2019-12-31 --db --save`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a backtest",
		Long: `Runs a backtest over the given date range.

Inputs come either from CSV files (--signals, --bars, --market) or from
Postgres (--db). With --save the run, its trade ledger, and its NAV
series are persisted for later inspection over the API.

Example:
  go run ./cmd/earnquant backtest run --from 2019-01-02 --to 2019-12-31 --signals signals.csv --bars bars.csv --market market.csv
  go run ./cmd/earnquant backtest run --from 2019-01-02 --to 2019-12-31 --db --save`,
		RunE: runBacktest,
	}

	// Flags
	backtestFrom    string
	backtestTo      string
	backtestSignals string
	backtestBars    string
	backtestMarket  string
	backtestUseDB   bool
	backtestSave    bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)

	// Flags
	backtestRunCmd.Flags().StringVar(&backtestFrom, "from", "", "start date (YYYY-MM-DD, required)")
	backtestRunCmd.Flags().StringVar(&backtestTo, "to", "", "end date (YYYY-MM-DD, default: today)")
	backtestRunCmd.Flags().StringVar(&backtestSignals, "signals", "", "signals CSV file")
	backtestRunCmd.Flags().StringVar(&backtestBars, "bars", "", "daily bars CSV file")
	backtestRunCmd.Flags().StringVar(&backtestMarket, "market", "", "market days CSV file (VIX close, SPY return)")
	backtestRunCmd.Flags().BoolVar(&backtestUseDB, "db", false, "load inputs from Postgres instead of CSV")
	backtestRunCmd.Flags().BoolVar(&backtestSave, "save", false, "persist the run to Postgres")

	backtestRunCmd.MarkFlagRequired("from")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	fmt.Println("=== earnquant Backtest Engine ===")

	from, err := time.Parse("2006-01-02", backtestFrom)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}

	to := time.Now()
	if backtestTo != "" {
		to, err = time.Parse("2006-01-02", backtestTo)
		if err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
	}

	strategy, err := loadStrategy()
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	in := backtest.Input{From: from, To: to}
	var runs contracts.RunRepository

	if backtestUseDB {
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		if err := loadInputsFromDB(cmd, db, &in); err != nil {
			return err
		}
		if backtestSave {
			runs = marketdata.NewRunRepository(db.Pool)
		}
	} else {
		if backtestSignals == "" || backtestBars == "" || backtestMarket == "" {
			return fmt.Errorf("either --db or all of --signals, --bars, --market are required")
		}
		if backtestSave {
			return fmt.Errorf("--save requires --db")
		}

		if in.Signals, err = marketdata.LoadSignalsCSV(backtestSignals); err != nil {
			return fmt.Errorf("load signals: %w", err)
		}
		if in.Bars, err = marketdata.LoadBarsCSV(backtestBars); err != nil {
			return fmt.Errorf("load bars: %w", err)
		}
		if in.Market, err = marketdata.LoadMarketCSV(backtestMarket); err != nil {
			return fmt.Errorf("load market days: %w", err)
		}
	}

	fmt.Printf("\n📅 Period: %s ~ %s\n", from.Format("2006-01-02"), to.Format("2006-01-02"))
	fmt.Printf("💰 Initial Cash: $%s\n", formatMoney(strategy.Backtest.InitialCash))
	fmt.Printf("📡 Signals: %d\n\n", len(in.Signals))

	fmt.Println("🚀 Starting backtest...")
	fmt.Println()

	engine := backtest.NewEngine(strategy, log)
	result, err := engine.Run(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	printBacktestResult(result)

	if runs != nil {
		ctx := cmd.Context()
		if err := runs.SaveRun(ctx, result.RunRecord()); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		if err := runs.SaveTrades(ctx, result.RunID, result.Trades); err != nil {
			return fmt.Errorf("save trades: %w", err)
		}
		if err := runs.SaveNAV(ctx, result.RunID, result.NAV); err != nil {
			return fmt.Errorf("save nav: %w", err)
		}
		fmt.Printf("💾 Run saved: %s\n\n", result.RunID)
	}

	return nil
}

func loadInputsFromDB(cmd *cobra.Command, db *database.DB, in *backtest.Input) error {
	ctx := cmd.Context()

	signalRepo := marketdata.NewSignalRepository(db.Pool)
	barRepo := marketdata.NewBarRepository(db.Pool)
	marketRepo := marketdata.NewMarketRepository(db.Pool)

	signals, err := signalRepo.GetByDateRange(ctx, in.From, in.To)
	if err != nil {
		return fmt.Errorf("load signals: %w", err)
	}
	in.Signals = signals

	seen := make(map[string]bool)
	for _, s := range signals {
		if seen[s.Symbol] {
			continue
		}
		seen[s.Symbol] = true

		bars, err := barRepo.GetBySymbolAndRange(ctx, s.Symbol, in.From, in.To)
		if err != nil {
			return fmt.Errorf("load bars for %s: %w", s.Symbol, err)
		}
		in.Bars = append(in.Bars, bars...)
	}

	market, err := marketRepo.GetRange(ctx, in.From, in.To)
	if err != nil {
		return fmt.Errorf("load market days: %w", err)
	}
	in.Market = market

	return nil
}

func printBacktestResult(result *backtest.Result) {
	m := result.Metrics

	fmt.Println("\n✅ Backtest Completed")
	fmt.Println(separator)
	fmt.Println()

	// Summary
	fmt.Println("📊 Summary")
	fmt.Printf("Period: %s ~ %s (%d sessions)\n",
		result.From.Format("2006-01-02"),
		result.To.Format("2006-01-02"),
		result.Sessions)
	fmt.Printf("Config: %s\n", result.ConfigHash[:12])
	fmt.Printf("Duration: %.2f seconds\n", result.Duration.Seconds())
	fmt.Println()

	// Performance
	fmt.Println("💰 Performance")
	fmt.Printf("Initial NAV: $%s\n", formatMoney(result.InitialNAV))
	fmt.Printf("Final NAV:   $%s\n", formatMoney(result.FinalNAV))
	fmt.Printf("P&L:         $%s (%+.2f%%)\n",
		formatMoney(result.FinalNAV-result.InitialNAV),
		m.TotalReturn*100)
	fmt.Println()

	fmt.Printf("Annual Return:   %+.2f%%\n", m.AnnualizedReturn*100)
	fmt.Printf("CAGR:            %+.2f%%\n", m.CAGR*100)
	fmt.Printf("Volatility:      %.2f%%\n", m.Volatility*100)
	fmt.Println()

	// Risk Metrics
	fmt.Println("📉 Risk Metrics")
	fmt.Printf("Sharpe Ratio:    %.2f", m.SharpeRatio)
	if m.SharpeRatio > 2.0 {
		fmt.Print(" ✅")
	} else if m.SharpeRatio < 1.0 {
		fmt.Print(" ❌")
	}
	fmt.Println()
	fmt.Printf("Sortino Ratio:   %.2f\n", m.SortinoRatio)
	fmt.Printf("Max Drawdown:    %.2f%%\n", m.MaxDrawdown*100)
	fmt.Printf("Max Leverage:    %.2fx\n", m.MaxLeverage)
	fmt.Printf("Margin Interest: $%s\n", formatMoney(m.MarginInterestPaid))
	fmt.Println()

	// Trading Metrics
	fmt.Println("💹 Trading Metrics")
	fmt.Printf("Total Trades:    %d\n", m.TotalTrades)
	fmt.Printf("Winning Trades:  %d (%.1f%%)\n", m.WinningTrades, m.WinRate*100)
	fmt.Printf("Losing Trades:   %d\n", m.LosingTrades)
	fmt.Println()

	if len(m.TradesByTier) > 0 {
		fmt.Println("Trades by tier:")
		for _, tier := range contracts.AllTiers {
			if n := m.TradesByTier[tier]; n > 0 {
				fmt.Printf("  %-10s %d\n", tier, n)
			}
		}
		fmt.Println()
	}

	if result.Warnings.Total() > 0 {
		fmt.Printf("⚠️  Warnings: %d\n\n", result.Warnings.Total())
	}
}
