package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joonho/earnquant/internal/external/fmp"
	"github.com/joonho/earnquant/internal/marketdata"
	"github.com/joonho/earnquant/pkg/config"
	"github.com/joonho/earnquant/pkg/database"
	"github.com/joonho/earnquant/pkg/httputil"
	"github.com/joonho/earnquant/pkg/logger"
	"github.com/joonho/earnquant/pkg/redis"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Backfill daily bars and market days from FMP",
	Long: `Fetches daily OHLC bars for the given symbols and the VIX/SPY
market series from Financial Modeling Prep, and stores them in Postgres.

Requires FMP_API_KEY and a reachable database. Responses are cached in
Redis when it is enabled.

Example:
  go run ./cmd/earnquant fetch --symbols DAL,UAL,AAL --from 2019-01-02 --to 2019-12-31`,
	RunE: runFetch,
}

var (
	fetchSymbols string
	fetchFrom    string
	fetchTo      string
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchSymbols, "symbols", "", "comma-separated symbols (required)")
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "start date (YYYY-MM-DD, required)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "end date (YYYY-MM-DD, default: today)")
	fetchCmd.MarkFlagRequired("symbols")
	fetchCmd.MarkFlagRequired("from")
}

func runFetch(cmd *cobra.Command, args []string) error {
	fmt.Println("=== earnquant Data Fetcher ===")

	from, err := time.Parse("2006-01-02", fetchFrom)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}

	to := time.Now()
	if fetchTo != "" {
		to, err = time.Parse("2006-01-02", fetchTo)
		if err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
	}

	symbols := strings.Split(fetchSymbols, ",")
	for i := range symbols {
		symbols[i] = strings.ToUpper(strings.TrimSpace(symbols[i]))
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.FMP.APIKey == "" {
		return fmt.Errorf("FMP_API_KEY is not set")
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	// Shared API key: the Redis window coordinates across processes, the
	// client-side limiter inside fmp.Client paces this one.
	httpClient := httputil.New(cfg, log).WithRateLimiter(
		redis.NewRateLimiter(redisClient, "earnquant"),
		redis.RateLimitConfig{Key: "fmp", Limit: int(cfg.FMP.RatePerSecond * 60), Window: time.Minute},
	)
	client := fmp.NewClient(cfg, httpClient, redis.NewCache(redisClient, "earnquant"), log)

	barRepo := marketdata.NewBarRepository(db.Pool)
	marketRepo := marketdata.NewMarketRepository(db.Pool)

	ctx := cmd.Context()

	fmt.Printf("\n📅 Period: %s ~ %s\n", from.Format("2006-01-02"), to.Format("2006-01-02"))
	fmt.Printf("📡 Symbols: %s\n\n", strings.Join(symbols, ", "))

	for i, symbol := range symbols {
		bars, err := client.GetDailyBars(ctx, symbol, from, to)
		if err != nil {
			return fmt.Errorf("fetch bars for %s: %w", symbol, err)
		}
		if err := barRepo.SaveBatch(ctx, bars); err != nil {
			return fmt.Errorf("save bars for %s: %w", symbol, err)
		}
		fmt.Printf("[fetch] %s: %d bars [%d/%d]\n", symbol, len(bars), i+1, len(symbols))
	}

	days, err := client.GetMarketDays(ctx, from, to)
	if err != nil {
		return fmt.Errorf("fetch market days: %w", err)
	}
	if err := marketRepo.SaveBatch(ctx, days); err != nil {
		return fmt.Errorf("save market days: %w", err)
	}
	fmt.Printf("[fetch] market: %d days\n", len(days))

	fmt.Println("\n✅ Fetch completed")
	return nil
}
