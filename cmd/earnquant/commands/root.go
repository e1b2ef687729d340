package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joonho/earnquant/internal/strategyconfig"
	"github.com/joonho/earnquant/pkg/config"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "earnquant",
	Short: "Earnings-signal tier gate and event-driven backtest engine",
	Long: `earnquant - earnings-call signal trading toolkit

Classifies earnings-call signals into conviction tiers, sizes positions,
and replays them through an event-driven portfolio backtest over NYSE
sessions.

Usage:
  go run ./cmd/earnquant [command]

Examples:
  go run ./cmd/earnquant backtest run --from 2019-01-02 --to 2019-12-31 --signals signals.csv --bars bars.csv --market market.csv
  go run ./cmd/earnquant gate --signals signals.csv
  go run ./cmd/earnquant fetch --symbols DAL,UAL --from 2019-01-02 --to 2019-12-31
  go run ./cmd/earnquant api`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML file (default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadStrategy returns the strategy config selected by the --strategy
// flag, then STRATEGY_FILE, then the built-in defaults.
func loadStrategy() (*strategyconfig.Config, error) {
	path := strategyFile
	if path == "" {
		if cfg, err := config.Load(); err == nil {
			if _, statErr := os.Stat(cfg.StrategyFile); statErr == nil {
				path = cfg.StrategyFile
			}
		}
	}
	if path == "" {
		return strategyconfig.Default(), nil
	}

	cfg, _, err := strategyconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load strategy %s: %w", path, err)
	}
	return cfg, nil
}
