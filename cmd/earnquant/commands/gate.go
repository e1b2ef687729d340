package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joonho/earnquant/internal/anchors"
	"github.com/joonho/earnquant/internal/contracts"
	"github.com/joonho/earnquant/internal/marketdata"
	"github.com/joonho/earnquant/internal/sizing"
	"github.com/joonho/earnquant/internal/tiergate"
	"github.com/joonho/earnquant/pkg/config"
	"github.com/joonho/earnquant/pkg/logger"
)

// gateCmd represents the gate command
var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Classify signals through the tier gate",
	Long: `Runs signals from a CSV file through anchor sanitization, the
tier gate, and the position sizer, without any backtest.

Useful for inspecting what the gate would do with a signal batch before
committing to a full run.

Example:
  go run ./cmd/earnquant gate --signals signals.csv
  go run ./cmd/earnquant gate --signals signals.csv --strategy strategy.yaml`,
	RunE: runGate,
}

var gateSignals string

func init() {
	rootCmd.AddCommand(gateCmd)

	gateCmd.Flags().StringVar(&gateSignals, "signals", "", "signals CSV file (required)")
	gateCmd.MarkFlagRequired("signals")
}

func runGate(cmd *cobra.Command, args []string) error {
	strategy, err := loadStrategy()
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	signals, err := marketdata.LoadSignalsCSV(gateSignals)
	if err != nil {
		return fmt.Errorf("load signals: %w", err)
	}

	validator := anchors.NewValidator(anchors.DefaultBounds(), log)
	classifier := tiergate.NewClassifier(strategy.Tiers, strategy.Vetoes)
	sizer := sizing.NewSizer(strategy.Sizing, strategy.Tiers)

	warnings := &contracts.WarningCounter{}
	tradeable := 0

	fmt.Printf("=== Tier Gate: %d signals ===\n\n", len(signals))
	fmt.Printf("%-8s %-12s %-4s %-10s %-6s %-8s %s\n",
		"SYMBOL", "AS OF", "DIR", "TIER", "VETOES", "SIZE", "REASON")
	fmt.Println(separator)

	for _, sig := range signals {
		sanitized := validator.Sanitize(sig.Symbol, sig.Anchors, warnings)
		decision := classifier.Classify(sig, sanitized)

		size := 0.0
		if decision.TradeLong {
			size = sizer.Size(sig, decision, sanitized)
			if size > 0 {
				tradeable++
			}
		}

		fmt.Printf("%-8s %-12s %-4d %-10s %-6d %-8s %s\n",
			sig.Symbol,
			sig.AsOfDate.Format("2006-01-02"),
			sig.DirectionScore,
			decision.Tier,
			decision.SoftVetoCount,
			fmt.Sprintf("%.2f%%", size*100),
			decision.Reason)
	}

	fmt.Println(separator)
	fmt.Printf("\n✅ %d of %d signals sized above zero\n", tradeable, len(signals))
	if warnings.Total() > 0 {
		fmt.Printf("⚠️  %d anchor warnings (%d clamped, %d defaulted)\n",
			warnings.Total(), warnings.AnchorClamps, warnings.AnchorDefaults)
	}
	fmt.Println()

	return nil
}
