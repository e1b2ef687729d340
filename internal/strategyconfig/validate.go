package strategyconfig

import (
	"fmt"

	"github.com/joonho/earnquant/internal/contracts"
)

// ValidationError is a fatal configuration error. Startup stops on the
// first one: a backtest must not run against a malformed threshold table.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning is a recommended-constraint violation, logged but not fatal.
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints.
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Anchors ===
	a := cfg.Anchors
	if a.EPSSurpriseMin >= a.EPSSurpriseMax {
		return ValidationError{"anchors", "eps_surprise_min must be < eps_surprise_max"}
	}
	if a.DayReturnMin >= a.DayReturnMax {
		return ValidationError{"anchors", "day_return_min must be < day_return_max"}
	}
	if a.Pre5DMin >= a.Pre5DMax {
		return ValidationError{"anchors", "pre_5d_min must be < pre_5d_max"}
	}
	if a.VolatilityMin >= a.VolatilityMax {
		return ValidationError{"anchors", "volatility_min must be < volatility_max"}
	}
	if a.VolatilityDefault < a.VolatilityMin || a.VolatilityDefault > a.VolatilityMax {
		return ValidationError{"anchors.volatility_default", "must lie inside [volatility_min, volatility_max]"}
	}

	// === Tiers ===
	if err := validateTierCaps("tiers.d8", cfg.Tiers.D8.MinPositionPct, cfg.Tiers.D8.MaxPositionPct, cfg.Tiers.D8.KellyMultiplier); err != nil {
		return err
	}
	if err := validateTierCaps("tiers.d7", cfg.Tiers.D7.MinPositionPct, cfg.Tiers.D7.MaxPositionPct, cfg.Tiers.D7.KellyMultiplier); err != nil {
		return err
	}
	if err := validateTierCaps("tiers.d6", cfg.Tiers.D6.MinPositionPct, cfg.Tiers.D6.MaxPositionPct, cfg.Tiers.D6.KellyMultiplier); err != nil {
		return err
	}
	if err := validateTierCaps("tiers.d5", cfg.Tiers.D5.MinPositionPct, cfg.Tiers.D5.MaxPositionPct, cfg.Tiers.D5.KellyMultiplier); err != nil {
		return err
	}
	if err := validateTierCaps("tiers.d4", cfg.Tiers.D4.MinPositionPct, cfg.Tiers.D4.MaxPositionPct, cfg.Tiers.D4.KellyMultiplier); err != nil {
		return err
	}

	if err := validateDirection("tiers.d8.min_direction", cfg.Tiers.D8.MinDirection); err != nil {
		return err
	}
	if err := validateDirection("tiers.d7.min_direction", cfg.Tiers.D7.MinDirection); err != nil {
		return err
	}
	if err := validateDirection("tiers.d6.direction", cfg.Tiers.D6.Direction); err != nil {
		return err
	}
	if err := validateDirection("tiers.d5.min_direction", cfg.Tiers.D5.MinDirection); err != nil {
		return err
	}
	if err := validateDirection("tiers.d4.min_direction", cfg.Tiers.D4.MinDirection); err != nil {
		return err
	}

	// Gate EPS thresholds must descend with priority, or two tiers
	// would claim overlapping score ranges.
	if cfg.Tiers.D8.MinEPSSurprise <= cfg.Tiers.D7.MinEPSSurprise {
		return ValidationError{"tiers", "d8.min_eps_surprise must exceed d7.min_eps_surprise"}
	}
	if cfg.Tiers.D7.MinEPSSurprise <= cfg.Tiers.D6.MinEPSSurprise {
		return ValidationError{"tiers", "d7.min_eps_surprise must exceed d6.min_eps_surprise"}
	}
	if cfg.Tiers.D8.MinDirection < cfg.Tiers.D6.Direction {
		return ValidationError{"tiers", "d8.min_direction must be >= d6.direction"}
	}

	if cfg.Tiers.D4.GateVariant != GateVariantAnd && cfg.Tiers.D4.GateVariant != GateVariantOr {
		return ValidationError{"tiers.d4.gate_variant", `must be "and" or "or"`}
	}
	if cfg.Tiers.D4.GateVariant == GateVariantOr && cfg.Tiers.D4.MinPositiveFacts < 1 {
		return ValidationError{"tiers.d4.min_positive_facts", "must be >= 1 for the or variant"}
	}

	// === Vetoes ===
	if len(cfg.Vetoes.Soft) == 0 {
		return ValidationError{"vetoes.soft", "required"}
	}
	for kind, rule := range cfg.Vetoes.Soft {
		if rule.Weight <= 0 || rule.Weight > 1 {
			return ValidationError{
				Field:   fmt.Sprintf("vetoes.soft.%s.weight", kind),
				Message: "must be in (0, 1]",
			}
		}
	}

	// === Sizing ===
	s := cfg.Sizing
	if s.PositionScale <= 0 {
		return ValidationError{"sizing.position_scale", "must be > 0"}
	}
	if s.WeightReliability < 0 || s.WeightEvidence < 0 || s.WeightContradiction < 0 || s.WeightReaction < 0 {
		return ValidationError{"sizing", "utility weights must be >= 0"}
	}
	if s.VolHighThreshold <= s.VolLowThreshold {
		return ValidationError{"sizing", "vol_high_threshold must exceed vol_low_threshold"}
	}
	if s.VolHighMultiplier <= 0 || s.VolLowMultiplier <= 0 {
		return ValidationError{"sizing", "volatility multipliers must be > 0"}
	}

	// === Regime ===
	r := cfg.Regime
	if r.VIXNormalMax <= 0 || r.VIXRiskOffMax <= r.VIXNormalMax {
		return ValidationError{"regime", "need 0 < vix_normal_max < vix_riskoff_max"}
	}
	if r.TargetGrossStress < 0 {
		return ValidationError{"regime.target_gross_stress", "must be >= 0"}
	}
	if r.TargetGrossNormal < r.TargetGrossRiskOff || r.TargetGrossRiskOff < r.TargetGrossStress {
		return ValidationError{"regime", "target gross must not increase with risk"}
	}

	// === Breaker ===
	switch cfg.Breaker.Mode {
	case BreakerModeFreeze:
		// ok
	case BreakerModeReduce:
		return ValidationError{"breaker.mode", "reduce mode sells into the panic low and is not supported; use freeze"}
	default:
		return ValidationError{"breaker.mode", `must be "freeze"`}
	}
	if cfg.Breaker.SPYCrashThreshold >= 0 {
		return ValidationError{"breaker.spy_crash_threshold", "must be negative"}
	}
	if cfg.Breaker.VIXJumpThreshold <= 0 {
		return ValidationError{"breaker.vix_jump_threshold", "must be > 0"}
	}
	if cfg.Breaker.CooldownDays < 1 {
		return ValidationError{"breaker.cooldown_days", "must be >= 1"}
	}

	// === Exits ===
	if cfg.Exits.HoldingSessions < contracts.MinHoldingSessions || cfg.Exits.HoldingSessions > contracts.MaxHoldingSessions {
		return ValidationError{"exits.holding_sessions", fmt.Sprintf("must be in [%d, %d]", contracts.MinHoldingSessions, contracts.MaxHoldingSessions)}
	}
	if cfg.Exits.StopLossPct <= 0 || cfg.Exits.StopLossPct >= 1 {
		return ValidationError{"exits.stop_loss_pct", "must be in (0, 1)"}
	}
	if cfg.Exits.EntryLagSessions < 0 {
		return ValidationError{"exits.entry_lag_sessions", "must be >= 0"}
	}

	// === AddOn ===
	if cfg.AddOn.Enable {
		if cfg.AddOn.TriggerGainPct <= 0 {
			return ValidationError{"add_on.trigger_gain_pct", "must be > 0"}
		}
		if cfg.AddOn.PullbackPct <= 0 || cfg.AddOn.PullbackPct >= cfg.AddOn.TriggerGainPct {
			return ValidationError{"add_on.pullback_pct", "must be in (0, trigger_gain_pct)"}
		}
		if cfg.AddOn.SizeFraction <= 0 || cfg.AddOn.SizeFraction > 1 {
			return ValidationError{"add_on.size_fraction", "must be in (0, 1]"}
		}
		if cfg.AddOn.MaxAddOns < 1 {
			return ValidationError{"add_on.max_add_ons", "must be >= 1 when enabled"}
		}
	}

	// === Entries ===
	if cfg.Entries.MaxConcurrent < 1 {
		return ValidationError{"entries.max_concurrent", "must be >= 1"}
	}
	if cfg.Entries.PerQuarterCap < 1 {
		return ValidationError{"entries.per_quarter_cap", "must be >= 1"}
	}

	// === Costs ===
	if cfg.Costs.CommissionBps < 0 {
		return ValidationError{"costs.commission_bps", "must be >= 0"}
	}
	if cfg.Costs.SlippageBps < 0 {
		return ValidationError{"costs.slippage_bps", "must be >= 0"}
	}
	if cfg.Costs.AnnualBorrowRate < 0 {
		return ValidationError{"costs.annual_borrow_rate", "must be >= 0"}
	}

	// === Delever ===
	if cfg.Delever.Enable {
		if len(cfg.Delever.Steps) == 0 {
			return ValidationError{"delever.steps", "required when enabled"}
		}
		prev := 0.0
		for i, step := range cfg.Delever.Steps {
			if step.DrawdownPct <= prev {
				return ValidationError{
					Field:   fmt.Sprintf("delever.steps[%d].drawdown_pct", i),
					Message: "steps must be strictly increasing",
				}
			}
			if step.Multiplier <= 0 || step.Multiplier > 1 {
				return ValidationError{
					Field:   fmt.Sprintf("delever.steps[%d].multiplier", i),
					Message: "must be in (0, 1]",
				}
			}
			prev = step.DrawdownPct
		}
	}

	// === Backtest ===
	if cfg.Backtest.InitialCash <= 0 {
		return ValidationError{"backtest.initial_cash", "must be > 0"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal).
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Sizing.PositionScale > 10 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_POSITION_SCALE",
			Message: "position_scale > 10: per-tier caps will bind on nearly every entry",
		})
	}

	if cfg.Costs.AnnualBorrowRate > 0.15 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_BORROW_RATE",
			Message: "annual_borrow_rate > 15%: leverage carry will dominate returns",
		})
	}

	if cfg.Exits.StopLossPct > 0.30 {
		warnings = append(warnings, Warning{
			Code:    "WIDE_STOP",
			Message: "stop_loss_pct > 30%: single positions can erase a large equity share",
		})
	}

	if cfg.Regime.TargetGrossNormal > 2.0 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_LEVERAGE",
			Message: "target_gross_normal > 2.0x: margin interest and drawdowns compound quickly",
		})
	}

	return warnings
}

// === Helper functions ===

func validateTierCaps(field string, minPct, maxPct, kelly float64) error {
	if minPct < 0 || minPct > 1 {
		return ValidationError{field + ".min_position_pct", "must be in [0, 1]"}
	}
	if maxPct <= 0 || maxPct > 1 {
		return ValidationError{field + ".max_position_pct", "must be in (0, 1]"}
	}
	if minPct > maxPct {
		return ValidationError{field, "min_position_pct must be <= max_position_pct"}
	}
	if kelly <= 0 {
		return ValidationError{field + ".kelly_multiplier", "must be > 0"}
	}
	return nil
}

func validateDirection(field string, score int) error {
	if score < 0 || score > 10 {
		return ValidationError{field, "must be in [0, 10]"}
	}
	return nil
}
