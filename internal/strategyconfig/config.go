package strategyconfig

import (
	"time"

	"github.com/joonho/earnquant/internal/anchors"
)

// Config is the full strategy configuration. Every tunable the gate,
// sizer, and simulator consume lives here as a named, validated knob.
type Config struct {
	Meta     Meta           `yaml:"meta" json:"meta"`
	Anchors  anchors.Bounds `yaml:"anchors" json:"anchors"`
	Tiers    Tiers          `yaml:"tiers" json:"tiers"`
	Vetoes   Vetoes         `yaml:"vetoes" json:"vetoes"`
	Sizing   Sizing         `yaml:"sizing" json:"sizing"`
	Regime   RegimeConfig   `yaml:"regime" json:"regime"`
	Breaker  Breaker        `yaml:"breaker" json:"breaker"`
	Exits    Exits          `yaml:"exits" json:"exits"`
	AddOn    AddOn          `yaml:"add_on" json:"add_on"`
	Entries  Entries        `yaml:"entries" json:"entries"`
	Costs    Costs          `yaml:"costs" json:"costs"`
	Delever  Delever        `yaml:"delever" json:"delever"`
	Backtest Backtest       `yaml:"backtest" json:"backtest"`
}

// Meta identifies the strategy for snapshots and run records.
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
}

// Tiers holds the gate thresholds and position caps per conviction tier.
// Priority order is fixed in code (D8 > D7 > D6 > D5 > D4); thresholds
// here parameterize each gate.
type Tiers struct {
	D8 TierD8 `yaml:"d8" json:"d8"`
	D7 TierD7 `yaml:"d7" json:"d7"`
	D6 TierD6 `yaml:"d6" json:"d6"`
	D5 TierD5 `yaml:"d5" json:"d5"`
	D4 TierD4 `yaml:"d4" json:"d4"`
}

type TierD8 struct {
	MinDirection    int     `yaml:"min_direction" json:"min_direction"`         // 7
	MinEPSSurprise  float64 `yaml:"min_eps_surprise" json:"min_eps_surprise"`   // 0.20 (exclusive)
	MaxSoftVetoes   int     `yaml:"max_soft_vetoes" json:"max_soft_vetoes"`     // 2
	KellyMultiplier float64 `yaml:"kelly_multiplier" json:"kelly_multiplier"`   // 1.20
	MinPositionPct  float64 `yaml:"min_position_pct" json:"min_position_pct"`   // 0.12
	MaxPositionPct  float64 `yaml:"max_position_pct" json:"max_position_pct"`   // 0.50
}

type TierD7 struct {
	MinDirection         int      `yaml:"min_direction" json:"min_direction"`                   // 7
	MinEPSSurprise       float64  `yaml:"min_eps_surprise" json:"min_eps_surprise"`             // 0.12 (exclusive)
	MaxSoftVetoes        int      `yaml:"max_soft_vetoes" json:"max_soft_vetoes"`               // 1
	RelaxedEPSSurprise   float64  `yaml:"relaxed_eps_surprise" json:"relaxed_eps_surprise"`     // 0.15: allows relaxed veto count
	RelaxedMaxSoftVetoes int      `yaml:"relaxed_max_soft_vetoes" json:"relaxed_max_soft_vetoes"` // 2
	SectorWaiverEPS      float64  `yaml:"sector_waiver_eps" json:"sector_waiver_eps"`           // 0.15: waives sector block
	BlockedSectors       []string `yaml:"blocked_sectors" json:"blocked_sectors"`
	KellyMultiplier      float64  `yaml:"kelly_multiplier" json:"kelly_multiplier"` // 1.00
	MinPositionPct       float64  `yaml:"min_position_pct" json:"min_position_pct"` // 0.10
	MaxPositionPct       float64  `yaml:"max_position_pct" json:"max_position_pct"` // 0.40
}

type TierD6 struct {
	Direction       int      `yaml:"direction" json:"direction"`               // exactly 6
	MinEPSSurprise  float64  `yaml:"min_eps_surprise" json:"min_eps_surprise"` // 0.05 (exclusive)
	MaxSoftVetoes   int      `yaml:"max_soft_vetoes" json:"max_soft_vetoes"`   // 1
	SectorWaiverEPS float64  `yaml:"sector_waiver_eps" json:"sector_waiver_eps"` // 0.15
	BlockedSectors  []string `yaml:"blocked_sectors" json:"blocked_sectors"`
	KellyMultiplier float64  `yaml:"kelly_multiplier" json:"kelly_multiplier"` // 0.75
	MinPositionPct  float64  `yaml:"min_position_pct" json:"min_position_pct"` // 0
	MaxPositionPct  float64  `yaml:"max_position_pct" json:"max_position_pct"` // 0.30
}

type TierD5 struct {
	MinDirection    int     `yaml:"min_direction" json:"min_direction"`       // 5
	MinDayReturn    float64 `yaml:"min_day_return" json:"min_day_return"`     // 0.02
	MinPre5DReturn  float64 `yaml:"min_pre_5d_return" json:"min_pre_5d_return"` // 0.03
	KellyMultiplier float64 `yaml:"kelly_multiplier" json:"kelly_multiplier"` // 0.50
	MinPositionPct  float64 `yaml:"min_position_pct" json:"min_position_pct"` // 0
	MaxPositionPct  float64 `yaml:"max_position_pct" json:"max_position_pct"` // 0.20
}

// GateVariant selects how the D4 entry gate combines its conditions.
const (
	GateVariantAnd = "and" // momentum and surprise jointly required
	GateVariantOr  = "or"  // momentum, or at least MinPositiveFacts anchor conditions
)

type TierD4 struct {
	MinDirection     int     `yaml:"min_direction" json:"min_direction"`         // 4
	MinEPSSurprise   float64 `yaml:"min_eps_surprise" json:"min_eps_surprise"`   // 0.08 (inclusive)
	MinDayReturn     float64 `yaml:"min_day_return" json:"min_day_return"`       // 0.03
	MinPre5DReturn   float64 `yaml:"min_pre_5d_return" json:"min_pre_5d_return"` // 0.05
	GateVariant      string  `yaml:"gate_variant" json:"gate_variant"`           // "and" | "or"
	MinPositiveFacts int     `yaml:"min_positive_facts" json:"min_positive_facts"` // or-variant only
	KellyMultiplier  float64 `yaml:"kelly_multiplier" json:"kelly_multiplier"`   // 0.30
	MinPositionPct   float64 `yaml:"min_position_pct" json:"min_position_pct"`   // 0
	MaxPositionPct   float64 `yaml:"max_position_pct" json:"max_position_pct"`   // 0.15
}

// Vetoes configures the soft-veto weight table. Gate thresholds count
// only vetoes with counts_toward_gate; the sizer multiplies all weights.
type Vetoes struct {
	Soft map[string]SoftVetoRule `yaml:"soft" json:"soft"`
}

type SoftVetoRule struct {
	Weight           float64 `yaml:"weight" json:"weight"` // multiplicative penalty, (0, 1]
	CountsTowardGate bool    `yaml:"counts_toward_gate" json:"counts_toward_gate"`
}

// Sizing holds the position sizer knobs.
type Sizing struct {
	PositionScale     float64 `yaml:"position_scale" json:"position_scale"`     // 5.0
	WeightReliability float64 `yaml:"weight_reliability" json:"weight_reliability"` // 0.3
	WeightEvidence    float64 `yaml:"weight_evidence" json:"weight_evidence"`   // 0.2
	WeightContradiction float64 `yaml:"weight_contradiction" json:"weight_contradiction"` // 0.1
	WeightReaction    float64 `yaml:"weight_reaction" json:"weight_reaction"`   // 0.1
	EPSBoostThreshold float64 `yaml:"eps_boost_threshold" json:"eps_boost_threshold"` // 0.10
	EPSBoostFactor    float64 `yaml:"eps_boost_factor" json:"eps_boost_factor"` // 2.0
	VolHighThreshold  float64 `yaml:"vol_high_threshold" json:"vol_high_threshold"` // 0.40
	VolHighMultiplier float64 `yaml:"vol_high_multiplier" json:"vol_high_multiplier"` // 0.75
	VolLowThreshold   float64 `yaml:"vol_low_threshold" json:"vol_low_threshold"` // 0.20
	VolLowMultiplier  float64 `yaml:"vol_low_multiplier" json:"vol_low_multiplier"` // 1.10
}

// RegimeConfig maps the VIX close to a regime and a target gross.
type RegimeConfig struct {
	VIXNormalMax       float64 `yaml:"vix_normal_max" json:"vix_normal_max"`     // < 22 Normal
	VIXRiskOffMax      float64 `yaml:"vix_riskoff_max" json:"vix_riskoff_max"`   // <= 28 RiskOff, above Stress
	TargetGrossNormal  float64 `yaml:"target_gross_normal" json:"target_gross_normal"`   // 2.0
	TargetGrossRiskOff float64 `yaml:"target_gross_riskoff" json:"target_gross_riskoff"` // 1.0
	TargetGrossStress  float64 `yaml:"target_gross_stress" json:"target_gross_stress"`   // 0.0
}

// Breaker mode values. Reduce is parsed but rejected by validation:
// selling into the panic low proved harmful, so only Freeze is active.
const (
	BreakerModeFreeze = "freeze"
	BreakerModeReduce = "reduce"
)

type Breaker struct {
	Mode              string  `yaml:"mode" json:"mode"`
	SPYCrashThreshold float64 `yaml:"spy_crash_threshold" json:"spy_crash_threshold"` // -0.04
	VIXJumpThreshold  float64 `yaml:"vix_jump_threshold" json:"vix_jump_threshold"`   // 0.30
	CooldownDays      int     `yaml:"cooldown_days" json:"cooldown_days"`
}

// Exits configures scheduled exits and stop-loss.
type Exits struct {
	HoldingSessions  int     `yaml:"holding_sessions" json:"holding_sessions"` // 30
	StopLossPct      float64 `yaml:"stop_loss_pct" json:"stop_loss_pct"`       // 0.15
	EntryLagSessions int     `yaml:"entry_lag_sessions" json:"entry_lag_sessions"` // 1: fill at next session's open
}

// AddOn configures the one-time add to a winning position.
type AddOn struct {
	Enable             bool    `yaml:"enable" json:"enable"`
	TriggerGainPct     float64 `yaml:"trigger_gain_pct" json:"trigger_gain_pct"` // 0.06
	PullbackPct        float64 `yaml:"pullback_pct" json:"pullback_pct"`         // 0.03
	MinHoldingSessions int     `yaml:"min_holding_sessions" json:"min_holding_sessions"` // 5
	MaxAddOns          int     `yaml:"max_add_ons" json:"max_add_ons"`           // 1
	SizeFraction       float64 `yaml:"size_fraction" json:"size_fraction"`       // 0.33 of original notional
}

// Entries configures entry admission.
type Entries struct {
	MaxConcurrent      int  `yaml:"max_concurrent" json:"max_concurrent"`
	PerQuarterCap      int  `yaml:"per_quarter_cap" json:"per_quarter_cap"`
	RegimeAdjustedCaps bool `yaml:"regime_adjusted_caps" json:"regime_adjusted_caps"` // full/half/zero by regime
}

// Costs configures trading frictions and financing.
type Costs struct {
	CommissionBps    float64 `yaml:"commission_bps" json:"commission_bps"` // per side
	SlippageBps      float64 `yaml:"slippage_bps" json:"slippage_bps"`     // per side
	AnnualBorrowRate float64 `yaml:"annual_borrow_rate" json:"annual_borrow_rate"`
}

// Delever scales new-entry allocation down as portfolio drawdown deepens.
type Delever struct {
	Enable bool          `yaml:"enable" json:"enable"`
	Steps  []DeleverStep `yaml:"steps" json:"steps"`
}

type DeleverStep struct {
	DrawdownPct float64 `yaml:"drawdown_pct" json:"drawdown_pct"` // trigger, e.g. 0.10
	Multiplier  float64 `yaml:"multiplier" json:"multiplier"`     // applied to new-entry size
}

// Backtest holds run-level parameters with no live-trading meaning.
type Backtest struct {
	InitialCash float64 `yaml:"initial_cash" json:"initial_cash"`
}

// DecisionSnapshot pins a run to the exact configuration that produced it.
type DecisionSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	GitCommit  string    `json:"git_commit"`
	CreatedAt  time.Time `json:"created_at"`
}
