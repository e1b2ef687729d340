package contracts

// Tier is the discrete conviction bucket a gated signal lands in.
type Tier string

const (
	TierD8Mega   Tier = "D8_MEGA"
	TierD7Core   Tier = "D7_CORE"
	TierD6Strict Tier = "D6_STRICT"
	TierD5Gated  Tier = "D5_GATED"
	TierD4Entry  Tier = "D4_ENTRY"
	TierNone     Tier = "NONE"
)

// AllTiers lists the tradeable tiers in priority order.
var AllTiers = []Tier{TierD8Mega, TierD7Core, TierD6Strict, TierD5Gated, TierD4Entry}

// TierDecision is the gate's verdict for one signal. It is a pure
// function of the signal and gate configuration; recomputable, never
// mutated.
type TierDecision struct {
	TradeLong       bool    `json:"trade_long"`
	Tier            Tier    `json:"tier"`
	KellyMultiplier float64 `json:"kelly_multiplier"`

	// SoftVetoCount is the number of gate-countable soft vetoes.
	// SoftVetoPenalty is the product of all active soft veto weights;
	// it is applied once, downstream in the sizer.
	SoftVetoCount   int     `json:"soft_veto_count"`
	SoftVetoPenalty float64 `json:"soft_veto_penalty"`

	Reason string `json:"reason"`
}

// Reject returns a no-trade decision with the given reason.
func Reject(reason string) TierDecision {
	return TierDecision{
		TradeLong:       false,
		Tier:            TierNone,
		SoftVetoPenalty: 1.0,
		Reason:          reason,
	}
}
