package sizing

import (
	"github.com/joonho/earnquant/internal/contracts"
	"github.com/joonho/earnquant/internal/strategyconfig"
)

// Sizer converts an accepted tier decision into a position size as a
// fraction of equity. Pure function of its configuration: always
// non-negative, always within the tier's [min, max] caps.
type Sizer struct {
	sizing strategyconfig.Sizing
	tiers  strategyconfig.Tiers
}

// NewSizer builds a sizer from validated strategy config.
func NewSizer(sizing strategyconfig.Sizing, tiers strategyconfig.Tiers) *Sizer {
	return &Sizer{sizing: sizing, tiers: tiers}
}

// Size computes the equity fraction for one accepted decision.
// Returns 0 for a no-trade decision.
func (s *Sizer) Size(sig *contracts.Signal, d contracts.TierDecision, a contracts.Anchors) float64 {
	if !d.TradeLong || d.Tier == contracts.TierNone {
		return 0
	}

	utility := s.utility(sig, a)

	size := utility * d.KellyMultiplier * d.SoftVetoPenalty * s.sizing.PositionScale

	// A large surprise earns a conviction boost.
	if a.EPSSurprise > s.sizing.EPSBoostThreshold {
		size *= 1 + a.EPSSurprise*s.sizing.EPSBoostFactor
	}

	// Volatility adjustment: trim jumpy names, lean into quiet ones.
	if a.StockVolatility > s.sizing.VolHighThreshold {
		size *= s.sizing.VolHighMultiplier
	} else if a.StockVolatility < s.sizing.VolLowThreshold {
		size *= s.sizing.VolLowMultiplier
	}

	// Tier caps are hard bounds, enforced last.
	min, max := s.caps(d.Tier)
	if size < min {
		size = min
	}
	if size > max {
		size = max
	}
	if size < 0 {
		size = 0
	}

	return size
}

// utility scores the signal's quality on a 0..~1 scale.
func (s *Sizer) utility(sig *contracts.Signal, a contracts.Anchors) float64 {
	reaction := a.EarningsDayReturn/0.10 + a.EPSSurprise*0.5
	if reaction < 0 {
		reaction = 0
	}

	return s.sizing.WeightReliability*sig.ReliabilityScore +
		s.sizing.WeightEvidence*sig.EvidenceScore +
		s.sizing.WeightContradiction*(10-sig.ContradictionScore)/10 +
		s.sizing.WeightReaction*reaction
}

// caps returns the [min, max] equity-fraction bounds for a tier.
func (s *Sizer) caps(tier contracts.Tier) (float64, float64) {
	switch tier {
	case contracts.TierD8Mega:
		return s.tiers.D8.MinPositionPct, s.tiers.D8.MaxPositionPct
	case contracts.TierD7Core:
		return s.tiers.D7.MinPositionPct, s.tiers.D7.MaxPositionPct
	case contracts.TierD6Strict:
		return s.tiers.D6.MinPositionPct, s.tiers.D6.MaxPositionPct
	case contracts.TierD5Gated:
		return s.tiers.D5.MinPositionPct, s.tiers.D5.MaxPositionPct
	case contracts.TierD4Entry:
		return s.tiers.D4.MinPositionPct, s.tiers.D4.MaxPositionPct
	default:
		return 0, 0
	}
}
