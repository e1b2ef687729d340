package tiergate

import (
	"github.com/joonho/earnquant/internal/contracts"
	"github.com/joonho/earnquant/internal/strategyconfig"
)

// Classifier maps a signal to a conviction tier or rejects it. It is a
// pure function of its configuration: no state, no I/O, evaluated in
// strict priority order with first match winning.
type Classifier struct {
	tiers  strategyconfig.Tiers
	vetoes strategyconfig.Vetoes
}

// NewClassifier builds a classifier from validated strategy config.
func NewClassifier(tiers strategyconfig.Tiers, vetoes strategyconfig.Vetoes) *Classifier {
	return &Classifier{tiers: tiers, vetoes: vetoes}
}

// Classify returns the tier decision for one sanitized signal.
// A malformed signal is rejected as no-trade rather than raising;
// the caller counts it as a data-quality warning.
func (c *Classifier) Classify(sig *contracts.Signal, a contracts.Anchors) contracts.TierDecision {
	if sig.DirectionScore < 0 || sig.DirectionScore > 10 {
		return contracts.Reject("direction_out_of_range")
	}

	// Priority 0: any hard veto rejects outright.
	if sig.HasHardVeto() {
		return contracts.Reject("hard_veto")
	}

	softCount, softPenalty := c.softVetoes(sig)

	accept := func(tier contracts.Tier, kelly float64, reason string) contracts.TierDecision {
		return contracts.TierDecision{
			TradeLong:       true,
			Tier:            tier,
			KellyMultiplier: kelly,
			SoftVetoCount:   softCount,
			SoftVetoPenalty: softPenalty,
			Reason:          reason,
		}
	}

	dir := sig.DirectionScore
	eps := a.EPSSurprise

	// D8_MEGA: the conviction override. Sector blocks do not apply.
	d8 := c.tiers.D8
	if dir >= d8.MinDirection && eps > d8.MinEPSSurprise && softCount <= d8.MaxSoftVetoes {
		return accept(contracts.TierD8Mega, d8.KellyMultiplier, "d8_mega")
	}

	// D7_CORE: strong direction with a meaningful surprise. A larger
	// surprise waives the sector block and relaxes the veto count.
	d7 := c.tiers.D7
	if dir >= d7.MinDirection && eps > d7.MinEPSSurprise {
		vetoOK := softCount <= d7.MaxSoftVetoes ||
			(eps > d7.RelaxedEPSSurprise && softCount <= d7.RelaxedMaxSoftVetoes)
		sectorOK := !blockedSector(sig.Sector, d7.BlockedSectors) || eps > d7.SectorWaiverEPS
		if vetoOK && sectorOK {
			return accept(contracts.TierD7Core, d7.KellyMultiplier, "d7_core")
		}
	}

	// D6_STRICT: exactly direction 6, small surprise floor.
	d6 := c.tiers.D6
	if dir == d6.Direction && eps > d6.MinEPSSurprise && softCount <= d6.MaxSoftVetoes {
		sectorOK := !blockedSector(sig.Sector, d6.BlockedSectors) || eps > d6.SectorWaiverEPS
		if sectorOK {
			return accept(contracts.TierD6Strict, d6.KellyMultiplier, "d6_strict")
		}
	}

	// D5_GATED: direction with a price-confirmation gate.
	d5 := c.tiers.D5
	if dir >= d5.MinDirection &&
		(a.EarningsDayReturn >= d5.MinDayReturn || a.PreEarnings5DReturn >= d5.MinPre5DReturn) {
		return accept(contracts.TierD5Gated, d5.KellyMultiplier, "d5_gated")
	}

	// D4_ENTRY: the lowest rung; gate variant is configurable.
	d4 := c.tiers.D4
	if dir >= d4.MinDirection && c.d4Gate(d4, a) {
		return accept(contracts.TierD4Entry, d4.KellyMultiplier, "d4_entry")
	}

	return contracts.Reject("below_all_gates")
}

// d4Gate evaluates the D4 entry condition under the configured variant.
func (c *Classifier) d4Gate(d4 strategyconfig.TierD4, a contracts.Anchors) bool {
	epsOK := a.EPSSurprise >= d4.MinEPSSurprise
	dayOK := a.EarningsDayReturn >= d4.MinDayReturn
	preOK := a.PreEarnings5DReturn >= d4.MinPre5DReturn

	switch d4.GateVariant {
	case strategyconfig.GateVariantOr:
		// Momentum alone, or enough independent positive facts.
		facts := 0
		if epsOK {
			facts++
		}
		if dayOK {
			facts++
		}
		if preOK {
			facts++
		}
		return dayOK || facts >= d4.MinPositiveFacts
	default:
		return epsOK && dayOK && preOK
	}
}

// softVetoes returns the gate-countable veto count and the product of
// all active veto weights. The count gates tiers; the product is applied
// exactly once, by the sizer, so vetoes are never double-penalized here.
func (c *Classifier) softVetoes(sig *contracts.Signal) (int, float64) {
	count := 0
	penalty := 1.0

	for _, kind := range sig.SoftVetoes {
		rule, known := c.vetoes.Soft[string(kind)]
		if !known {
			// Unknown veto kinds still gate, at neutral weight.
			count++
			continue
		}
		if rule.CountsTowardGate {
			count++
		}
		penalty *= rule.Weight
	}

	return count, penalty
}

func blockedSector(sector string, blocked []string) bool {
	for _, b := range blocked {
		if sector == b {
			return true
		}
	}
	return false
}
