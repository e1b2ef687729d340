package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joonho/earnquant/internal/contracts"
	"github.com/joonho/earnquant/internal/strategyconfig"
)

func newSizer() *Sizer {
	cfg := strategyconfig.Default()
	return NewSizer(cfg.Sizing, cfg.Tiers)
}

func accepted(tier contracts.Tier, kelly, penalty float64) contracts.TierDecision {
	return contracts.TierDecision{
		TradeLong:       true,
		Tier:            tier,
		KellyMultiplier: kelly,
		SoftVetoPenalty: penalty,
	}
}

func anchorSet(eps, day, vol float64) contracts.Anchors {
	return contracts.Anchors{
		EPSSurprise:       eps,
		EarningsDayReturn: day,
		StockVolatility:   vol,
	}
}

func qualitySignal(rel, ev, contra float64) *contracts.Signal {
	return &contracts.Signal{
		Symbol:             "TEST",
		ReliabilityScore:   rel,
		EvidenceScore:      ev,
		ContradictionScore: contra,
	}
}

func TestSize_NoTradeIsZero(t *testing.T) {
	s := newSizer()

	size := s.Size(qualitySignal(1, 1, 0), contracts.Reject("hard_veto"), anchorSet(0.5, 0.1, 0.3))
	assert.Equal(t, 0.0, size)
}

func TestSize_CapInvariant(t *testing.T) {
	s := newSizer()
	cfg := strategyconfig.Default()

	maxByTier := map[contracts.Tier]float64{
		contracts.TierD8Mega:   cfg.Tiers.D8.MaxPositionPct,
		contracts.TierD7Core:   cfg.Tiers.D7.MaxPositionPct,
		contracts.TierD6Strict: cfg.Tiers.D6.MaxPositionPct,
		contracts.TierD5Gated:  cfg.Tiers.D5.MaxPositionPct,
		contracts.TierD4Entry:  cfg.Tiers.D4.MaxPositionPct,
	}
	kellyByTier := map[contracts.Tier]float64{
		contracts.TierD8Mega:   cfg.Tiers.D8.KellyMultiplier,
		contracts.TierD7Core:   cfg.Tiers.D7.KellyMultiplier,
		contracts.TierD6Strict: cfg.Tiers.D6.KellyMultiplier,
		contracts.TierD5Gated:  cfg.Tiers.D5.KellyMultiplier,
		contracts.TierD4Entry:  cfg.Tiers.D4.KellyMultiplier,
	}

	// Pathological extremes must stay inside [0, max] for every tier
	inputs := []struct {
		sig *contracts.Signal
		a   contracts.Anchors
	}{
		{qualitySignal(0, 0, 10), anchorSet(0, 0, 0.30)},
		{qualitySignal(1, 1, 0), anchorSet(2.0, 1.0, 0.10)},
		{qualitySignal(1, 1, 0), anchorSet(2.0, 1.0, 1.9)},
		{qualitySignal(0.5, 0.5, 5), anchorSet(-0.5, -0.5, 0.30)},
	}

	for tier, max := range maxByTier {
		for _, in := range inputs {
			size := s.Size(in.sig, accepted(tier, kellyByTier[tier], 1.0), in.a)
			assert.GreaterOrEqual(t, size, 0.0, "tier %s", tier)
			assert.LessOrEqual(t, size, max, "tier %s", tier)
		}
	}
}

func TestSize_MinimumFloor(t *testing.T) {
	s := newSizer()

	// Worthless utility still lands on the D8 floor once accepted
	size := s.Size(qualitySignal(0, 0, 10), accepted(contracts.TierD8Mega, 1.20, 1.0), anchorSet(0, 0, 0.30))
	assert.Equal(t, 0.12, size)

	// D7 floor
	size = s.Size(qualitySignal(0, 0, 10), accepted(contracts.TierD7Core, 1.00, 1.0), anchorSet(0, 0, 0.30))
	assert.Equal(t, 0.10, size)

	// D6 has no floor
	size = s.Size(qualitySignal(0, 0, 10), accepted(contracts.TierD6Strict, 0.75, 1.0), anchorSet(0, 0, 0.30))
	assert.Equal(t, 0.0, size)
}

func TestSize_Utility(t *testing.T) {
	s := newSizer()

	// reliability 0.8, evidence 0.6, contradiction 2, day 0.05, eps 0.04:
	// reaction = 0.05/0.10 + 0.04*0.5 = 0.52
	// utility = 0.3*0.8 + 0.2*0.6 + 0.1*(10-2)/10 + 0.1*0.52 = 0.492
	u := s.utility(qualitySignal(0.8, 0.6, 2), anchorSet(0.04, 0.05, 0.30))
	assert.InDelta(t, 0.492, u, 1e-9)

	// Reaction term floors at zero
	u = s.utility(qualitySignal(0.8, 0.6, 2), anchorSet(-0.4, -0.3, 0.30))
	assert.InDelta(t, 0.3*0.8+0.2*0.6+0.1*0.8, u, 1e-9)
}

func TestSize_MultiplierChain(t *testing.T) {
	s := newSizer()

	// Mid-vol D6 with modest inputs so no clamp binds:
	// utility = 0.3*0.2 + 0.2*0.1 + 0.1*(10-8)/10 + 0.1*0 = 0.10
	// size = 0.10 * 0.75 * 0.90 * 5.0 = 0.3375 -> capped to 0.30
	sig := qualitySignal(0.2, 0.1, 8)
	size := s.Size(sig, accepted(contracts.TierD6Strict, 0.75, 0.90), anchorSet(0.0, 0.0, 0.30))
	assert.InDelta(t, 0.30, size, 1e-9)

	// Lower utility stays below the cap:
	// utility = 0.3*0.1 + 0.1*(10-9)/10 = 0.04; size = 0.04*0.75*0.90*5 = 0.135
	sig = qualitySignal(0.1, 0, 9)
	size = s.Size(sig, accepted(contracts.TierD6Strict, 0.75, 0.90), anchorSet(0.0, 0.0, 0.30))
	assert.InDelta(t, 0.135, size, 1e-9)
}

func TestSize_EPSBoost(t *testing.T) {
	s := newSizer()
	sig := qualitySignal(0.1, 0, 9) // utility 0.04 with zero anchors

	base := s.Size(sig, accepted(contracts.TierD6Strict, 0.75, 1.0), anchorSet(0.0, 0.0, 0.30))

	// eps 0.12 > 0.10 threshold: boost 1 + 0.12*2 = 1.24, but eps also
	// feeds the reaction term (+0.1*0.06 utility)
	boosted := s.Size(sig, accepted(contracts.TierD6Strict, 0.75, 1.0), anchorSet(0.12, 0.0, 0.30))

	wantBase := 0.04 * 0.75 * 5.0
	wantBoost := (0.04 + 0.1*0.06) * 0.75 * 5.0 * 1.24
	assert.InDelta(t, wantBase, base, 1e-9)
	assert.InDelta(t, wantBoost, boosted, 1e-9)

	// At the threshold exactly, no boost
	at := s.Size(sig, accepted(contracts.TierD6Strict, 0.75, 1.0), anchorSet(0.10, 0.0, 0.30))
	assert.InDelta(t, (0.04+0.1*0.05)*0.75*5.0, at, 1e-9)
}

func TestSize_VolatilityAdjustment(t *testing.T) {
	s := newSizer()
	sig := qualitySignal(0.1, 0, 9) // utility 0.04 with zero anchors
	d := accepted(contracts.TierD6Strict, 0.75, 1.0)

	mid := s.Size(sig, d, anchorSet(0.0, 0.0, 0.30))
	high := s.Size(sig, d, anchorSet(0.0, 0.0, 0.50))
	low := s.Size(sig, d, anchorSet(0.0, 0.0, 0.15))

	assert.InDelta(t, mid*0.75, high, 1e-9)
	assert.InDelta(t, mid*1.10, low, 1e-9)
}

func TestSize_SoftVetoPenaltyApplied(t *testing.T) {
	s := newSizer()
	sig := qualitySignal(0.1, 0, 9)

	clean := s.Size(sig, accepted(contracts.TierD6Strict, 0.75, 1.0), anchorSet(0.0, 0.0, 0.30))
	vetoed := s.Size(sig, accepted(contracts.TierD6Strict, 0.75, 0.88*0.90), anchorSet(0.0, 0.0, 0.30))

	assert.InDelta(t, clean*0.88*0.90, vetoed, 1e-9)
}
