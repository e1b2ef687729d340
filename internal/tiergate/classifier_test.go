package tiergate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joonho/earnquant/internal/contracts"
	"github.com/joonho/earnquant/internal/strategyconfig"
)

func newClassifier() *Classifier {
	cfg := strategyconfig.Default()
	return NewClassifier(cfg.Tiers, cfg.Vetoes)
}

func anchorSet(eps, day, pre5d float64) contracts.Anchors {
	return contracts.Anchors{
		EPSSurprise:         eps,
		EarningsDayReturn:   day,
		PreEarnings5DReturn: pre5d,
		StockVolatility:     0.30,
	}
}

func TestClassify_HardVetoPrecedence(t *testing.T) {
	c := newClassifier()

	// A hard veto rejects regardless of how strong everything else is
	for dir := 0; dir <= 10; dir++ {
		sig := &contracts.Signal{
			Symbol:         "AAPL",
			DirectionScore: dir,
			HardVetoes:     []contracts.HardVeto{contracts.VetoGoingConcern},
		}
		d := c.Classify(sig, anchorSet(0.50, 0.10, 0.10))

		assert.False(t, d.TradeLong, "direction %d", dir)
		assert.Equal(t, contracts.TierNone, d.Tier)
		assert.Equal(t, "hard_veto", d.Reason)
	}
}

func TestClassify_TierTable(t *testing.T) {
	c := newClassifier()

	tests := []struct {
		name    string
		dir     int
		sector  string
		vetoes  []contracts.SoftVetoKind
		anchors contracts.Anchors
		want    contracts.Tier
		wantK   float64
	}{
		{
			name:    "d8 mega",
			dir:     8,
			anchors: anchorSet(0.25, 0.05, 0.02),
			want:    contracts.TierD8Mega,
			wantK:   1.20,
		},
		{
			name:    "d8 at direction 7",
			dir:     7,
			anchors: anchorSet(0.21, 0, 0),
			want:    contracts.TierD8Mega,
			wantK:   1.20,
		},
		{
			name:    "d8 overrides sector block",
			dir:     9,
			sector:  "Real Estate",
			anchors: anchorSet(0.30, 0, 0),
			want:    contracts.TierD8Mega,
			wantK:   1.20,
		},
		{
			name:    "d7 core",
			dir:     7,
			anchors: anchorSet(0.13, 0, 0),
			want:    contracts.TierD7Core,
			wantK:   1.00,
		},
		{
			name:    "d7 eps at threshold falls through",
			dir:     7,
			anchors: anchorSet(0.12, 0, 0),
			want:    contracts.TierNone,
		},
		{
			name:    "d6 strict",
			dir:     6,
			anchors: anchorSet(0.06, 0, 0),
			want:    contracts.TierD6Strict,
			wantK:   0.75,
		},
		{
			name:    "d6 below threshold is none",
			dir:     6,
			anchors: anchorSet(0.03, 0, 0),
			want:    contracts.TierNone,
		},
		{
			name:    "d5 via day return",
			dir:     5,
			anchors: anchorSet(0.01, 0.02, 0),
			want:    contracts.TierD5Gated,
			wantK:   0.50,
		},
		{
			name:    "d5 via pre earnings run",
			dir:     5,
			anchors: anchorSet(0.01, 0, 0.03),
			want:    contracts.TierD5Gated,
			wantK:   0.50,
		},
		{
			name:    "d4 entry requires all three",
			dir:     4,
			anchors: anchorSet(0.08, 0.03, 0.05),
			want:    contracts.TierD4Entry,
			wantK:   0.30,
		},
		{
			name:    "d4 missing pre5d is none",
			dir:     4,
			anchors: anchorSet(0.08, 0.03, 0.01),
			want:    contracts.TierNone,
		},
		{
			name:    "direction 3 never trades",
			dir:     3,
			anchors: anchorSet(0.50, 0.10, 0.10),
			want:    contracts.TierNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := &contracts.Signal{
				Symbol:         "TEST",
				Sector:         tt.sector,
				DirectionScore: tt.dir,
				SoftVetoes:     tt.vetoes,
			}
			d := c.Classify(sig, tt.anchors)

			assert.Equal(t, tt.want, d.Tier)
			if tt.want == contracts.TierNone {
				assert.False(t, d.TradeLong)
			} else {
				assert.True(t, d.TradeLong)
				assert.Equal(t, tt.wantK, d.KellyMultiplier)
			}
		})
	}
}

func TestClassify_SoftVetoGating(t *testing.T) {
	c := newClassifier()

	two := []contracts.SoftVetoKind{contracts.SoftDemandSoftness, contracts.SoftCashBurn}
	three := append(two, contracts.SoftMarginWeakness)

	// D8 tolerates two soft vetoes, not three
	sig := &contracts.Signal{Symbol: "X", DirectionScore: 8, SoftVetoes: two}
	assert.Equal(t, contracts.TierD8Mega, c.Classify(sig, anchorSet(0.25, 0, 0)).Tier)

	sig.SoftVetoes = three
	assert.Equal(t, contracts.TierNone, c.Classify(sig, anchorSet(0.25, 0, 0)).Tier)

	// D7 tolerates one, or two under the relaxed eps threshold
	sig = &contracts.Signal{Symbol: "X", DirectionScore: 7, SoftVetoes: two}
	assert.Equal(t, contracts.TierNone, c.Classify(sig, anchorSet(0.13, 0, 0)).Tier)
	assert.Equal(t, contracts.TierD7Core, c.Classify(sig, anchorSet(0.16, 0, 0)).Tier)
}

func TestClassify_NeutralVetoDoesNotGate(t *testing.T) {
	c := newClassifier()

	// NeutralVeto carries a weight but does not count toward gates:
	// two countable vetoes plus a neutral one still passes D8.
	sig := &contracts.Signal{
		Symbol:         "X",
		DirectionScore: 8,
		SoftVetoes: []contracts.SoftVetoKind{
			contracts.SoftDemandSoftness,
			contracts.SoftCashBurn,
			contracts.SoftNeutralVeto,
		},
	}
	d := c.Classify(sig, anchorSet(0.25, 0, 0))

	assert.Equal(t, contracts.TierD8Mega, d.Tier)
	assert.Equal(t, 2, d.SoftVetoCount)
	assert.InDelta(t, 0.88*0.90*0.95, d.SoftVetoPenalty, 1e-9)
}

func TestClassify_SectorBlocks(t *testing.T) {
	c := newClassifier()

	// D7 blocks Real Estate unless the surprise clears the waiver
	sig := &contracts.Signal{Symbol: "X", Sector: "Real Estate", DirectionScore: 7}
	assert.Equal(t, contracts.TierNone, c.Classify(sig, anchorSet(0.13, 0, 0)).Tier)
	assert.Equal(t, contracts.TierD7Core, c.Classify(sig, anchorSet(0.16, 0, 0)).Tier)

	// D6 blocks Technology the same way
	sig = &contracts.Signal{Symbol: "X", Sector: "Technology", DirectionScore: 6}
	assert.Equal(t, contracts.TierNone, c.Classify(sig, anchorSet(0.06, 0, 0)).Tier)
	assert.Equal(t, contracts.TierD6Strict, c.Classify(sig, anchorSet(0.16, 0, 0)).Tier)
}

func TestClassify_D4OrVariant(t *testing.T) {
	cfg := strategyconfig.Default()
	cfg.Tiers.D4.GateVariant = strategyconfig.GateVariantOr
	c := NewClassifier(cfg.Tiers, cfg.Vetoes)

	sig := &contracts.Signal{Symbol: "X", DirectionScore: 4}

	// Momentum alone passes under the or variant
	d := c.Classify(sig, anchorSet(0.0, 0.03, 0.0))
	assert.Equal(t, contracts.TierD4Entry, d.Tier)

	// Two positive facts without momentum also pass
	d = c.Classify(sig, anchorSet(0.08, 0.0, 0.05))
	assert.Equal(t, contracts.TierD4Entry, d.Tier)

	// One fact, no momentum: rejected
	d = c.Classify(sig, anchorSet(0.08, 0.0, 0.0))
	assert.Equal(t, contracts.TierNone, d.Tier)
}

func TestClassify_MalformedDirection(t *testing.T) {
	c := newClassifier()

	for _, dir := range []int{-1, 11, 99} {
		sig := &contracts.Signal{Symbol: "X", DirectionScore: dir}
		d := c.Classify(sig, anchorSet(0.25, 0.05, 0.05))

		assert.False(t, d.TradeLong)
		assert.Equal(t, "direction_out_of_range", d.Reason)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := newClassifier()

	sig := &contracts.Signal{
		Symbol:         "NVDA",
		DirectionScore: 7,
		SoftVetoes:     []contracts.SoftVetoKind{contracts.SoftMarginWeakness},
	}
	a := anchorSet(0.18, 0.04, 0.06)

	first := c.Classify(sig, a)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, c.Classify(sig, a))
	}
}
