package strategyconfig

import "github.com/joonho/earnquant/internal/anchors"

// Default returns the production parameter set. The YAML file under
// config/strategy/ mirrors these values; tests and the gate CLI use
// Default() directly so they never depend on the filesystem.
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "earnings_long_v1",
			Version:    "1.0.0",
			Timezone:   "America/New_York",
		},
		Anchors: anchors.DefaultBounds(),
		Tiers: Tiers{
			D8: TierD8{
				MinDirection:    7,
				MinEPSSurprise:  0.20,
				MaxSoftVetoes:   2,
				KellyMultiplier: 1.20,
				MinPositionPct:  0.12,
				MaxPositionPct:  0.50,
			},
			D7: TierD7{
				MinDirection:         7,
				MinEPSSurprise:       0.12,
				MaxSoftVetoes:        1,
				RelaxedEPSSurprise:   0.15,
				RelaxedMaxSoftVetoes: 2,
				SectorWaiverEPS:      0.15,
				BlockedSectors:       []string{"Real Estate"},
				KellyMultiplier:      1.00,
				MinPositionPct:       0.10,
				MaxPositionPct:       0.40,
			},
			D6: TierD6{
				Direction:       6,
				MinEPSSurprise:  0.05,
				MaxSoftVetoes:   1,
				SectorWaiverEPS: 0.15,
				BlockedSectors:  []string{"Technology", "Healthcare"},
				KellyMultiplier: 0.75,
				MinPositionPct:  0,
				MaxPositionPct:  0.30,
			},
			D5: TierD5{
				MinDirection:    5,
				MinDayReturn:    0.02,
				MinPre5DReturn:  0.03,
				KellyMultiplier: 0.50,
				MinPositionPct:  0,
				MaxPositionPct:  0.20,
			},
			D4: TierD4{
				MinDirection:     4,
				MinEPSSurprise:   0.08,
				MinDayReturn:     0.03,
				MinPre5DReturn:   0.05,
				GateVariant:      GateVariantAnd,
				MinPositiveFacts: 2,
				KellyMultiplier:  0.30,
				MinPositionPct:   0,
				MaxPositionPct:   0.15,
			},
		},
		Vetoes: Vetoes{
			Soft: map[string]SoftVetoRule{
				"DemandSoftness":      {Weight: 0.88, CountsTowardGate: true},
				"MarginWeakness":      {Weight: 0.90, CountsTowardGate: true},
				"VisibilityWorsening": {Weight: 0.92, CountsTowardGate: true},
				"CashBurn":            {Weight: 0.90, CountsTowardGate: true},
				"HiddenGuidanceCut":   {Weight: 0.88, CountsTowardGate: true},
				"NeutralVeto":         {Weight: 0.95, CountsTowardGate: false},
			},
		},
		Sizing: Sizing{
			PositionScale:       5.0,
			WeightReliability:   0.3,
			WeightEvidence:      0.2,
			WeightContradiction: 0.1,
			WeightReaction:      0.1,
			EPSBoostThreshold:   0.10,
			EPSBoostFactor:      2.0,
			VolHighThreshold:    0.40,
			VolHighMultiplier:   0.75,
			VolLowThreshold:     0.20,
			VolLowMultiplier:    1.10,
		},
		Regime: RegimeConfig{
			VIXNormalMax:       22,
			VIXRiskOffMax:      28,
			TargetGrossNormal:  2.0,
			TargetGrossRiskOff: 1.0,
			TargetGrossStress:  0.0,
		},
		Breaker: Breaker{
			Mode:              BreakerModeFreeze,
			SPYCrashThreshold: -0.04,
			VIXJumpThreshold:  0.30,
			CooldownDays:      3,
		},
		Exits: Exits{
			HoldingSessions:  30,
			StopLossPct:      0.15,
			EntryLagSessions: 1,
		},
		AddOn: AddOn{
			Enable:             true,
			TriggerGainPct:     0.06,
			PullbackPct:        0.03,
			MinHoldingSessions: 5,
			MaxAddOns:          1,
			SizeFraction:       0.33,
		},
		Entries: Entries{
			MaxConcurrent:      10,
			PerQuarterCap:      12,
			RegimeAdjustedCaps: true,
		},
		Costs: Costs{
			CommissionBps:    5,
			SlippageBps:      10,
			AnnualBorrowRate: 0.06,
		},
		Delever: Delever{
			Enable: false,
			Steps: []DeleverStep{
				{DrawdownPct: 0.10, Multiplier: 0.75},
				{DrawdownPct: 0.15, Multiplier: 0.50},
				{DrawdownPct: 0.20, Multiplier: 0.25},
			},
		},
		Backtest: Backtest{
			InitialCash: 1_000_000,
		},
	}
}
