package risk

import (
	"github.com/joonho/earnquant/internal/contracts"
	"github.com/joonho/earnquant/internal/strategyconfig"
)

// RegimeDetector maps the VIX close to a market regime and a target
// gross exposure. Pure calculator: sizing and entry policy are applied
// by the portfolio layer.
type RegimeDetector struct {
	cfg strategyconfig.RegimeConfig
}

// NewRegimeDetector builds a detector from validated strategy config.
func NewRegimeDetector(cfg strategyconfig.RegimeConfig) *RegimeDetector {
	return &RegimeDetector{cfg: cfg}
}

// Detect classifies a VIX close into a regime.
// Boundaries: Normal below VIXNormalMax, RiskOff up to and including
// VIXRiskOffMax, Stress above.
func (rd *RegimeDetector) Detect(vixClose float64) contracts.Regime {
	switch {
	case vixClose < rd.cfg.VIXNormalMax:
		return contracts.RegimeNormal
	case vixClose <= rd.cfg.VIXRiskOffMax:
		return contracts.RegimeRiskOff
	default:
		return contracts.RegimeStress
	}
}

// TargetGross returns the gross exposure target for a regime.
func (rd *RegimeDetector) TargetGross(regime contracts.Regime) float64 {
	switch regime {
	case contracts.RegimeNormal:
		return rd.cfg.TargetGrossNormal
	case contracts.RegimeRiskOff:
		return rd.cfg.TargetGrossRiskOff
	default:
		return rd.cfg.TargetGrossStress
	}
}
