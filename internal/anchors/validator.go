package anchors

import (
	"fmt"

	"github.com/joonho/earnquant/internal/contracts"
	"github.com/joonho/earnquant/pkg/logger"
)

// Bounds holds the plausible ranges for each anchor value.
type Bounds struct {
	EPSSurpriseMin float64 `yaml:"eps_surprise_min"` // -0.50
	EPSSurpriseMax float64 `yaml:"eps_surprise_max"` // 2.00
	DayReturnMin   float64 `yaml:"day_return_min"`   // -0.50
	DayReturnMax   float64 `yaml:"day_return_max"`   // 1.00
	Pre5DMin       float64 `yaml:"pre_5d_min"`       // -0.30
	Pre5DMax       float64 `yaml:"pre_5d_max"`       // 0.50
	VolatilityMin  float64 `yaml:"volatility_min"`   // 0.05
	VolatilityMax  float64 `yaml:"volatility_max"`   // 2.00
	VolatilityDefault float64 `yaml:"volatility_default"` // 0.30
}

// DefaultBounds returns the production anchor bounds.
func DefaultBounds() Bounds {
	return Bounds{
		EPSSurpriseMin:    -0.50,
		EPSSurpriseMax:    2.00,
		DayReturnMin:      -0.50,
		DayReturnMax:      1.00,
		Pre5DMin:          -0.30,
		Pre5DMax:          0.50,
		VolatilityMin:     0.05,
		VolatilityMax:     2.00,
		VolatilityDefault: 0.30,
	}
}

// Validator sanitizes raw market anchors. It never fails: absent or
// implausible values are defaulted or clamped, and every correction is
// recorded as a data-quality flag.
type Validator struct {
	bounds Bounds
	log    *logger.Logger
}

// NewValidator creates a Validator with the given bounds.
func NewValidator(bounds Bounds, log *logger.Logger) *Validator {
	return &Validator{bounds: bounds, log: log}
}

// Sanitize converts a raw anchor bundle into a bounded one and updates
// the warning counter for each clamp or default applied.
func (v *Validator) Sanitize(symbol string, raw contracts.RawAnchors, warnings *contracts.WarningCounter) contracts.Anchors {
	out := contracts.Anchors{}

	out.EPSSurprise = v.field(symbol, "eps_surprise", raw.EPSSurprise,
		v.bounds.EPSSurpriseMin, v.bounds.EPSSurpriseMax, 0.0, "eps_missing", &out.Flags, warnings)

	out.EarningsDayReturn = v.field(symbol, "earnings_day_return", raw.EarningsDayReturn,
		v.bounds.DayReturnMin, v.bounds.DayReturnMax, 0.0, "day_return_missing", &out.Flags, warnings)

	out.PreEarnings5DReturn = v.field(symbol, "pre_earnings_5d_return", raw.PreEarnings5DReturn,
		v.bounds.Pre5DMin, v.bounds.Pre5DMax, 0.0, "pre_5d_missing", &out.Flags, warnings)

	// Volatility has its own rule: out-of-range values are replaced by
	// the default rather than clamped to the nearest bound.
	switch {
	case raw.StockVolatility == nil:
		out.StockVolatility = v.bounds.VolatilityDefault
		v.flag(symbol, "volatility_missing", &out.Flags)
		if warnings != nil {
			warnings.AnchorDefaults++
		}
	case *raw.StockVolatility < v.bounds.VolatilityMin || *raw.StockVolatility > v.bounds.VolatilityMax:
		out.StockVolatility = v.bounds.VolatilityDefault
		v.flag(symbol, "volatility_implausible", &out.Flags)
		if warnings != nil {
			warnings.AnchorDefaults++
		}
	default:
		out.StockVolatility = *raw.StockVolatility
	}

	return out
}

// field applies the default-if-missing, clamp-if-outside rule for one anchor.
func (v *Validator) field(symbol, name string, raw *float64, min, max, def float64, missingFlag string, flags *[]string, warnings *contracts.WarningCounter) float64 {
	if raw == nil {
		v.flag(symbol, missingFlag, flags)
		if warnings != nil {
			warnings.AnchorDefaults++
		}
		return def
	}

	value := *raw
	if value < min {
		v.flag(symbol, fmt.Sprintf("%s_clamped_low", name), flags)
		if warnings != nil {
			warnings.AnchorClamps++
		}
		return min
	}
	if value > max {
		v.flag(symbol, fmt.Sprintf("%s_clamped_high", name), flags)
		if warnings != nil {
			warnings.AnchorClamps++
		}
		return max
	}

	return value
}

func (v *Validator) flag(symbol, flag string, flags *[]string) {
	*flags = append(*flags, flag)
	if v.log != nil {
		v.log.WithFields(map[string]interface{}{
			"symbol": symbol,
			"flag":   flag,
		}).Debug("anchor sanitized")
	}
}
