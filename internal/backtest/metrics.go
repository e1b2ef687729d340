package backtest

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/joonho/earnquant/internal/contracts"
)

// Metrics summarizes a completed run.
type Metrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	CAGR             float64 `json:"cagr"`
	Volatility       float64 `json:"volatility"` // annualized
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	WinRate          float64 `json:"win_rate"`

	TotalTrades    int `json:"total_trades"`
	WinningTrades  int `json:"winning_trades"`
	LosingTrades   int `json:"losing_trades"`

	TradesByTier   map[contracts.Tier]int   `json:"trades_by_tier"`
	TradesByRegime map[contracts.Regime]int `json:"trades_by_regime"`

	MarginInterestPaid float64 `json:"margin_interest_paid"`
	MaxLeverage        float64 `json:"max_leverage"`
}

// ComputeMetrics derives performance statistics from the NAV series
// and the closed ledger. Risk-free rate is taken as zero.
func ComputeMetrics(nav []contracts.NAVPoint, trades []contracts.TradeRecord, initialCash float64) Metrics {
	m := Metrics{
		TradesByTier:   make(map[contracts.Tier]int),
		TradesByRegime: make(map[contracts.Regime]int),
	}
	if len(nav) == 0 || initialCash <= 0 {
		return m
	}

	final := nav[len(nav)-1].NAV
	m.TotalReturn = final/initialCash - 1

	years := float64(len(nav)) / 252.0
	if years > 0 {
		m.AnnualizedReturn = m.TotalReturn / years
		if final > 0 {
			m.CAGR = math.Pow(final/initialCash, 1/years) - 1
		}
	}

	daily := make([]float64, 0, len(nav)-1)
	downside := make([]float64, 0)
	for i := 1; i < len(nav); i++ {
		prev := nav[i-1].NAV
		if prev <= 0 {
			continue
		}
		r := nav[i].NAV/prev - 1
		daily = append(daily, r)
		if r < 0 {
			downside = append(downside, r)
		}
	}

	if sd, err := stats.StandardDeviation(daily); err == nil {
		m.Volatility = sd * math.Sqrt(252)
	}
	if m.Volatility > 0 {
		m.SharpeRatio = m.AnnualizedReturn / m.Volatility
	}
	if dd, err := stats.StandardDeviation(downside); err == nil {
		if annualized := dd * math.Sqrt(252); annualized > 0 {
			m.SortinoRatio = m.AnnualizedReturn / annualized
		}
	}

	m.MaxDrawdown = maxDrawdown(nav)

	for _, tr := range trades {
		m.TotalTrades++
		if tr.ReturnPct > 0 {
			m.WinningTrades++
		} else if tr.ReturnPct < 0 {
			m.LosingTrades++
		}
		m.TradesByTier[tr.Tier]++
		m.TradesByRegime[tr.EntryRegime]++
	}
	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	}

	return m
}

func maxDrawdown(nav []contracts.NAVPoint) float64 {
	maxDD := 0.0
	peak := nav[0].NAV
	for _, p := range nav {
		if p.NAV > peak {
			peak = p.NAV
		}
		if peak > 0 {
			if dd := (peak - p.NAV) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
