package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joonho/earnquant/internal/contracts"
)

func navSeries(values ...float64) []contracts.NAVPoint {
	points := make([]contracts.NAVPoint, len(values))
	day := d("2019-01-02")
	for i, v := range values {
		points[i] = contracts.NAVPoint{Date: day.AddDate(0, 0, i), NAV: v}
	}
	return points
}

func TestComputeMetrics_Empty(t *testing.T) {
	m := ComputeMetrics(nil, nil, 1_000_000)
	assert.Zero(t, m.TotalReturn)
	assert.Zero(t, m.TotalTrades)
}

func TestComputeMetrics_ReturnsAndDrawdown(t *testing.T) {
	nav := navSeries(100, 110, 121, 108.9, 119.79)
	m := ComputeMetrics(nav, nil, 100)

	assert.InDelta(t, 0.1979, m.TotalReturn, 1e-9)
	// Peak 121, trough 108.9
	assert.InDelta(t, 0.10, m.MaxDrawdown, 1e-9)
	assert.Greater(t, m.Volatility, 0.0)
	assert.Greater(t, m.SharpeRatio, 0.0)
}

func TestComputeMetrics_TradeBreakdown(t *testing.T) {
	trades := []contracts.TradeRecord{
		{Symbol: "UAL", Tier: contracts.TierD8Mega, ReturnPct: 0.12, EntryRegime: contracts.RegimeNormal},
		{Symbol: "DAL", Tier: contracts.TierD7Core, ReturnPct: -0.05, EntryRegime: contracts.RegimeNormal},
		{Symbol: "LUV", Tier: contracts.TierD8Mega, ReturnPct: 0.03, EntryRegime: contracts.RegimeRiskOff},
	}
	m := ComputeMetrics(navSeries(100, 101), trades, 100)

	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.InDelta(t, 2.0/3.0, m.WinRate, 1e-9)
	assert.Equal(t, 2, m.TradesByTier[contracts.TierD8Mega])
	assert.Equal(t, 1, m.TradesByTier[contracts.TierD7Core])
	assert.Equal(t, 2, m.TradesByRegime[contracts.RegimeNormal])
	assert.Equal(t, 1, m.TradesByRegime[contracts.RegimeRiskOff])
}

func TestComputeMetrics_LossesSkewSortino(t *testing.T) {
	nav := navSeries(100, 102, 99, 101, 98, 100, 103)
	m := ComputeMetrics(nav, nil, 100)

	assert.NotZero(t, m.SortinoRatio)
	assert.NotZero(t, m.Volatility)
}
