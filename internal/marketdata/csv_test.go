package marketdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joonho/earnquant/internal/contracts"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBarsCSV(t *testing.T) {
	path := writeFile(t, "bars.csv",
		"symbol,date,open,high,low,close,volume\n"+
			"UAL,2019-01-17,84.50,86.20,84.10,85.90,5400000\n"+
			"UAL,2019-01-18,86.00,87.00,85.50,86.40,4100000\n")

	bars, err := LoadBarsCSV(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "UAL", bars[0].Symbol)
	assert.Equal(t, "2019-01-17", bars[0].Date.Format("2006-01-02"))
	assert.Equal(t, 84.50, bars[0].Open)
	assert.Equal(t, int64(5400000), bars[0].Volume)
}

func TestLoadMarketCSV(t *testing.T) {
	path := writeFile(t, "market.csv",
		"date,vix_close,spy_return\n"+
			"2019-01-17,18.06,0.0076\n")

	days, err := LoadMarketCSV(path)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 18.06, days[0].VIXClose)
	assert.Equal(t, 0.0076, days[0].SPYReturn)
}

func TestLoadSignalsCSV(t *testing.T) {
	path := writeFile(t, "signals.csv",
		"symbol,as_of_date,year,quarter,sector,direction_score,confidence,reliability_score,evidence_score,contradiction_score,hard_vetoes,soft_vetoes,eps_surprise,earnings_day_return,pre_earnings_5d_return,stock_volatility\n"+
			"UAL,2019-01-16,2019,1,Industrials,8,0.9,0.85,0.8,1.0,,DemandSoftness;MarginWeakness,0.25,0.05,0.06,0.30\n"+
			"AAPL,2019-01-10,2019,1,Technology,7,0.8,0.8,0.7,2.0,GuidanceWithdrawn,,0.10,,,\n")

	signals, err := LoadSignalsCSV(path)
	require.NoError(t, err)
	require.Len(t, signals, 2)

	// Sorted by (as_of_date, symbol): AAPL first
	assert.Equal(t, "AAPL", signals[0].Symbol)
	assert.Equal(t, []contracts.HardVeto{contracts.VetoGuidanceWithdrawn}, signals[0].HardVetoes)
	assert.Empty(t, signals[0].SoftVetoes)
	assert.Nil(t, signals[0].Anchors.EarningsDayReturn, "empty cell stays nil")
	require.NotNil(t, signals[0].Anchors.EPSSurprise)
	assert.Equal(t, 0.10, *signals[0].Anchors.EPSSurprise)

	ual := signals[1]
	assert.Equal(t, "UAL", ual.Symbol)
	assert.Empty(t, ual.HardVetoes)
	assert.Equal(t, []contracts.SoftVetoKind{contracts.SoftDemandSoftness, contracts.SoftMarginWeakness}, ual.SoftVetoes)
	require.NotNil(t, ual.Anchors.StockVolatility)
	assert.Equal(t, 0.30, *ual.Anchors.StockVolatility)
}

func TestLoadBarsCSV_MissingFile(t *testing.T) {
	_, err := LoadBarsCSV("/nonexistent/bars.csv")
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"A"}, splitList("A"))
	assert.Equal(t, []string{"A", "B"}, splitList("A; B;"))
}
