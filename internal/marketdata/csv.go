package marketdata

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/joonho/earnquant/internal/contracts"
)

// Date is a CSV-friendly yyyy-mm-dd date.
type Date struct {
	time.Time
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (d *Date) UnmarshalCSV(csv string) error {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(csv))
	if err != nil {
		return fmt.Errorf("parse date %q: %w", csv, err)
	}
	d.Time = t
	return nil
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (d *Date) MarshalCSV() (string, error) {
	return d.Format("2006-01-02"), nil
}

type barRow struct {
	Symbol string  `csv:"symbol"`
	Date   Date    `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume int64   `csv:"volume"`
}

type marketRow struct {
	Date      Date    `csv:"date"`
	VIXClose  float64 `csv:"vix_close"`
	SPYReturn float64 `csv:"spy_return"`
}

type signalRow struct {
	Symbol             string   `csv:"symbol"`
	AsOfDate           Date     `csv:"as_of_date"`
	Year               int      `csv:"year"`
	Quarter            int      `csv:"quarter"`
	Sector             string   `csv:"sector"`
	DirectionScore     int      `csv:"direction_score"`
	Confidence         float64  `csv:"confidence"`
	ReliabilityScore   float64  `csv:"reliability_score"`
	EvidenceScore      float64  `csv:"evidence_score"`
	ContradictionScore float64  `csv:"contradiction_score"`
	HardVetoes         string   `csv:"hard_vetoes"` // semicolon-separated
	SoftVetoes         string   `csv:"soft_vetoes"` // semicolon-separated
	EPSSurprise        *float64 `csv:"eps_surprise,omitempty"`
	EarningsDayReturn  *float64 `csv:"earnings_day_return,omitempty"`
	PreEarnings5D      *float64 `csv:"pre_earnings_5d_return,omitempty"`
	StockVolatility    *float64 `csv:"stock_volatility,omitempty"`
}

// LoadBarsCSV reads daily bars from a CSV file.
func LoadBarsCSV(path string) ([]*contracts.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*barRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parse bars csv %s: %w", path, err)
	}

	bars := make([]*contracts.Bar, len(rows))
	for i, row := range rows {
		bars[i] = &contracts.Bar{
			Symbol: row.Symbol,
			Date:   row.Date.Time,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		}
	}
	return bars, nil
}

// LoadMarketCSV reads the VIX/SPY series from a CSV file.
func LoadMarketCSV(path string) ([]*contracts.MarketDay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*marketRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parse market csv %s: %w", path, err)
	}

	days := make([]*contracts.MarketDay, len(rows))
	for i, row := range rows {
		days[i] = &contracts.MarketDay{
			Date:      row.Date.Time,
			VIXClose:  row.VIXClose,
			SPYReturn: row.SPYReturn,
		}
	}
	return days, nil
}

// LoadSignalsCSV reads earnings signals from a CSV file. Veto columns
// hold semicolon-separated kind names; empty anchor cells stay nil so
// the validator can apply its defaults.
func LoadSignalsCSV(path string) ([]*contracts.Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*signalRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parse signals csv %s: %w", path, err)
	}

	signals := make([]*contracts.Signal, len(rows))
	for i, row := range rows {
		s := &contracts.Signal{
			Symbol:             row.Symbol,
			AsOfDate:           row.AsOfDate.Time,
			Year:               row.Year,
			Quarter:            row.Quarter,
			Sector:             row.Sector,
			DirectionScore:     row.DirectionScore,
			Confidence:         row.Confidence,
			ReliabilityScore:   row.ReliabilityScore,
			EvidenceScore:      row.EvidenceScore,
			ContradictionScore: row.ContradictionScore,
			Anchors: contracts.RawAnchors{
				EPSSurprise:         row.EPSSurprise,
				EarningsDayReturn:   row.EarningsDayReturn,
				PreEarnings5DReturn: row.PreEarnings5D,
				StockVolatility:     row.StockVolatility,
			},
		}
		for _, v := range splitList(row.HardVetoes) {
			s.HardVetoes = append(s.HardVetoes, contracts.HardVeto(v))
		}
		for _, v := range splitList(row.SoftVetoes) {
			s.SoftVetoes = append(s.SoftVetoes, contracts.SoftVetoKind(v))
		}
		signals[i] = s
	}

	contracts.SortSignals(signals)
	return signals, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
