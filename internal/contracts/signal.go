package contracts

import (
	"sort"
	"time"
)

// HardVeto unconditionally blocks a trade regardless of score.
type HardVeto string

const (
	VetoGuidanceWithdrawn      HardVeto = "GuidanceWithdrawn"
	VetoAccountingIrregularity HardVeto = "AccountingIrregularity"
	VetoLiquidityCrisis        HardVeto = "LiquidityCrisis"
	VetoCovenantBreach         HardVeto = "CovenantBreach"
	VetoGoingConcern           HardVeto = "GoingConcern"
)

// SoftVetoKind reduces conviction multiplicatively but does not block.
type SoftVetoKind string

const (
	SoftDemandSoftness      SoftVetoKind = "DemandSoftness"
	SoftMarginWeakness      SoftVetoKind = "MarginWeakness"
	SoftVisibilityWorsening SoftVetoKind = "VisibilityWorsening"
	SoftCashBurn            SoftVetoKind = "CashBurn"
	SoftHiddenGuidanceCut   SoftVetoKind = "HiddenGuidanceCut"
	SoftNeutralVeto         SoftVetoKind = "NeutralVeto"
)

// RawAnchors carries the market anchors exactly as supplied upstream.
// Nil means the value was absent; the anchor validator supplies defaults.
type RawAnchors struct {
	EPSSurprise         *float64 `json:"eps_surprise,omitempty"`
	EarningsDayReturn   *float64 `json:"earnings_day_return,omitempty"`
	PreEarnings5DReturn *float64 `json:"pre_earnings_5d_return,omitempty"`
	StockVolatility     *float64 `json:"stock_volatility,omitempty"`
}

// Anchors is the sanitized anchor bundle consumed by the gate and sizer.
// Values are always within their plausible ranges; Flags records every
// clamp or default that was applied.
type Anchors struct {
	EPSSurprise         float64  `json:"eps_surprise"`
	EarningsDayReturn   float64  `json:"earnings_day_return"`
	PreEarnings5DReturn float64  `json:"pre_earnings_5d_return"`
	StockVolatility     float64  `json:"stock_volatility"`
	Flags               []string `json:"flags,omitempty"`
}

// Signal is one earnings-call decision input, one per symbol x quarter.
// All fields must have been observable strictly before AsOfDate + 1 session.
type Signal struct {
	Symbol   string    `json:"symbol"`
	AsOfDate time.Time `json:"as_of_date"`
	Year     int       `json:"year"`
	Quarter  int       `json:"quarter"` // 1-4
	Sector   string    `json:"sector"`

	DirectionScore     int     `json:"direction_score"`     // 0-10
	Confidence         float64 `json:"confidence"`          // 0-1
	ReliabilityScore   float64 `json:"reliability_score"`   // 0-1
	EvidenceScore      float64 `json:"evidence_score"`      // 0-1
	ContradictionScore float64 `json:"contradiction_score"` // 0-10

	HardVetoes []HardVeto     `json:"hard_vetoes,omitempty"`
	SoftVetoes []SoftVetoKind `json:"soft_vetoes,omitempty"`

	Anchors RawAnchors `json:"market_anchors"`
}

// Key returns the position key this signal would open.
func (s *Signal) Key() PositionKey {
	return PositionKey{Symbol: s.Symbol, Year: s.Year, Quarter: s.Quarter}
}

// HasHardVeto reports whether any hard veto is present.
func (s *Signal) HasHardVeto() bool {
	return len(s.HardVetoes) > 0
}

// SortSignals orders signals by (as_of_date, symbol) in place.
// The simulator requires this ordering so two runs over the same
// signal set always produce the same trade ledger.
func SortSignals(signals []*Signal) {
	sort.SliceStable(signals, func(i, j int) bool {
		if !signals[i].AsOfDate.Equal(signals[j].AsOfDate) {
			return signals[i].AsOfDate.Before(signals[j].AsOfDate)
		}
		return signals[i].Symbol < signals[j].Symbol
	})
}
