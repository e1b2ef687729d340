package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/joonho/earnquant/internal/anchors"
	"github.com/joonho/earnquant/internal/contracts"
	"github.com/joonho/earnquant/internal/risk"
	"github.com/joonho/earnquant/internal/sizing"
	"github.com/joonho/earnquant/internal/strategyconfig"
	"github.com/joonho/earnquant/internal/tiergate"
	"github.com/joonho/earnquant/pkg/logger"
)

// Simulator owns all portfolio state and advances it one session at a
// time through a fixed step order:
//
//  1. regime update
//  2. breaker check
//  3. pending entry fills (decided on an earlier session)
//  4. scheduled exits
//  5. stop-loss exits
//  6. add-on evaluation
//  7. new entry decisions
//  8. mark-to-market, financing, NAV append
//
// The ordering is a correctness contract: exits run before add-ons and
// entries so a position is never both closed and grown in one session,
// and the breaker blocks step 7 only. Everything is single-threaded
// and deterministic; positions are always iterated in sorted key order.
type Simulator struct {
	cfg *strategyconfig.Config
	log *logger.Logger

	calendar  *Calendar
	validator *anchors.Validator
	gate      *tiergate.Classifier
	sizer     *sizing.Sizer
	regimes   *risk.RegimeDetector
	breaker   *risk.CircuitBreaker

	// market data, keyed by dateKey
	bars   map[string]map[string]*contracts.Bar // symbol -> date -> bar
	market map[string]*contracts.MarketDay
	byDate map[string][]*contracts.Signal

	// portfolio state
	cash      float64
	positions map[contracts.PositionKey]*contracts.Position
	entered   map[contracts.PositionKey]bool
	pending   []pendingEntry
	trades    []contracts.TradeRecord
	nav       []contracts.NAVPoint
	peakNAV   float64

	quarterEntries map[quarterKey]int
	warnings       *contracts.WarningCounter

	regime      contracts.Regime
	targetGross float64
	marginPaid  float64
	maxLeverage float64
}

type quarterKey struct {
	Year    int
	Quarter int
}

// pendingEntry is an accepted decision waiting for its fill session.
type pendingEntry struct {
	Signal       *contracts.Signal
	Decision     contracts.TierDecision
	SizeFraction float64
	DecidedDate  time.Time
	FillDate     time.Time
	Regime       contracts.Regime
}

// NewSimulator wires the decision components onto fresh portfolio state.
func NewSimulator(cfg *strategyconfig.Config, cal *Calendar, log *logger.Logger) *Simulator {
	return &Simulator{
		cfg:       cfg,
		log:       log,
		calendar:  cal,
		validator: anchors.NewValidator(cfg.Anchors, log),
		gate:      tiergate.NewClassifier(cfg.Tiers, cfg.Vetoes),
		sizer:     sizing.NewSizer(cfg.Sizing, cfg.Tiers),
		regimes:   risk.NewRegimeDetector(cfg.Regime),
		breaker:   risk.NewCircuitBreaker(cfg.Breaker),

		bars:   make(map[string]map[string]*contracts.Bar),
		market: make(map[string]*contracts.MarketDay),
		byDate: make(map[string][]*contracts.Signal),

		cash:           cfg.Backtest.InitialCash,
		positions:      make(map[contracts.PositionKey]*contracts.Position),
		entered:        make(map[contracts.PositionKey]bool),
		quarterEntries: make(map[quarterKey]int),
		warnings:       &contracts.WarningCounter{},
		regime:         contracts.RegimeNormal,
		peakNAV:        cfg.Backtest.InitialCash,
	}
}

// LoadBars indexes the daily bars by symbol and date.
func (s *Simulator) LoadBars(bars []*contracts.Bar) {
	for _, b := range bars {
		byDate, ok := s.bars[b.Symbol]
		if !ok {
			byDate = make(map[string]*contracts.Bar)
			s.bars[b.Symbol] = byDate
		}
		byDate[dateKey(b.Date)] = b
	}
}

// LoadMarket indexes the VIX/SPY series by date.
func (s *Simulator) LoadMarket(days []*contracts.MarketDay) {
	for _, d := range days {
		s.market[dateKey(d.Date)] = d
	}
}

// LoadSignals sorts the signals by (as_of_date, symbol) and buckets
// them by session. Sorting first makes the run reproducible for any
// input order.
func (s *Simulator) LoadSignals(signals []*contracts.Signal) {
	sorted := make([]*contracts.Signal, len(signals))
	copy(sorted, signals)
	contracts.SortSignals(sorted)
	for _, sig := range sorted {
		key := dateKey(sig.AsOfDate)
		s.byDate[key] = append(s.byDate[key], sig)
	}
}

// Step advances the portfolio through one session.
func (s *Simulator) Step(date time.Time) error {
	// 1-2. Regime and breaker from the session's market context.
	if md, ok := s.market[dateKey(date)]; ok {
		s.regime = s.regimes.Detect(md.VIXClose)
		s.breaker.Observe(risk.DayInput{Date: md.Date, SPYReturn: md.SPYReturn, VIXClose: md.VIXClose})
	}
	s.targetGross = s.regimes.TargetGross(s.regime)

	// 3. Fill entries decided on earlier sessions, at this open.
	if err := s.fillPending(date); err != nil {
		return err
	}

	// 4-5. Exits. Scheduled first so a position cannot be double-closed.
	s.scheduledExits(date)
	s.stopLossExits(date)

	// 6. Add-ons for winners that pulled back.
	s.evaluateAddOns(date)

	// 7. New entry decisions; fills queue for the lagged session.
	s.decideEntries(date)

	// 8. Mark, financing, NAV.
	s.markToMarket(date)

	return nil
}

func (s *Simulator) fillPending(date time.Time) error {
	var remaining []pendingEntry
	for _, pe := range s.pending {
		if !sameDay(pe.FillDate, date) {
			remaining = append(remaining, pe)
			continue
		}
		if date.Before(pe.DecidedDate) {
			return &contracts.LookaheadError{
				Symbol:       pe.Signal.Symbol,
				DataDate:     date,
				DecisionDate: pe.DecidedDate,
			}
		}
		s.openPosition(pe, date)
	}
	s.pending = remaining
	return nil
}

func (s *Simulator) openPosition(pe pendingEntry, date time.Time) {
	bar := s.bar(pe.Signal.Symbol, date)
	if bar == nil {
		// No fill without a bar; the decision lapses.
		s.warnings.StaleCarryForward++
		s.log.WithFields(map[string]interface{}{
			"symbol": pe.Signal.Symbol,
			"date":   dateKey(date),
		}).Warn("Entry fill skipped, no price bar")
		return
	}

	fillBase := bar.Open
	if s.cfg.Exits.EntryLagSessions == 0 {
		fillBase = bar.Close
	}

	equity := s.equity()
	notional := pe.SizeFraction * equity

	// Headroom against the regime's gross target; the divisor keeps the
	// cap intact after commission comes out of equity.
	headroom := (s.targetGross*equity - s.grossExposure()) /
		(1 + s.targetGross*s.cfg.Costs.CommissionBps/10000)
	if notional > headroom {
		notional = headroom
	}
	if notional <= 0 {
		return
	}

	fillPrice := fillBase * (1 + s.cfg.Costs.SlippageBps/10000)
	shares := notional / fillPrice
	commission := notional * s.cfg.Costs.CommissionBps / 10000
	s.cash -= shares*fillPrice + commission

	pos := &contracts.Position{
		Symbol:             pe.Signal.Symbol,
		Year:               pe.Signal.Year,
		Quarter:            pe.Signal.Quarter,
		Tier:               pe.Decision.Tier,
		EntryDate:          date,
		EntryPrice:         fillPrice,
		Shares:             shares,
		OriginalShares:     shares,
		MaxPriceSinceEntry: fillPrice,
		StopLossPrice:      fillPrice * (1 - s.cfg.Exits.StopLossPct),
		LastPrice:          fillPrice,
		EntryRegime:        pe.Regime,
	}
	s.positions[pos.Key()] = pos

	s.log.WithFields(map[string]interface{}{
		"symbol": pos.Symbol,
		"tier":   string(pos.Tier),
		"shares": shares,
		"price":  fillPrice,
		"date":   dateKey(date),
	}).Debug("Position opened")
}

func (s *Simulator) scheduledExits(date time.Time) {
	for _, pos := range s.sortedPositions() {
		if pos.HoldingSessions >= s.cfg.Exits.HoldingSessions {
			price := pos.LastPrice
			if bar := s.bar(pos.Symbol, date); bar != nil {
				price = bar.Close
			}
			s.closePosition(pos, date, price, contracts.ExitScheduled)
		}
	}
}

func (s *Simulator) stopLossExits(date time.Time) {
	for _, pos := range s.sortedPositions() {
		bar := s.bar(pos.Symbol, date)
		if bar == nil {
			if pos.LastPrice <= pos.StopLossPrice {
				s.closePosition(pos, date, pos.LastPrice, contracts.ExitStopLoss)
			}
			continue
		}

		// Conservative fills: a gap through the stop exits at the open,
		// an intraday touch exits at the stop itself.
		switch {
		case bar.Open <= pos.StopLossPrice:
			s.closePosition(pos, date, bar.Open, contracts.ExitStopLoss)
		case bar.Low <= pos.StopLossPrice:
			s.closePosition(pos, date, pos.StopLossPrice, contracts.ExitStopLoss)
		}
	}
}

func (s *Simulator) evaluateAddOns(date time.Time) {
	if !s.cfg.AddOn.Enable {
		return
	}

	for _, pos := range s.sortedPositions() {
		bar := s.bar(pos.Symbol, date)
		if bar == nil {
			continue
		}
		price := bar.Close

		if pos.AddOnCount >= s.cfg.AddOn.MaxAddOns ||
			pos.HoldingSessions < s.cfg.AddOn.MinHoldingSessions ||
			!pos.EverReachedTrigger ||
			price <= pos.EntryPrice {
			continue
		}
		pullback := 1 - price/pos.MaxPriceSinceEntry
		if pullback < s.cfg.AddOn.PullbackPct {
			continue
		}

		// Add-on notional is a fraction of the original entry notional.
		notional := pos.EntryPrice * pos.OriginalShares * s.cfg.AddOn.SizeFraction
		equity := s.equity()
		if s.grossExposure()+notional > s.targetGross*equity {
			continue
		}

		fillPrice := price * (1 + s.cfg.Costs.SlippageBps/10000)
		shares := notional / fillPrice
		commission := notional * s.cfg.Costs.CommissionBps / 10000
		s.cash -= shares*fillPrice + commission

		pos.Shares += shares
		pos.AddOnCount++

		s.log.WithFields(map[string]interface{}{
			"symbol": pos.Symbol,
			"shares": shares,
			"price":  fillPrice,
			"date":   dateKey(date),
		}).Debug("Add-on filled")
	}
}

func (s *Simulator) decideEntries(date time.Time) {
	if !s.breaker.EntriesAllowed() || s.regime == contracts.RegimeStress {
		return
	}

	for _, sig := range s.byDate[dateKey(date)] {
		key := sig.Key()
		if s.entered[key] {
			continue
		}
		if len(s.positions)+len(s.pending) >= s.cfg.Entries.MaxConcurrent {
			return
		}

		qk := quarterKey{Year: sig.Year, Quarter: sig.Quarter}
		if s.quarterEntries[qk] >= s.quarterCap() {
			continue
		}

		a := s.validator.Sanitize(sig.Symbol, sig.Anchors, s.warnings)
		decision := s.gate.Classify(sig, a)
		if !decision.TradeLong {
			if decision.Reason == "direction_out_of_range" {
				s.warnings.MalformedSignals++
			}
			continue
		}

		size := s.sizer.Size(sig, decision, a)
		size *= s.deleverMultiplier()
		if size <= 0 {
			continue
		}

		fillDate, ok := s.calendar.AddSessions(date, s.cfg.Exits.EntryLagSessions)
		if !ok {
			continue // decision too close to the end of the range
		}

		s.entered[key] = true
		s.quarterEntries[qk]++
		s.pending = append(s.pending, pendingEntry{
			Signal:       sig,
			Decision:     decision,
			SizeFraction: size,
			DecidedDate:  date,
			FillDate:     fillDate,
			Regime:       s.regime,
		})
	}
}

// quarterCap is the per-quarter entry cap, halved in RiskOff when
// regime adjustment is on. Stress never reaches here.
func (s *Simulator) quarterCap() int {
	n := s.cfg.Entries.PerQuarterCap
	if s.cfg.Entries.RegimeAdjustedCaps && s.regime == contracts.RegimeRiskOff {
		n /= 2
	}
	return n
}

// deleverMultiplier scales new-entry size by the current drawdown from
// the NAV peak, per the configured steps.
func (s *Simulator) deleverMultiplier() float64 {
	if !s.cfg.Delever.Enable || s.peakNAV <= 0 {
		return 1.0
	}
	drawdown := 1 - s.equity()/s.peakNAV
	mult := 1.0
	for _, step := range s.cfg.Delever.Steps {
		if drawdown >= step.DrawdownPct {
			mult = step.Multiplier
		}
	}
	return mult
}

func (s *Simulator) markToMarket(date time.Time) {
	for _, pos := range s.sortedPositions() {
		bar := s.bar(pos.Symbol, date)
		if bar == nil {
			// Carry the last known price forward; non-fatal.
			pos.StaleSessions++
			s.warnings.StaleCarryForward++
			s.log.WithFields(map[string]interface{}{
				"symbol": pos.Symbol,
				"date":   dateKey(date),
			}).Warn("Missing price bar, carrying last mark forward")
		} else {
			pos.LastPrice = bar.Close
		}

		if pos.LastPrice > pos.MaxPriceSinceEntry {
			pos.MaxPriceSinceEntry = pos.LastPrice
		}
		if pos.LastPrice >= pos.EntryPrice*(1+s.cfg.AddOn.TriggerGainPct) {
			pos.EverReachedTrigger = true
		}
		pos.HoldingSessions++
	}

	// Daily financing on cash borrowed beyond equity.
	if s.cash < 0 {
		interest := -s.cash * s.cfg.Costs.AnnualBorrowRate / 252
		s.cash -= interest
		s.marginPaid += interest
	}

	nav := s.equity()
	if nav > s.peakNAV {
		s.peakNAV = nav
	}
	if nav > 0 {
		if lev := s.grossExposure() / nav; lev > s.maxLeverage {
			s.maxLeverage = lev
		}
	}

	s.nav = append(s.nav, contracts.NAVPoint{
		Date:          date,
		NAV:           nav,
		Cash:          s.cash,
		GrossExposure: s.grossExposure(),
		Regime:        s.regime,
		OpenPositions: len(s.positions),
	})
}

// CloseAll liquidates every open position at its last mark. Used at
// the end of the simulated range; these exits are excluded from the
// holding-period audit.
func (s *Simulator) CloseAll(date time.Time) {
	for _, pos := range s.sortedPositions() {
		s.closePosition(pos, date, pos.LastPrice, contracts.ExitEndOfRun)
	}
}

func (s *Simulator) closePosition(pos *contracts.Position, date time.Time, price float64, reason contracts.ExitReason) {
	exitPrice := price * (1 - s.cfg.Costs.SlippageBps/10000)
	notional := pos.Shares * exitPrice
	commission := notional * s.cfg.Costs.CommissionBps / 10000
	s.cash += notional - commission

	s.trades = append(s.trades, contracts.TradeRecord{
		Symbol:          pos.Symbol,
		Tier:            pos.Tier,
		Year:            pos.Year,
		Quarter:         pos.Quarter,
		EntryDate:       pos.EntryDate,
		ExitDate:        date,
		EntryPrice:      pos.EntryPrice,
		ExitPrice:       exitPrice,
		Shares:          pos.Shares,
		HoldingSessions: pos.HoldingSessions,
		ReturnPct:       exitPrice/pos.EntryPrice - 1,
		AddOnCount:      pos.AddOnCount,
		ExitReason:      reason,
		EntryRegime:     pos.EntryRegime,
	})
	delete(s.positions, pos.Key())

	s.log.WithFields(map[string]interface{}{
		"symbol": pos.Symbol,
		"reason": string(reason),
		"held":   pos.HoldingSessions,
		"return": fmt.Sprintf("%.4f", exitPrice/pos.EntryPrice-1),
		"date":   dateKey(date),
	}).Debug("Position closed")
}

// sortedPositions returns open positions in deterministic key order.
func (s *Simulator) sortedPositions() []*contracts.Position {
	keys := make([]contracts.PositionKey, 0, len(s.positions))
	for k := range s.positions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	out := make([]*contracts.Position, len(keys))
	for i, k := range keys {
		out[i] = s.positions[k]
	}
	return out
}

func (s *Simulator) bar(symbol string, date time.Time) *contracts.Bar {
	byDate, ok := s.bars[symbol]
	if !ok {
		return nil
	}
	return byDate[dateKey(date)]
}

func (s *Simulator) grossExposure() float64 {
	total := 0.0
	for _, pos := range s.positions {
		total += pos.MarketValue()
	}
	return total
}

func (s *Simulator) equity() float64 {
	return s.cash + s.grossExposure()
}

// Equity returns the current mark-to-market equity.
func (s *Simulator) Equity() float64 { return s.equity() }

// Trades returns the append-only ledger so far.
func (s *Simulator) Trades() []contracts.TradeRecord { return s.trades }

// NAV returns the NAV series so far.
func (s *Simulator) NAV() []contracts.NAVPoint { return s.nav }

// Warnings returns the data-quality counters.
func (s *Simulator) Warnings() *contracts.WarningCounter { return s.warnings }

// MarginInterestPaid returns cumulative financing cost.
func (s *Simulator) MarginInterestPaid() float64 { return s.marginPaid }

// MaxLeverage returns the peak gross/NAV observed.
func (s *Simulator) MaxLeverage() float64 { return s.maxLeverage }

func sameDay(a, b time.Time) bool {
	return dateKey(a) == dateKey(b)
}
