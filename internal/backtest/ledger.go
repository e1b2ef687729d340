package backtest

import (
	"github.com/joonho/earnquant/internal/contracts"
)

// AuditTrades verifies the closed ledger against the holding-period
// contract. Every trade must have been held between
// contracts.MinHoldingSessions and contracts.MaxHoldingSessions
// inclusive, unless a stop-loss cut it short; end-of-run liquidations
// are exempt. An exit dated before its entry is a lookahead violation.
//
// A failed audit invalidates the whole run: errors unwrap to
// contracts.ErrRunInvalid.
func AuditTrades(trades []contracts.TradeRecord) error {
	for _, tr := range trades {
		if tr.ExitDate.Before(tr.EntryDate) {
			return &contracts.LookaheadError{
				Symbol:       tr.Symbol,
				DataDate:     tr.EntryDate,
				DecisionDate: tr.ExitDate,
			}
		}

		if tr.ExitReason == contracts.ExitEndOfRun || tr.ExitReason == contracts.ExitStopLoss {
			continue
		}

		if tr.HoldingSessions < contracts.MinHoldingSessions || tr.HoldingSessions > contracts.MaxHoldingSessions {
			return &contracts.HoldingPeriodError{
				Trade: tr,
				Min:   contracts.MinHoldingSessions,
				Max:   contracts.MaxHoldingSessions,
			}
		}
	}
	return nil
}
