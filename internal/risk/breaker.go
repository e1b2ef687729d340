package risk

import (
	"time"

	"github.com/joonho/earnquant/internal/strategyconfig"
)

// BreakerState is the circuit breaker's current posture.
type BreakerState string

const (
	BreakerArmed  BreakerState = "Armed"
	BreakerFrozen BreakerState = "Frozen"
)

// DayInput is the market data the breaker evaluates each session.
type DayInput struct {
	Date      time.Time
	SPYReturn float64 // close-to-close
	VIXClose  float64
}

// CircuitBreaker freezes new entries after a market shock. Freeze-only:
// a trip never forces liquidation, existing positions keep running and
// scheduled exits and stops still fire while frozen.
type CircuitBreaker struct {
	cfg strategyconfig.Breaker

	state      BreakerState
	cooldown   int // sessions left in the freeze, including the current one
	prevVIX    float64
	hasPrevVIX bool
}

// NewCircuitBreaker builds a breaker from validated strategy config.
func NewCircuitBreaker(cfg strategyconfig.Breaker) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, state: BreakerArmed}
}

// Observe advances the breaker by one session and returns the state in
// effect for that session. Sessions must be fed in chronological order.
//
// A trip on session T freezes entries for T and the next CooldownDays
// sessions. A second trip while frozen restarts the cooldown.
func (cb *CircuitBreaker) Observe(in DayInput) BreakerState {
	if cb.state == BreakerFrozen {
		cb.cooldown--
		if cb.cooldown <= 0 {
			cb.state = BreakerArmed
		}
	}

	if cb.tripped(in) {
		cb.state = BreakerFrozen
		cb.cooldown = cb.cfg.CooldownDays + 1
	}

	cb.prevVIX = in.VIXClose
	cb.hasPrevVIX = true
	return cb.state
}

// State reports the posture without advancing the clock.
func (cb *CircuitBreaker) State() BreakerState {
	return cb.state
}

// EntriesAllowed reports whether new entries may open this session.
func (cb *CircuitBreaker) EntriesAllowed() bool {
	return cb.state == BreakerArmed
}

func (cb *CircuitBreaker) tripped(in DayInput) bool {
	if in.SPYReturn <= cb.cfg.SPYCrashThreshold {
		return true
	}
	if cb.hasPrevVIX && cb.prevVIX > 0 {
		jump := in.VIXClose/cb.prevVIX - 1
		if jump >= cb.cfg.VIXJumpThreshold {
			return true
		}
	}
	return false
}
