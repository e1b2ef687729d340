package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joonho/earnquant/internal/strategyconfig"
)

func day(offset int, spyRet, vix float64) DayInput {
	base := time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)
	return DayInput{Date: base.AddDate(0, 0, offset), SPYReturn: spyRet, VIXClose: vix}
}

func TestBreaker_SPYCrashTrips(t *testing.T) {
	cb := NewCircuitBreaker(strategyconfig.Default().Breaker)

	assert.Equal(t, BreakerArmed, cb.Observe(day(0, 0.001, 15)))
	assert.True(t, cb.EntriesAllowed())

	// -4% day trips the freeze
	assert.Equal(t, BreakerFrozen, cb.Observe(day(1, -0.04, 18)))
	assert.False(t, cb.EntriesAllowed())
}

func TestBreaker_VIXJumpTrips(t *testing.T) {
	cb := NewCircuitBreaker(strategyconfig.Default().Breaker)

	assert.Equal(t, BreakerArmed, cb.Observe(day(0, 0.002, 20)))
	// 20 -> 26 is a +30% jump
	assert.Equal(t, BreakerFrozen, cb.Observe(day(1, 0.001, 26)))
}

func TestBreaker_NoVIXJumpOnFirstSession(t *testing.T) {
	cb := NewCircuitBreaker(strategyconfig.Default().Breaker)

	// No prior close, so a high absolute VIX alone does not trip
	assert.Equal(t, BreakerArmed, cb.Observe(day(0, 0.001, 45)))
}

func TestBreaker_CooldownThaws(t *testing.T) {
	cb := NewCircuitBreaker(strategyconfig.Default().Breaker) // cooldown 3

	cb.Observe(day(0, -0.05, 30))
	assert.Equal(t, BreakerFrozen, cb.State())

	// Frozen for the trip session plus three more
	assert.Equal(t, BreakerFrozen, cb.Observe(day(1, 0.01, 30)))
	assert.Equal(t, BreakerFrozen, cb.Observe(day(2, 0.01, 30)))
	assert.Equal(t, BreakerFrozen, cb.Observe(day(3, 0.01, 30)))
	assert.Equal(t, BreakerArmed, cb.Observe(day(4, 0.01, 30)))
	assert.True(t, cb.EntriesAllowed())
}

func TestBreaker_RetripRestartsCooldown(t *testing.T) {
	cb := NewCircuitBreaker(strategyconfig.Default().Breaker)

	cb.Observe(day(0, -0.05, 30))
	cb.Observe(day(1, 0.01, 30))
	// Second crash while frozen restarts the clock
	assert.Equal(t, BreakerFrozen, cb.Observe(day(2, -0.06, 40)))
	assert.Equal(t, BreakerFrozen, cb.Observe(day(3, 0.01, 40)))
	assert.Equal(t, BreakerFrozen, cb.Observe(day(4, 0.01, 40)))
	assert.Equal(t, BreakerFrozen, cb.Observe(day(5, 0.01, 40)))
	assert.Equal(t, BreakerArmed, cb.Observe(day(6, 0.01, 40)))
}

func TestBreaker_VIXDropDoesNotTrip(t *testing.T) {
	cb := NewCircuitBreaker(strategyconfig.Default().Breaker)

	cb.Observe(day(0, 0.001, 40))
	assert.Equal(t, BreakerArmed, cb.Observe(day(1, 0.001, 25)))
}
