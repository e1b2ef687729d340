package backtest

import (
	"time"
)

// Calendar is a US-equity trading calendar over a fixed date range.
// Sessions exclude weekends and NYSE full-day holidays. All session
// arithmetic in the engine goes through this index.
type Calendar struct {
	sessions []time.Time
	index    map[string]int
}

// NewCalendar builds the session index for [from, to] inclusive.
func NewCalendar(from, to time.Time) *Calendar {
	c := &Calendar{index: make(map[string]int)}

	for d := dateOnly(from); !d.After(dateOnly(to)); d = d.AddDate(0, 0, 1) {
		if !IsTradingDay(d) {
			continue
		}
		c.index[dateKey(d)] = len(c.sessions)
		c.sessions = append(c.sessions, d)
	}

	return c
}

// Sessions returns all sessions in order.
func (c *Calendar) Sessions() []time.Time {
	return c.sessions
}

// IsSession reports whether the date is a trading session in range.
func (c *Calendar) IsSession(d time.Time) bool {
	_, ok := c.index[dateKey(d)]
	return ok
}

// Index returns the session ordinal of a date.
func (c *Calendar) Index(d time.Time) (int, bool) {
	i, ok := c.index[dateKey(d)]
	return i, ok
}

// AddSessions returns the session n trading days after d. The second
// return is false when d is not a session or the result runs off the
// end of the range.
func (c *Calendar) AddSessions(d time.Time, n int) (time.Time, bool) {
	i, ok := c.index[dateKey(d)]
	if !ok {
		return time.Time{}, false
	}
	j := i + n
	if j < 0 || j >= len(c.sessions) {
		return time.Time{}, false
	}
	return c.sessions[j], true
}

// SessionsBetween counts sessions elapsed from one session to another,
// exclusive of the start. Same date yields 0.
func (c *Calendar) SessionsBetween(from, to time.Time) (int, bool) {
	i, ok := c.index[dateKey(from)]
	if !ok {
		return 0, false
	}
	j, ok := c.index[dateKey(to)]
	if !ok {
		return 0, false
	}
	return j - i, true
}

// IsTradingDay reports whether the date is a weekday and not a NYSE
// full-day holiday.
func IsTradingDay(d time.Time) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !isHoliday(dateOnly(d))
}

func isHoliday(d time.Time) bool {
	y := d.Year()

	for _, h := range []time.Time{
		observed(time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)),
		nthWeekday(y, time.January, time.Monday, 3),   // MLK Day
		nthWeekday(y, time.February, time.Monday, 3),  // Washington's Birthday
		goodFriday(y),
		lastWeekday(y, time.May, time.Monday), // Memorial Day
		observed(time.Date(y, time.July, 4, 0, 0, 0, 0, time.UTC)),
		nthWeekday(y, time.September, time.Monday, 1), // Labor Day
		nthWeekday(y, time.November, time.Thursday, 4), // Thanksgiving
		observed(time.Date(y, time.December, 25, 0, 0, 0, 0, time.UTC)),
	} {
		if d.Equal(h) {
			return true
		}
	}

	// Juneteenth became a market holiday in 2022
	if y >= 2022 && d.Equal(observed(time.Date(y, time.June, 19, 0, 0, 0, 0, time.UTC))) {
		return true
	}

	return false
}

// observed shifts a fixed-date holiday falling on a weekend: Saturday
// observes Friday, Sunday observes Monday.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+(n-1)*7)
}

func lastWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(wd) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// goodFriday is two days before Easter Sunday (Gregorian computus).
func goodFriday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	easter := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return easter.AddDate(0, 0, -2)
}

func dateOnly(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func dateKey(d time.Time) string {
	return d.Format("2006-01-02")
}
