// Package availability resolves open/closed state and the next transition
// instant of a place from its weekly opening periods. Resolve is a pure
// function; callers supply the local "now" explicitly (see LocalInstant).
package availability

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	minutesPerDay  = 24 * 60
	minutesPerWeek = 7 * minutesPerDay
)

// Instant is a point in the weekly cycle. Day is 0 (Sunday) to 6 (Saturday),
// Minute is minutes since local midnight (0 to 1439).
type Instant struct {
	Day    int `json:"day"`
	Minute int `json:"minute"`
}

// NewInstant builds an Instant from a weekday and an "HHMM" or "HH:MM" time.
func NewInstant(day int, clock string) (Instant, error) {
	if day < 0 || day > 6 {
		return Instant{}, fmt.Errorf("weekday %d out of range", day)
	}
	m, err := ParseClock(clock)
	if err != nil {
		return Instant{}, err
	}
	return Instant{Day: day, Minute: m}, nil
}

// Clock renders the time of day as "HH:MM".
func (i Instant) Clock() string {
	return fmt.Sprintf("%02d:%02d", i.Minute/60, i.Minute%60)
}

// HHMM renders the time of day in the compact provider form ("0930").
func (i Instant) HHMM() string {
	return fmt.Sprintf("%02d%02d", i.Minute/60, i.Minute%60)
}

func (i Instant) String() string { return fmt.Sprintf("%s %s", time.Weekday(i.Day), i.Clock()) }

func (i Instant) weekMinute() int { return i.Day*minutesPerDay + i.Minute }

// Period is one weekly opening interval. A Close on the same day but earlier
// than Open encodes an overnight span closing on the following day.
type Period struct {
	Open  Instant `json:"open"`
	Close Instant `json:"close"`
}

// NewPeriod builds a period from provider fields. An empty closeClock means
// the period has no close instant and ends at 23:59 of its open day.
func NewPeriod(openDay int, openClock string, closeDay int, closeClock string) (Period, error) {
	open, err := NewInstant(openDay, openClock)
	if err != nil {
		return Period{}, fmt.Errorf("open: %w", err)
	}
	if strings.TrimSpace(closeClock) == "" {
		return Period{Open: open, Close: Instant{Day: openDay, Minute: minutesPerDay - 1}}, nil
	}
	closing, err := NewInstant(closeDay, closeClock)
	if err != nil {
		return Period{}, fmt.Errorf("close: %w", err)
	}
	return Period{Open: open, Close: closing}, nil
}

// span returns the period as [start, end) in week minutes. The end may exceed
// one week for spans wrapping past Saturday night. A period closing at its
// own open instant is empty: end == start.
func (p Period) span() (int, int) {
	closing := p.Close
	if closing.Day == p.Open.Day && closing.Minute < p.Open.Minute {
		closing.Day = (p.Open.Day + 1) % 7
	}
	start, end := p.Open.weekMinute(), closing.weekMinute()
	if end < start {
		end += minutesPerWeek
	}
	return start, end
}

func (p Period) empty() bool {
	start, end := p.span()
	return start == end
}

// closeInstant returns the normalized close instant (overnight spans moved
// to the following day).
func (p Period) closeInstant() Instant {
	_, end := p.span()
	end %= minutesPerWeek
	return Instant{Day: end / minutesPerDay, Minute: end % minutesPerDay}
}

// State is the resolved availability. Next is nil only when no period ever
// opens.
type State struct {
	Open bool     `json:"is_open"`
	Next *Instant `json:"next_transition,omitempty"`
}

// Resolve computes the availability at now.
//
// Periods are sorted by open instant. A place is open when now lies within
// [open, close) of a period, including the portion of an overnight span that
// spills into the next day; the next transition is then that period's close.
// Otherwise the next transition is the first later opening, wrapping to the
// first period of the week. Overlapping periods resolve to the first match in
// sorted order. Empty periods are ignored.
func Resolve(periods []Period, now Instant) State {
	sorted := make([]Period, 0, len(periods))
	for _, p := range periods {
		if !p.empty() {
			sorted = append(sorted, p)
		}
	}
	if len(sorted) == 0 {
		return State{}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Open.weekMinute() < sorted[j].Open.weekMinute()
	})

	t := now.weekMinute()
	for _, p := range sorted {
		start, end := p.span()
		if (t >= start && t < end) || (t+minutesPerWeek >= start && t+minutesPerWeek < end) {
			next := p.closeInstant()
			return State{Open: true, Next: &next}
		}
	}

	for _, p := range sorted {
		if p.Open.weekMinute() > t {
			next := p.Open
			return State{Open: false, Next: &next}
		}
	}
	next := sorted[0].Open
	return State{Open: false, Next: &next}
}

// ParseClock parses "HHMM" or "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	digits := strings.Replace(s, ":", "", 1)
	if len(digits) == 3 {
		digits = "0" + digits
	}
	if len(digits) != 4 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	hh, err := strconv.Atoi(digits[:2])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	mm, err := strconv.Atoi(digits[2:])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if hh == 24 && mm == 0 {
		return minutesPerDay - 1, nil
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return hh*60 + mm, nil
}

// LocalInstant converts t into the weekly instant of the named IANA zone.
// Unknown or empty zones fall back to UTC.
func LocalInstant(t time.Time, tz string) Instant {
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		loc = time.UTC
	}
	lt := t.In(loc)
	return Instant{Day: int(lt.Weekday()), Minute: lt.Hour()*60 + lt.Minute()}
}
