// Package schedule turns recurrence definitions into concrete trigger
// instants. Everything here is pure: no clocks, no side effects.
package schedule

import (
	"time"

	"github.com/deveshub/medminder/internal/domain"
)

// Iter lazily yields the future trigger instants of one schedule in
// chronological order. Instants are strictly after the `from` bound, never
// before the validity start, and never past the end date (which is inclusive
// through the end of its calendar day). All date math happens in the location
// of `from`.
type Iter struct {
	freq     domain.Frequency
	times    []domain.TimeOfDay
	days     map[time.Weekday]bool
	interval int

	from     time.Time
	start    time.Time  // validity start instant
	startDay time.Time  // midnight of start date
	endX     *time.Time // exclusive upper bound (midnight after end date)

	date   time.Time // current candidate date at midnight
	months int       // month step cursor (MONTHLY only)
	ti     int       // index into times for the current date
	done   bool
}

// Occurrences builds an iterator over the schedule's trigger instants after
// `from`, bounded by the medicine's validity window. An AS_NEEDED frequency or
// an empty time set yields an exhausted iterator; rejecting those belongs to
// medicine validation, not here.
func Occurrences(sched domain.Schedule, start time.Time, end *time.Time, from time.Time) *Iter {
	it := &Iter{
		freq:     sched.Frequency,
		interval: sched.Interval,
		from:     from,
		start:    start,
	}
	if it.interval < 1 {
		it.interval = 1
	}
	if sched.Frequency == domain.AsNeeded || len(sched.Times) == 0 {
		it.done = true
		return it
	}

	it.times = make([]domain.TimeOfDay, len(sched.Times))
	copy(it.times, sched.Times)
	domain.SortTimes(it.times)

	if sched.Frequency.NeedsDays() {
		it.days = make(map[time.Weekday]bool, len(sched.DaysOfWeek))
		for _, d := range sched.DaysOfWeek {
			it.days[d] = true
		}
	}

	loc := from.Location()
	it.startDay = midnight(start.In(loc))
	if end != nil {
		x := midnight(end.In(loc)).AddDate(0, 0, 1)
		it.endX = &x
	}

	first := midnight(from.In(loc))
	if first.Before(it.startDay) {
		first = it.startDay
	}

	switch sched.Frequency {
	case domain.Daily:
		// Align to interval steps counted from the start date.
		k := daysBetween(it.startDay, first)
		if rem := k % it.interval; rem != 0 {
			k += it.interval - rem
		}
		it.date = it.startDay.AddDate(0, 0, k)
	case domain.Monthly:
		it.months = 0
		it.date = it.monthDate(0)
		for it.date.Before(first) {
			it.months += it.interval
			it.date = it.monthDate(it.months)
			if it.months > 12*200 { // runaway guard
				it.done = true
				return it
			}
		}
	default: // WEEKLY / SPECIFIC_DAYS step one day at a time
		it.date = first
	}
	return it
}

// Next returns the next trigger instant, or false once the schedule is
// exhausted within its bounds. A single call never scans more than a bounded
// number of candidate dates.
func (it *Iter) Next() (time.Time, bool) {
	if it.done {
		return time.Time{}, false
	}
	maxScan := 7*it.interval + 366
	for scans := 0; scans < maxScan; scans++ {
		if it.endX != nil && !it.date.Before(*it.endX) {
			it.done = true
			return time.Time{}, false
		}
		if it.matches(it.date) {
			for it.ti < len(it.times) {
				tod := it.times[it.ti]
				it.ti++
				at := tod.At(it.date)
				if !at.After(it.from) || at.Before(it.start) {
					continue
				}
				if it.endX != nil && !at.Before(*it.endX) {
					it.done = true
					return time.Time{}, false
				}
				return at, true
			}
		}
		it.ti = 0
		it.advance()
	}
	it.done = true
	return time.Time{}, false
}

// matches reports whether a candidate date should emit at all. Daily and
// monthly cursors only ever visit valid dates; weekly filters by day set and
// interval-week alignment counted from the start date's week.
func (it *Iter) matches(date time.Time) bool {
	if !it.freq.NeedsDays() {
		return true
	}
	if !it.days[date.Weekday()] {
		return false
	}
	weeks := daysBetween(startOfWeek(it.startDay), date) / 7
	return weeks%it.interval == 0
}

func (it *Iter) advance() {
	switch it.freq {
	case domain.Daily:
		it.date = it.date.AddDate(0, 0, it.interval)
	case domain.Monthly:
		it.months += it.interval
		it.date = it.monthDate(it.months)
	default:
		it.date = it.date.AddDate(0, 0, 1)
	}
}

// monthDate returns the start date's day-of-month shifted by the given number
// of months, clamped to the target month's length (Jan 31 + 1 month = Feb 28/29).
func (it *Iter) monthDate(months int) time.Time {
	anchor := time.Date(it.startDay.Year(), it.startDay.Month(), 1, 0, 0, 0, 0, it.startDay.Location())
	shifted := anchor.AddDate(0, months, 0)
	day := it.startDay.Day()
	if last := daysInMonth(shifted); day > last {
		day = last
	}
	return time.Date(shifted.Year(), shifted.Month(), day, 0, 0, 0, 0, shifted.Location())
}

// Next returns the single next trigger instant after `from`.
func Next(sched domain.Schedule, start time.Time, end *time.Time, from time.Time) (time.Time, bool) {
	return Occurrences(sched, start, end, from).Next()
}

// Within collects the trigger instants in (from, to). The result is capped;
// callers ask for windows of at most a day or two.
func Within(sched domain.Schedule, start time.Time, end *time.Time, from, to time.Time) []time.Time {
	const limit = 1000
	it := Occurrences(sched, start, end, from)
	var out []time.Time
	for len(out) < limit {
		at, ok := it.Next()
		if !ok || !at.Before(to) {
			break
		}
		out = append(out, at)
	}
	return out
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from a to b, both at midnight. Rounding
// absorbs DST-shortened and -lengthened days.
func daysBetween(a, b time.Time) int {
	d := b.Sub(a)
	days := int(d.Hours() / 24)
	if rem := d - time.Duration(days)*24*time.Hour; rem > 12*time.Hour {
		days++
	} else if rem < -12*time.Hour {
		days--
	}
	return days
}

// startOfWeek returns the Monday midnight of the date's week.
func startOfWeek(date time.Time) time.Time {
	wd := int(date.Weekday())
	if wd == 0 {
		wd = 7 // Sunday closes the week
	}
	return date.AddDate(0, 0, -(wd - 1))
}

func daysInMonth(t time.Time) int {
	firstNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
	return firstNext.AddDate(0, 0, -1).Day()
}
