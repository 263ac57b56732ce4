package domain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return TimeOfDay{}, errors.New("expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, errors.New("invalid hour")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, errors.New("invalid minute")
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// At combines the wall-clock time with the calendar date of base, in base's
// location.
func (t TimeOfDay) At(base time.Time) time.Time {
	return time.Date(base.Year(), base.Month(), base.Day(), t.Hour, t.Minute, 0, 0, base.Location())
}

// SortTimes orders times ascending in place.
func SortTimes(ts []TimeOfDay) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Minutes() < ts[j].Minutes() })
}

// ParseWeekday parses a stored weekday name ("MONDAY".."SUNDAY").
func ParseWeekday(s string) (time.Weekday, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SUNDAY":
		return time.Sunday, nil
	case "MONDAY":
		return time.Monday, nil
	case "TUESDAY":
		return time.Tuesday, nil
	case "WEDNESDAY":
		return time.Wednesday, nil
	case "THURSDAY":
		return time.Thursday, nil
	case "FRIDAY":
		return time.Friday, nil
	case "SATURDAY":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// WeekdayName is the stored form of a weekday.
func WeekdayName(d time.Weekday) string {
	return strings.ToUpper(d.String())
}
