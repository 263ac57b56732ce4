package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyName         = errors.New("medicine name cannot be empty")
	ErrNonPositiveDosage = errors.New("dosage amount must be positive")
	ErrNoTimes           = errors.New("schedule must include at least one time")
	ErrNoDays            = errors.New("weekly schedule must select at least one day")
	ErrBadInterval       = errors.New("schedule interval must be at least 1")
	ErrEndBeforeStart    = errors.New("end date cannot be before start date")
	ErrBadSnooze         = errors.New("snooze interval must be positive")
	ErrBadSnoozeBudget   = errors.New("max snooze count cannot be negative")
)

// Validate rejects a medicine before anything is scheduled for it. Reminder
// firing and status recording assume these invariants hold.
func Validate(m *Medicine) error {
	if m == nil {
		return errors.New("nil medicine")
	}
	if len(m.Name) == 0 || allSpace(m.Name) {
		return ErrEmptyName
	}
	if m.Dosage.Amount <= 0 {
		return ErrNonPositiveDosage
	}
	if err := validateSchedule(&m.Schedule); err != nil {
		return err
	}
	if m.EndDate != nil && m.EndDate.Before(m.StartDate) {
		return ErrEndBeforeStart
	}
	if m.Reminder.SnoozeInterval <= 0 {
		return ErrBadSnooze
	}
	if m.Reminder.MaxSnoozeCount < 0 {
		return ErrBadSnoozeBudget
	}
	return nil
}

func validateSchedule(s *Schedule) error {
	switch s.Frequency {
	case Daily, Weekly, Monthly, AsNeeded, SpecificDays:
	default:
		return fmt.Errorf("unknown frequency %q", s.Frequency)
	}
	if s.Frequency != AsNeeded && len(s.Times) == 0 {
		return ErrNoTimes
	}
	if s.Frequency.NeedsDays() && len(s.DaysOfWeek) == 0 {
		return ErrNoDays
	}
	if s.Interval < 1 {
		return ErrBadInterval
	}
	return nil
}

func allSpace(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' {
			return false
		}
	}
	return true
}
