package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AdherenceStatus is the user's recorded response to the latest reminder cycle.
type AdherenceStatus string

const (
	StatusPending AdherenceStatus = "PENDING"
	StatusTaken   AdherenceStatus = "TAKEN"
	StatusSkipped AdherenceStatus = "SKIPPED"
	StatusSnoozed AdherenceStatus = "SNOOZED"
)

// ParseStatus validates a stored status string.
func ParseStatus(s string) (AdherenceStatus, error) {
	switch AdherenceStatus(s) {
	case StatusPending, StatusTaken, StatusSkipped, StatusSnoozed:
		return AdherenceStatus(s), nil
	}
	return "", fmt.Errorf("unknown adherence status %q", s)
}

// Terminal reports whether the status ends a reminder cycle.
func (s AdherenceStatus) Terminal() bool {
	return s == StatusTaken || s == StatusSkipped
}

type DosageUnit string

const (
	UnitPill  DosageUnit = "PILL"
	UnitML    DosageUnit = "ML"
	UnitMG    DosageUnit = "MG"
	UnitG     DosageUnit = "G"
	UnitDrops DosageUnit = "DROPS"
	UnitPuffs DosageUnit = "PUFFS"
	UnitUnits DosageUnit = "UNITS"
)

type Dosage struct {
	Amount float64
	Unit   DosageUnit
}

// Frequency describes how a schedule repeats.
type Frequency string

const (
	Daily        Frequency = "DAILY"
	Weekly       Frequency = "WEEKLY"
	Monthly      Frequency = "MONTHLY"
	AsNeeded     Frequency = "AS_NEEDED"
	SpecificDays Frequency = "SPECIFIC_DAYS"
)

// NeedsDays reports whether the frequency requires a non-empty day-of-week set.
func (f Frequency) NeedsDays() bool {
	return f == Weekly || f == SpecificDays
}

// Schedule is a recurrence definition. Times are wall-clock times of day,
// ordered ascending; a concrete instant exists only once a calendar date is
// combined with one of them.
type Schedule struct {
	Frequency  Frequency
	Times      []TimeOfDay
	DaysOfWeek []time.Weekday // set only for WEEKLY / SPECIFIC_DAYS
	Interval   int            // every N periods (days/weeks/months), >= 1
}

// ReminderSettings controls how a fired occurrence presents itself.
type ReminderSettings struct {
	Enabled          bool
	SoundEnabled     bool
	VibrationEnabled bool
	FullScreenAlert  bool
	SnoozeInterval   int // minutes, > 0
	MaxSnoozeCount   int // >= 0
}

// DefaultReminderSettings mirrors the defaults applied at creation time.
func DefaultReminderSettings() ReminderSettings {
	return ReminderSettings{
		Enabled:          true,
		SoundEnabled:     true,
		VibrationEnabled: true,
		FullScreenAlert:  false,
		SnoozeInterval:   10,
		MaxSnoozeCount:   3,
	}
}

// Medicine is the aggregate root. The repository owns the persistent record;
// everything else works on transient copies.
type Medicine struct {
	ID               uuid.UUID
	Name             string
	Dosage           Dosage
	Schedule         Schedule
	Instructions     string
	StartDate        time.Time
	EndDate          *time.Time // inclusive through the end of its day
	Reminder         ReminderSettings
	Status           AdherenceStatus
	LastStatusUpdate *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
