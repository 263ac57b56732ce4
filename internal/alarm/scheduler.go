package alarm

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deveshub/medminder/internal/domain"
)

// Scheduler owns the mapping from (medicine, occurrence) to a pending timer.
// Identifier derivation is deterministic, so the same medicine always maps to
// the same timer slots and re-arming replaces instead of duplicating.
type Scheduler struct {
	port Port
	log  *zap.Logger
}

func NewScheduler(port Port, log *zap.Logger) *Scheduler {
	return &Scheduler{port: port, log: log}
}

// Arm schedules the primary occurrence of a medicine at the given instant and
// returns the timer identifier. A still-armed snooze for the same medicine is
// superseded: only one live reminder cycle may exist per medicine. Exact
// scheduling degrades to inexact when the platform denies it.
func (s *Scheduler) Arm(m *domain.Medicine, at time.Time) int {
	id := PrimaryID(m.ID)
	p := Payload{
		MedicineID:     m.ID,
		MedicineName:   m.Name,
		NotificationID: NotificationID(m.ID),
		SnoozeCode:     SnoozeID(m.ID),
		FullScreen:     m.Reminder.FullScreenAlert,
		Sound:          m.Reminder.SoundEnabled,
		Vibration:      m.Reminder.VibrationEnabled,
		SnoozeInterval: m.Reminder.SnoozeInterval,
		SnoozeCount:    0,
		MaxSnoozeCount: m.Reminder.MaxSnoozeCount,
	}
	s.port.Cancel(p.SnoozeCode)
	s.arm(id, at, p)
	return id
}

// RearmSnooze schedules the next fire of an in-progress cycle. The payload
// must already carry the incremented snooze count.
func (s *Scheduler) RearmSnooze(p Payload, at time.Time) int {
	s.arm(p.SnoozeCode, at, p)
	return p.SnoozeCode
}

// CancelAll drops the medicine's primary and snooze timers. Used when a
// medicine is deleted or its reminders are disabled.
func (s *Scheduler) CancelAll(medicineID uuid.UUID) {
	s.port.Cancel(PrimaryID(medicineID))
	s.port.Cancel(SnoozeID(medicineID))
}

// PrimaryArmedAt reports the armed instant of the medicine's primary timer.
func (s *Scheduler) PrimaryArmedAt(medicineID uuid.UUID) (time.Time, bool) {
	return s.port.ArmedAt(PrimaryID(medicineID))
}

// SnoozePending reports whether a snooze timer is armed for the medicine.
func (s *Scheduler) SnoozePending(medicineID uuid.UUID) bool {
	_, ok := s.port.ArmedAt(SnoozeID(medicineID))
	return ok
}

func (s *Scheduler) arm(id int, at time.Time, p Payload) {
	err := s.port.ArmExact(id, at, p)
	if err == nil {
		return
	}
	if errors.Is(err, ErrExactUnavailable) {
		s.log.Warn("exact alarm denied, degrading to inexact",
			zap.String("medicineID", p.MedicineID.String()),
			zap.Time("at", at),
		)
		err = s.port.ArmInexact(id, at, p)
	}
	if err != nil {
		s.log.Error("arm failed",
			zap.Error(err),
			zap.String("medicineID", p.MedicineID.String()),
			zap.Time("at", at),
		)
	}
}
