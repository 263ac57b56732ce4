package alarm

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrExactUnavailable is returned by a Port when exact-time scheduling is not
// permitted. Callers degrade to inexact scheduling; a reminder is never
// dropped over this.
var ErrExactUnavailable = errors.New("exact alarms unavailable")

// Payload is everything a fired occurrence needs to resume its reminder cycle
// in a fresh process. It is carried through the timer, never read from
// in-memory state.
type Payload struct {
	MedicineID     uuid.UUID
	MedicineName   string
	NotificationID int
	SnoozeCode     int
	FullScreen     bool
	Sound          bool
	Vibration      bool
	SnoozeInterval int // minutes, the medicine's configured interval
	SnoozeCount    int // snoozes consumed so far in this cycle
	MaxSnoozeCount int
}

// Port is the platform timer capability the scheduler drives. Arming an
// identifier that is already armed replaces the pending timer (last call
// wins).
type Port interface {
	ArmExact(id int, at time.Time, p Payload) error
	ArmInexact(id int, at time.Time, p Payload) error
	Cancel(id int)
	ArmedAt(id int) (time.Time, bool)
}
