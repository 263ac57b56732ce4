package alarm

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deveshub/medminder/internal/domain"
)

// fakePort records armed timers without real time.
type fakePort struct {
	exact    bool
	armed    map[int]time.Time
	payloads map[int]Payload
	inexact  map[int]bool
}

func newFakePort(exact bool) *fakePort {
	return &fakePort{
		exact:    exact,
		armed:    make(map[int]time.Time),
		payloads: make(map[int]Payload),
		inexact:  make(map[int]bool),
	}
}

func (f *fakePort) ArmExact(id int, at time.Time, p Payload) error {
	if !f.exact {
		return ErrExactUnavailable
	}
	f.armed[id] = at
	f.payloads[id] = p
	f.inexact[id] = false
	return nil
}

func (f *fakePort) ArmInexact(id int, at time.Time, p Payload) error {
	f.armed[id] = at
	f.payloads[id] = p
	f.inexact[id] = true
	return nil
}

func (f *fakePort) Cancel(id int) {
	delete(f.armed, id)
	delete(f.payloads, id)
	delete(f.inexact, id)
}

func (f *fakePort) ArmedAt(id int) (time.Time, bool) {
	at, ok := f.armed[id]
	return at, ok
}

func testMedicine() *domain.Medicine {
	return &domain.Medicine{
		ID:   uuid.New(),
		Name: "Aspirin",
		Reminder: domain.ReminderSettings{
			Enabled:        true,
			SoundEnabled:   true,
			SnoozeInterval: 10,
			MaxSnoozeCount: 2,
		},
	}
}

func TestDerivedIDs_StableAndRoleDisjoint(t *testing.T) {
	id := uuid.New()
	require.Equal(t, NotificationID(id), NotificationID(id))
	require.Equal(t, PrimaryID(id), PrimaryID(id))
	require.Equal(t, SnoozeID(id), SnoozeID(id))

	assert.NotEqual(t, NotificationID(id), PrimaryID(id))
	assert.NotEqual(t, PrimaryID(id), SnoozeID(id))
	assert.NotEqual(t, NotificationID(id), SnoozeID(id))
}

func TestArm_ReplacesNotDuplicates(t *testing.T) {
	port := newFakePort(true)
	s := NewScheduler(port, zap.NewNop())
	m := testMedicine()

	first := time.Now().Add(time.Hour)
	second := first.Add(time.Hour)

	id1 := s.Arm(m, first)
	id2 := s.Arm(m, second)

	require.Equal(t, id1, id2, "same occurrence must derive the same identifier")
	require.Len(t, port.armed, 1, "re-arming must replace, not duplicate")
	at, ok := port.ArmedAt(id1)
	require.True(t, ok)
	assert.True(t, at.Equal(second), "last call wins")
}

func TestArm_CarriesFullPayload(t *testing.T) {
	port := newFakePort(true)
	s := NewScheduler(port, zap.NewNop())
	m := testMedicine()
	m.Reminder.FullScreenAlert = true
	m.Reminder.VibrationEnabled = true

	id := s.Arm(m, time.Now().Add(time.Hour))
	p := port.payloads[id]

	assert.Equal(t, m.ID, p.MedicineID)
	assert.Equal(t, "Aspirin", p.MedicineName)
	assert.Equal(t, NotificationID(m.ID), p.NotificationID)
	assert.Equal(t, SnoozeID(m.ID), p.SnoozeCode)
	assert.True(t, p.FullScreen)
	assert.True(t, p.Sound)
	assert.True(t, p.Vibration)
	assert.Equal(t, 10, p.SnoozeInterval)
	assert.Equal(t, 0, p.SnoozeCount)
	assert.Equal(t, 2, p.MaxSnoozeCount)
}

func TestArm_DegradesToInexact(t *testing.T) {
	port := newFakePort(false)
	s := NewScheduler(port, zap.NewNop())
	m := testMedicine()

	id := s.Arm(m, time.Now().Add(time.Hour))

	_, ok := port.ArmedAt(id)
	require.True(t, ok, "denied exact permission must not drop the reminder")
	assert.True(t, port.inexact[id])
}

func TestArm_SupersedesPendingSnooze(t *testing.T) {
	port := newFakePort(true)
	s := NewScheduler(port, zap.NewNop())
	m := testMedicine()

	s.RearmSnooze(Payload{
		MedicineID: m.ID,
		SnoozeCode: SnoozeID(m.ID),
	}, time.Now().Add(10*time.Minute))
	require.True(t, s.SnoozePending(m.ID))

	s.Arm(m, time.Now().Add(24*time.Hour))
	assert.False(t, s.SnoozePending(m.ID), "new primary must supersede the snooze chain")
}

func TestCancelAll_DropsPrimaryAndSnooze(t *testing.T) {
	port := newFakePort(true)
	s := NewScheduler(port, zap.NewNop())
	m := testMedicine()

	s.Arm(m, time.Now().Add(time.Hour))
	s.RearmSnooze(Payload{MedicineID: m.ID, SnoozeCode: SnoozeID(m.ID)}, time.Now().Add(10*time.Minute))
	require.Len(t, port.armed, 2)

	s.CancelAll(m.ID)
	assert.Empty(t, port.armed)
}

// failPort errors on everything, to verify arm failures stay contained.
type failPort struct{ fakePort }

func (f *failPort) ArmExact(int, time.Time, Payload) error {
	return errors.New("boom")
}

func TestArm_PortFailureDoesNotPanic(t *testing.T) {
	port := &failPort{*newFakePort(true)}
	s := NewScheduler(port, zap.NewNop())
	require.NotPanics(t, func() { s.Arm(testMedicine(), time.Now()) })
}
