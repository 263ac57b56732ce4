package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deveshub/medminder/internal/alarm"
	"github.com/deveshub/medminder/internal/domain"
)

type memRepo struct {
	byID    map[uuid.UUID]*domain.Medicine
	inserts int
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[uuid.UUID]*domain.Medicine)}
}

func (r *memRepo) Insert(_ context.Context, m *domain.Medicine) error {
	cp := *m
	r.byID[m.ID] = &cp
	r.inserts++
	return nil
}

func (r *memRepo) Update(_ context.Context, m *domain.Medicine) error {
	if _, ok := r.byID[m.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *m
	r.byID[m.ID] = &cp
	return nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Medicine, error) {
	m, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memRepo) ListAll(_ context.Context) ([]domain.Medicine, error) {
	var out []domain.Medicine
	for _, m := range r.byID {
		out = append(out, *m)
	}
	return out, nil
}

func (r *memRepo) ListDueBetween(_ context.Context, _, _ time.Time) ([]domain.Medicine, error) {
	return r.ListAll(context.Background())
}

func (r *memRepo) ImportAll(_ context.Context, ms []domain.Medicine) error {
	for i := range ms {
		cp := ms[i]
		r.byID[cp.ID] = &cp
	}
	return nil
}

func (r *memRepo) Close() error { return nil }

// memPort backs a real alarm.Scheduler without wall-clock timers.
type memPort struct {
	armed map[int]time.Time
}

func newMemPort() *memPort { return &memPort{armed: make(map[int]time.Time)} }

func (p *memPort) ArmExact(id int, at time.Time, _ alarm.Payload) error {
	p.armed[id] = at
	return nil
}

func (p *memPort) ArmInexact(id int, at time.Time, _ alarm.Payload) error {
	p.armed[id] = at
	return nil
}

func (p *memPort) Cancel(id int) { delete(p.armed, id) }

func (p *memPort) ArmedAt(id int) (time.Time, bool) {
	at, ok := p.armed[id]
	return at, ok
}

func newService() (*Service, *memRepo, *memPort) {
	repo := newMemRepo()
	port := newMemPort()
	alarms := alarm.NewScheduler(port, zap.NewNop())
	svc := New(repo, alarms, zap.NewNop())
	svc.now = func() time.Time {
		return time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)
	}
	return svc, repo, port
}

func validMedicine() *domain.Medicine {
	return &domain.Medicine{
		Name:      "Aspirin",
		Dosage:    domain.Dosage{Amount: 1, Unit: domain.UnitPill},
		Schedule:  domain.Schedule{Frequency: domain.Daily, Times: []domain.TimeOfDay{{Hour: 9}}, Interval: 1},
		StartDate: time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC),
		Reminder:  domain.DefaultReminderSettings(),
	}
}

func TestAddMedicine_FillsDefaultsAndArms(t *testing.T) {
	svc, repo, port := newService()
	m := validMedicine()

	require.NoError(t, svc.AddMedicine(context.Background(), m))

	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.Equal(t, domain.StatusPending, m.Status)
	assert.False(t, m.CreatedAt.IsZero())
	require.Contains(t, repo.byID, m.ID)

	at, ok := port.ArmedAt(alarm.PrimaryID(m.ID))
	require.True(t, ok, "next occurrence must be armed")
	want := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	assert.True(t, at.Equal(want))
}

func TestAddMedicine_ValidationFailsBeforeStorage(t *testing.T) {
	svc, repo, port := newService()
	m := validMedicine()
	m.Name = "   "

	err := svc.AddMedicine(context.Background(), m)
	require.ErrorIs(t, err, domain.ErrEmptyName)
	assert.Zero(t, repo.inserts, "invalid input must not reach storage")
	assert.Empty(t, port.armed)
}

func TestAddMedicine_DisabledReminderStoresWithoutArming(t *testing.T) {
	svc, repo, port := newService()
	m := validMedicine()
	m.Reminder.Enabled = false

	require.NoError(t, svc.AddMedicine(context.Background(), m))
	assert.Contains(t, repo.byID, m.ID)
	assert.Empty(t, port.armed)
}

func TestUpdateMedicine_RearmsFromNewSchedule(t *testing.T) {
	svc, _, port := newService()
	m := validMedicine()
	require.NoError(t, svc.AddMedicine(context.Background(), m))

	m.Schedule.Times = []domain.TimeOfDay{{Hour: 20}}
	require.NoError(t, svc.UpdateMedicine(context.Background(), m))

	at, ok := port.ArmedAt(alarm.PrimaryID(m.ID))
	require.True(t, ok)
	want := time.Date(2025, time.June, 2, 20, 0, 0, 0, time.UTC)
	assert.True(t, at.Equal(want))
}

func TestUpdateMedicine_DisablingCancelsTimers(t *testing.T) {
	svc, _, port := newService()
	m := validMedicine()
	require.NoError(t, svc.AddMedicine(context.Background(), m))
	require.NotEmpty(t, port.armed)

	m.Reminder.Enabled = false
	require.NoError(t, svc.UpdateMedicine(context.Background(), m))
	assert.Empty(t, port.armed, "disabling reminders must drop armed timers")
}

func TestUpdateMedicine_MissingReturnsNotFound(t *testing.T) {
	svc, _, _ := newService()
	m := validMedicine()
	m.ID = uuid.New()
	assert.ErrorIs(t, svc.UpdateMedicine(context.Background(), m), domain.ErrNotFound)
}

func TestDeleteMedicine_CancelsAllTimers(t *testing.T) {
	svc, repo, port := newService()
	m := validMedicine()
	require.NoError(t, svc.AddMedicine(context.Background(), m))
	require.NotEmpty(t, port.armed)

	require.NoError(t, svc.DeleteMedicine(context.Background(), m.ID))
	assert.NotContains(t, repo.byID, m.ID)
	assert.Empty(t, port.armed)
}

func TestImportMedicines_AllOrNothingValidation(t *testing.T) {
	svc, repo, _ := newService()
	good := validMedicine()
	bad := validMedicine()
	bad.Dosage.Amount = 0

	err := svc.ImportMedicines(context.Background(), []domain.Medicine{*good, *bad})
	require.ErrorIs(t, err, domain.ErrNonPositiveDosage)
	assert.Empty(t, repo.byID, "a bad record must fail the whole import")
}

func TestImportThenExport_Roundtrip(t *testing.T) {
	svc, _, _ := newService()
	ms := []domain.Medicine{*validMedicine(), *validMedicine()}
	ms[1].Name = "Vitamin D"

	require.NoError(t, svc.ImportMedicines(context.Background(), ms))

	got, err := svc.ExportMedicines(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
