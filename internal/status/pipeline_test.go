package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deveshub/medminder/internal/domain"
)

// memJobs is an in-memory queue with the same unique-replace semantics as the
// SQLite implementation: one pending job per medicine, newest wins.
type memJobs struct {
	byMedicine map[uuid.UUID]Job
}

func newMemJobs() *memJobs {
	return &memJobs{byMedicine: make(map[uuid.UUID]Job)}
}

func (q *memJobs) Put(_ context.Context, r Request) error {
	q.byMedicine[r.MedicineID] = Job{Request: r, NextAttemptAt: r.EnqueuedAt}
	return nil
}

func (q *memJobs) Due(_ context.Context, now time.Time, limit int) ([]Job, error) {
	var out []Job
	for _, j := range q.byMedicine {
		if len(out) >= limit {
			break
		}
		if !j.NextAttemptAt.After(now) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (q *memJobs) Reschedule(_ context.Context, id uuid.UUID, attempts int, next time.Time) error {
	for med, j := range q.byMedicine {
		if j.ID == id {
			j.Attempts = attempts
			j.NextAttemptAt = next
			q.byMedicine[med] = j
		}
	}
	return nil
}

func (q *memJobs) Delete(_ context.Context, id uuid.UUID) error {
	for med, j := range q.byMedicine {
		if j.ID == id {
			delete(q.byMedicine, med)
		}
	}
	return nil
}

type memMedicines struct {
	byID     map[uuid.UUID]*domain.Medicine
	failGets int // transient GetByID failures remaining
	updates  int
}

func (s *memMedicines) GetByID(_ context.Context, id uuid.UUID) (*domain.Medicine, error) {
	if s.failGets > 0 {
		s.failGets--
		return nil, errors.New("storage unavailable")
	}
	m, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memMedicines) Update(_ context.Context, m *domain.Medicine) error {
	if _, ok := s.byID[m.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *m
	s.byID[m.ID] = &cp
	s.updates++
	return nil
}

func newPipeline(jobs Jobs, meds Medicines) *Pipeline {
	return New(jobs, meds, zap.NewNop(), Options{
		Poll:        time.Second,
		MinBackoff:  10 * time.Second,
		MaxAttempts: 3,
	})
}

func seedMedicine() (*memMedicines, *domain.Medicine) {
	m := &domain.Medicine{ID: uuid.New(), Name: "Aspirin", Status: domain.StatusPending}
	return &memMedicines{byID: map[uuid.UUID]*domain.Medicine{m.ID: m}}, m
}

func TestEnqueueAndTick_PersistsStatus(t *testing.T) {
	ctx := context.Background()
	jobs := newMemJobs()
	meds, m := seedMedicine()
	p := newPipeline(jobs, meds)

	base := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return base }

	require.NoError(t, p.Enqueue(ctx, m.ID, domain.StatusTaken))
	p.Tick(ctx)

	got := meds.byID[m.ID]
	assert.Equal(t, domain.StatusTaken, got.Status)
	require.NotNil(t, got.LastStatusUpdate)
	assert.True(t, got.LastStatusUpdate.Equal(base))
	assert.Empty(t, jobs.byMedicine, "completed job must leave the queue")
}

func TestEnqueue_RejectsMalformed(t *testing.T) {
	ctx := context.Background()
	jobs := newMemJobs()
	meds, m := seedMedicine()
	p := newPipeline(jobs, meds)

	assert.ErrorIs(t, p.Enqueue(ctx, uuid.Nil, domain.StatusTaken), ErrMalformed)
	assert.ErrorIs(t, p.Enqueue(ctx, m.ID, "EATEN"), ErrMalformed)
	assert.Empty(t, jobs.byMedicine)
}

func TestEnqueue_NewerTransitionReplacesOlder(t *testing.T) {
	ctx := context.Background()
	jobs := newMemJobs()
	meds, m := seedMedicine()
	p := newPipeline(jobs, meds)

	require.NoError(t, p.Enqueue(ctx, m.ID, domain.StatusSnoozed))
	require.NoError(t, p.Enqueue(ctx, m.ID, domain.StatusTaken))

	require.Len(t, jobs.byMedicine, 1)
	assert.Equal(t, domain.StatusTaken, jobs.byMedicine[m.ID].Status)

	p.Tick(ctx)
	assert.Equal(t, domain.StatusTaken, meds.byID[m.ID].Status, "only the newest transition lands")
}

func TestTick_TransientFailureRetriesWithLinearBackoff(t *testing.T) {
	ctx := context.Background()
	jobs := newMemJobs()
	meds, m := seedMedicine()
	meds.failGets = 2
	p := newPipeline(jobs, meds)

	base := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	clock := base
	p.now = func() time.Time { return clock }

	require.NoError(t, p.Enqueue(ctx, m.ID, domain.StatusTaken))

	p.Tick(ctx) // attempt 1 fails
	j := jobs.byMedicine[m.ID]
	assert.Equal(t, 1, j.Attempts)
	assert.True(t, j.NextAttemptAt.Equal(base.Add(10*time.Second)))

	clock = j.NextAttemptAt
	p.Tick(ctx) // attempt 2 fails
	j = jobs.byMedicine[m.ID]
	assert.Equal(t, 2, j.Attempts)
	assert.True(t, j.NextAttemptAt.Equal(clock.Add(20*time.Second)), "backoff grows linearly")

	clock = j.NextAttemptAt
	p.Tick(ctx) // storage recovered
	assert.Equal(t, domain.StatusTaken, meds.byID[m.ID].Status)
	assert.Empty(t, jobs.byMedicine)
}

func TestTick_NotDueJobsAreLeftAlone(t *testing.T) {
	ctx := context.Background()
	jobs := newMemJobs()
	meds, m := seedMedicine()
	meds.failGets = 1
	p := newPipeline(jobs, meds)

	base := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return base }

	require.NoError(t, p.Enqueue(ctx, m.ID, domain.StatusTaken))
	p.Tick(ctx) // fails, rescheduled into the future
	p.Tick(ctx) // still before NextAttemptAt

	assert.Equal(t, domain.StatusPending, meds.byID[m.ID].Status)
	assert.Equal(t, 1, jobs.byMedicine[m.ID].Attempts, "no attempt before the backoff elapses")
}

func TestTick_AttemptBudgetExhaustedDropsJob(t *testing.T) {
	ctx := context.Background()
	jobs := newMemJobs()
	meds, m := seedMedicine()
	meds.failGets = 100
	p := newPipeline(jobs, meds) // MaxAttempts: 3

	base := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	clock := base
	p.now = func() time.Time { return clock }

	require.NoError(t, p.Enqueue(ctx, m.ID, domain.StatusTaken))
	for i := 0; i < 5; i++ {
		p.Tick(ctx)
		if j, ok := jobs.byMedicine[m.ID]; ok {
			clock = j.NextAttemptAt
		}
	}

	assert.Empty(t, jobs.byMedicine, "exhausted job must not linger")
	assert.Equal(t, domain.StatusPending, meds.byID[m.ID].Status)
}

func TestTick_DeletedMedicineIsTerminal(t *testing.T) {
	ctx := context.Background()
	jobs := newMemJobs()
	meds, m := seedMedicine()
	p := newPipeline(jobs, meds)

	require.NoError(t, p.Enqueue(ctx, m.ID, domain.StatusTaken))
	delete(meds.byID, m.ID) // deleted while queued

	p.Tick(ctx)
	assert.Empty(t, jobs.byMedicine, "no retries for a deleted medicine")
}

func TestMemJobs_DueHonorsLimit(t *testing.T) {
	ctx := context.Background()
	jobs := newMemJobs()
	now := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		req := Request{ID: uuid.New(), MedicineID: uuid.New(), Status: domain.StatusTaken, EnqueuedAt: now}
		require.NoError(t, jobs.Put(ctx, req))
	}

	due, err := jobs.Due(ctx, now, 2)
	require.NoError(t, err)
	assert.Len(t, due, 2)
}

func TestTick_MalformedQueueRowDropped(t *testing.T) {
	ctx := context.Background()
	jobs := newMemJobs()
	meds, _ := seedMedicine()
	p := newPipeline(jobs, meds)

	// Simulate a corrupt row restored from an older database.
	bad := Request{ID: uuid.New(), MedicineID: uuid.New(), Status: "EATEN", EnqueuedAt: time.Now()}
	require.NoError(t, jobs.Put(ctx, bad))

	p.Tick(ctx)
	assert.Empty(t, jobs.byMedicine)
	assert.Zero(t, meds.updates)
}
