// Package status persists adherence-status transitions through a durable work
// queue, so a transition enqueued by a reminder action survives process death
// and transient storage failures.
package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deveshub/medminder/internal/domain"
)

// ErrMalformed marks a request that can never succeed (missing id,
// unparseable status). It fails immediately, without retry.
var ErrMalformed = errors.New("malformed status update request")

// Request is one unit of durable work: apply a target status to a medicine.
// ID is the idempotency key, fresh per enqueue.
type Request struct {
	ID         uuid.UUID
	MedicineID uuid.UUID
	Status     domain.AdherenceStatus
	EnqueuedAt time.Time
}

// Job is a queued request plus its retry state.
type Job struct {
	Request
	Attempts      int
	NextAttemptAt time.Time
}

// Jobs is the durable queue contract. Put keeps at most one pending job per
// medicine, replacing any older one (unique-replace policy): a newer
// transition always supersedes an unexecuted older one, which preserves
// real-time ordering without serializing the queue.
type Jobs interface {
	Put(ctx context.Context, r Request) error
	Due(ctx context.Context, now time.Time, limit int) ([]Job, error)
	Reschedule(ctx context.Context, id uuid.UUID, attempts int, next time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Medicines is the slice of the repository the pipeline needs.
type Medicines interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Medicine, error)
	Update(ctx context.Context, m *domain.Medicine) error
}

// Options tune the worker; zero values fall back to defaults.
type Options struct {
	Poll        time.Duration // queue scan interval
	MinBackoff  time.Duration // linear backoff unit
	MaxAttempts int
}

type Pipeline struct {
	jobs      Jobs
	medicines Medicines
	log       *zap.Logger

	poll        time.Duration
	minBackoff  time.Duration
	maxAttempts int
	now         func() time.Time
}

func New(jobs Jobs, medicines Medicines, log *zap.Logger, opt Options) *Pipeline {
	if opt.Poll <= 0 {
		opt.Poll = 5 * time.Second
	}
	if opt.MinBackoff <= 0 {
		opt.MinBackoff = 10 * time.Second
	}
	if opt.MaxAttempts <= 0 {
		opt.MaxAttempts = 5
	}
	return &Pipeline{
		jobs:        jobs,
		medicines:   medicines,
		log:         log,
		poll:        opt.Poll,
		minBackoff:  opt.MinBackoff,
		maxAttempts: opt.MaxAttempts,
		now:         time.Now,
	}
}

// Enqueue records a status transition for asynchronous, durable execution.
// The caller never waits for the write to land.
func (p *Pipeline) Enqueue(ctx context.Context, medicineID uuid.UUID, target domain.AdherenceStatus) error {
	if medicineID == uuid.Nil {
		return fmt.Errorf("%w: missing medicine id", ErrMalformed)
	}
	if _, err := domain.ParseStatus(string(target)); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return p.jobs.Put(ctx, Request{
		ID:         uuid.New(),
		MedicineID: medicineID,
		Status:     target,
		EnqueuedAt: p.now(),
	})
}

// Run polls the queue until the context is canceled.
func (p *Pipeline) Run(ctx context.Context) {
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.log.Info("status pipeline stopping")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick executes one queue scan. Exported so tests and shutdown paths can
// drain deterministically.
func (p *Pipeline) Tick(ctx context.Context) {
	jobs, err := p.jobs.Due(ctx, p.now(), 50)
	if err != nil {
		p.log.Error("queue scan failed", zap.Error(err))
		return
	}
	for _, j := range jobs {
		p.runJob(ctx, j)
	}
}

func (p *Pipeline) runJob(ctx context.Context, j Job) {
	log := p.log.With(
		zap.String("jobID", j.ID.String()),
		zap.String("medicineID", j.MedicineID.String()),
		zap.String("status", string(j.Status)),
	)

	// Malformed rows are dropped, not retried: they guard against replay of
	// stale or incompatible queue contents.
	if j.MedicineID == uuid.Nil {
		log.Warn("dropping malformed job: missing medicine id")
		p.drop(ctx, j, log)
		return
	}
	if _, err := domain.ParseStatus(string(j.Status)); err != nil {
		log.Warn("dropping malformed job", zap.Error(err))
		p.drop(ctx, j, log)
		return
	}

	m, err := p.medicines.GetByID(ctx, j.MedicineID)
	if errors.Is(err, domain.ErrNotFound) {
		// The medicine was deleted while the job was queued. Terminal.
		log.Warn("medicine gone, dropping status update")
		p.drop(ctx, j, log)
		return
	}
	if err != nil {
		p.retry(ctx, j, err, log)
		return
	}

	now := p.now()
	m.Status = j.Status
	m.LastStatusUpdate = &now
	m.UpdatedAt = now
	if err := p.medicines.Update(ctx, m); err != nil {
		p.retry(ctx, j, err, log)
		return
	}
	log.Info("status persisted")
	p.drop(ctx, j, log)
}

// retry reschedules with linear backoff, or gives up after the attempt
// budget. Exhaustion is logged, never surfaced to the user.
func (p *Pipeline) retry(ctx context.Context, j Job, cause error, log *zap.Logger) {
	attempts := j.Attempts + 1
	if attempts >= p.maxAttempts {
		log.Error("status update failed terminally", zap.Error(cause), zap.Int("attempts", attempts))
		p.drop(ctx, j, log)
		return
	}
	next := p.now().Add(time.Duration(attempts) * p.minBackoff)
	log.Warn("status update failed, will retry",
		zap.Error(cause),
		zap.Int("attempt", attempts),
		zap.Time("nextAttemptAt", next),
	)
	if err := p.jobs.Reschedule(ctx, j.ID, attempts, next); err != nil {
		log.Error("reschedule failed", zap.Error(err))
	}
}

func (p *Pipeline) drop(ctx context.Context, j Job, log *zap.Logger) {
	if err := p.jobs.Delete(ctx, j.ID); err != nil {
		log.Error("job delete failed", zap.Error(err))
	}
}
