package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deveshub/medminder/internal/domain"
	"github.com/deveshub/medminder/internal/status"
)

// JobQueue is the durable status-job queue over the repository's database.
// It lives on its own type so queue operations stay apart from the medicine
// CRUD surface.
type JobQueue struct{ db *sql.DB }

// Jobs returns the status queue backed by this repository's database.
func (r *SQLiteRepo) Jobs() *JobQueue {
	return &JobQueue{db: r.db}
}

// Put enqueues a status job, replacing any pending job for the same medicine.
// The replacement carries a fresh idempotency key and a reset attempt count.
func (q *JobQueue) Put(ctx context.Context, req status.Request) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO status_jobs (medicine_id, id, target_status, attempts, next_attempt_at, enqueued_at)
		VALUES (?, ?, ?, 0, ?, ?)
		ON CONFLICT(medicine_id) DO UPDATE SET
			id              = excluded.id,
			target_status   = excluded.target_status,
			attempts        = 0,
			next_attempt_at = excluded.next_attempt_at,
			enqueued_at     = excluded.enqueued_at`,
		req.MedicineID.String(), req.ID.String(), string(req.Status),
		req.EnqueuedAt.UTC().Unix(), req.EnqueuedAt.UTC().Unix(),
	)
	return err
}

// Due returns up to `limit` jobs whose next attempt is at or before now,
// oldest first.
func (q *JobQueue) Due(ctx context.Context, now time.Time, limit int) ([]status.Job, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT medicine_id, id, target_status, attempts, next_attempt_at, enqueued_at
		FROM status_jobs
		WHERE next_attempt_at <= ?
		ORDER BY next_attempt_at ASC
		LIMIT ?`,
		now.UTC().Unix(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []status.Job
	for rows.Next() {
		var (
			medStr, idStr, target string
			attempts              int
			nextUnix, enqUnix     int64
		)
		if err := rows.Scan(&medStr, &idStr, &target, &attempts, &nextUnix, &enqUnix); err != nil {
			return nil, err
		}
		medID, err := uuid.Parse(medStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt job medicine id %q: %w", medStr, err)
		}
		jobID, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt job id %q: %w", idStr, err)
		}
		res = append(res, status.Job{
			Request: status.Request{
				ID:         jobID,
				MedicineID: medID,
				Status:     domain.AdherenceStatus(target),
				EnqueuedAt: time.Unix(enqUnix, 0).UTC(),
			},
			Attempts:      attempts,
			NextAttemptAt: time.Unix(nextUnix, 0).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Reschedule records a failed attempt. A job replaced since it was read is
// left alone: the id no longer matches.
func (q *JobQueue) Reschedule(ctx context.Context, id uuid.UUID, attempts int, next time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE status_jobs SET attempts = ?, next_attempt_at = ? WHERE id = ?`,
		attempts, next.UTC().Unix(), id.String(),
	)
	return err
}

// Delete completes a job. Matching on the idempotency key means a concurrent
// replacement survives: deleting a finished old job never discards the newer
// pending one.
func (q *JobQueue) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM status_jobs WHERE id = ?`, id.String())
	return err
}
