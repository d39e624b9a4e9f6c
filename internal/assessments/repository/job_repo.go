package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalysisJob is a durable pipeline work item. Rows are written in the same
// transaction as the status transition into analysis, so a crash between the
// transition and pipeline start cannot lose the run.
type AnalysisJob struct {
	AssessmentID uuid.UUID
	Status       string
	Attempts     int
	CreatedAt    time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// JobRepository is the analysis outbox.
type JobRepository struct {
	db *pgxpool.Pool
}

func NewJobRepository(db *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: db}
}

// ClaimNext atomically claims the oldest queued job. SKIP LOCKED lets
// multiple worker processes poll without stepping on each other. Returns
// (nil, nil) when the queue is empty.
func (r *JobRepository) ClaimNext(ctx context.Context) (*AnalysisJob, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const sel = `
SELECT assessment_id, status, attempts, created_at, started_at, finished_at
FROM analysis_jobs
WHERE status = 'queued'
ORDER BY created_at
LIMIT 1
FOR UPDATE SKIP LOCKED;`

	var j AnalysisJob
	err = tx.QueryRow(ctx, sel).Scan(&j.AssessmentID, &j.Status, &j.Attempts, &j.CreatedAt, &j.StartedAt, &j.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	const upd = `
UPDATE analysis_jobs
SET status = 'running', attempts = attempts + 1, started_at = now()
WHERE assessment_id = $1;`
	if _, err := tx.Exec(ctx, upd, j.AssessmentID); err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	j.Status = JobRunning
	j.Attempts++
	return &j, nil
}

// MarkDone finishes a job successfully.
func (r *JobRepository) MarkDone(ctx context.Context, assessmentID uuid.UUID) error {
	const q = `UPDATE analysis_jobs SET status = 'done', finished_at = now() WHERE assessment_id = $1;`
	_, err := r.db.Exec(ctx, q, assessmentID)
	return err
}

// MarkFailed finishes a job as unrecoverable.
func (r *JobRepository) MarkFailed(ctx context.Context, assessmentID uuid.UUID) error {
	const q = `UPDATE analysis_jobs SET status = 'failed', finished_at = now() WHERE assessment_id = $1;`
	_, err := r.db.Exec(ctx, q, assessmentID)
	return err
}

// RequeueStuck returns running jobs older than the cutoff to the queue.
// Covers workers that died mid-pipeline; the pipeline's stages are
// idempotent upserts, so a re-run is safe.
func (r *JobRepository) RequeueStuck(ctx context.Context, olderThan time.Duration) (int64, error) {
	const q = `
UPDATE analysis_jobs
SET status = 'queued', started_at = NULL
WHERE status = 'running' AND started_at < now() - ($1 * interval '1 second');`
	tag, err := r.db.Exec(ctx, q, olderThan.Seconds())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
