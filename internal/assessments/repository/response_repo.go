package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
)

// ResponseRepository is the response ledger: one row per
// (assessment, question), insert-or-update semantics.
type ResponseRepository struct {
	db *pgxpool.Pool
}

func NewResponseRepository(db *pgxpool.Pool) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// ResponseUpsert is one incoming answer.
type ResponseUpsert struct {
	QuestionID string
	DomainName string
	Response   string
	Score      int
}

// UpsertBatch writes a batch of answers in one transaction. Resubmitting a
// question overwrites the previous answer; it never duplicates the row.
func (r *ResponseRepository) UpsertBatch(ctx context.Context, assessmentID uuid.UUID, batch []ResponseUpsert) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `
INSERT INTO responses (assessment_id, question_id, domain_name, response, score, submitted_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (assessment_id, question_id) DO UPDATE
SET domain_name = excluded.domain_name,
    response = excluded.response,
    score = excluded.score,
    submitted_at = now();`

	for _, u := range batch {
		if _, err := tx.Exec(ctx, q, assessmentID, u.QuestionID, u.DomainName, u.Response, u.Score); err != nil {
			return fmt.Errorf("upsert response %s: %w", u.QuestionID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListByAssessment returns all responses for an assessment.
func (r *ResponseRepository) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]domain.Response, error) {
	const q = `
SELECT assessment_id, question_id, domain_name, response, score, submitted_at
FROM responses
WHERE assessment_id = $1
ORDER BY submitted_at;`

	rows, err := r.db.Query(ctx, q, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Response, 0, 64)
	for rows.Next() {
		var resp domain.Response
		if err := rows.Scan(&resp.AssessmentID, &resp.QuestionID, &resp.DomainName, &resp.Response, &resp.Score, &resp.SubmittedAt); err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, rows.Err()
}

// ListByDomain returns an assessment's responses for one domain.
func (r *ResponseRepository) ListByDomain(ctx context.Context, assessmentID uuid.UUID, domainName string) ([]domain.Response, error) {
	const q = `
SELECT assessment_id, question_id, domain_name, response, score, submitted_at
FROM responses
WHERE assessment_id = $1 AND domain_name = $2
ORDER BY question_id;`

	rows, err := r.db.Query(ctx, q, assessmentID, domainName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Response, 0, 16)
	for rows.Next() {
		var resp domain.Response
		if err := rows.Scan(&resp.AssessmentID, &resp.QuestionID, &resp.DomainName, &resp.Response, &resp.Score, &resp.SubmittedAt); err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, rows.Err()
}
