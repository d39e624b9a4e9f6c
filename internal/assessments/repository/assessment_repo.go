package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
)

// AssessmentRepository provides persistence for assessments.
type AssessmentRepository struct {
	db *pgxpool.Pool
}

func NewAssessmentRepository(db *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

const assessmentColumns = `
id, owner_uid, industry, company_size, revenue_band, status, payment_state,
total_questions, questions_answered, progress,
coalesce(executive_summary, ''),
executive_summary_ready_at, detailed_analysis_ready_at, implementation_kits_ready_at,
created_at, paid_at, completed_at, updated_at`

func scanAssessment(row pgx.Row) (*domain.Assessment, error) {
	var a domain.Assessment
	err := row.Scan(
		&a.ID, &a.OwnerUID, &a.Company.Industry, &a.Company.CompanySize, &a.Company.RevenueBand,
		&a.Status, &a.PaymentState,
		&a.TotalQuestions, &a.QuestionsAnswered, &a.Progress,
		&a.ExecutiveSummary,
		&a.Deliverables.ExecutiveSummaryAt, &a.Deliverables.DetailedAnalysisAt, &a.Deliverables.ImplementationKitsAt,
		&a.CreatedAt, &a.PaidAt, &a.CompletedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Create inserts a new assessment in status pending with the question total
// snapshotted from the catalog.
func (r *AssessmentRepository) Create(ctx context.Context, ownerUID string, company domain.CompanyContext, totalQuestions int) (*domain.Assessment, error) {
	if ownerUID == "" {
		return nil, fmt.Errorf("owner uid required")
	}

	q := `
INSERT INTO assessments (id, owner_uid, industry, company_size, revenue_band, status, payment_state, total_questions)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + assessmentColumns + `;`

	return scanAssessment(r.db.QueryRow(ctx, q,
		uuid.New(), ownerUID, company.Industry, company.CompanySize, company.RevenueBand,
		domain.StatusPending, domain.PaymentNone, totalQuestions))
}

// Get returns the assessment if it exists and belongs to the owner.
func (r *AssessmentRepository) Get(ctx context.Context, id uuid.UUID, ownerUID string) (*domain.Assessment, error) {
	q := `SELECT ` + assessmentColumns + ` FROM assessments WHERE id = $1 AND owner_uid = $2;`
	return scanAssessment(r.db.QueryRow(ctx, q, id, ownerUID))
}

// GetAny returns the assessment regardless of owner. Worker-side use only:
// the pipeline is triggered by trusted events, not user requests.
func (r *AssessmentRepository) GetAny(ctx context.Context, id uuid.UUID) (*domain.Assessment, error) {
	q := `SELECT ` + assessmentColumns + ` FROM assessments WHERE id = $1;`
	return scanAssessment(r.db.QueryRow(ctx, q, id))
}

// ListByOwner returns the owner's assessments, newest first.
func (r *AssessmentRepository) ListByOwner(ctx context.Context, ownerUID string) ([]domain.Assessment, error) {
	q := `SELECT ` + assessmentColumns + ` FROM assessments WHERE owner_uid = $1 ORDER BY created_at DESC;`
	rows, err := r.db.Query(ctx, q, ownerUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Assessment, 0, 8)
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// SetProgress updates the cached completion counters.
func (r *AssessmentRepository) SetProgress(ctx context.Context, id uuid.UUID, answered, progress int) error {
	const q = `
UPDATE assessments
SET questions_answered = $2, progress = $3, updated_at = now()
WHERE id = $1;`
	_, err := r.db.Exec(ctx, q, id, answered, progress)
	return err
}

// Transition atomically moves status to `to` iff the current status is one of
// `from`. Returns false when another writer got there first; concurrent
// handlers rely on this instead of in-process locks.
func (r *AssessmentRepository) Transition(ctx context.Context, id uuid.UUID, from []domain.Status, to domain.Status) (bool, error) {
	const q = `
UPDATE assessments
SET status = $2,
    completed_at = CASE WHEN $2 = 'completed' THEN now() ELSE completed_at END,
    updated_at = now()
WHERE id = $1 AND status = ANY($3);`
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	tag, err := r.db.Exec(ctx, q, id, to, states)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetPaymentState records the payment side. Confirmation stamps paid_at once;
// a failed event only flips the state for user-visible messaging.
func (r *AssessmentRepository) SetPaymentState(ctx context.Context, id uuid.UUID, state domain.PaymentState) error {
	const q = `
UPDATE assessments
SET payment_state = $2,
    paid_at = CASE WHEN $2 = 'confirmed' THEN coalesce(paid_at, now()) ELSE paid_at END,
    updated_at = now()
WHERE id = $1;`
	tag, err := r.db.Exec(ctx, q, id, state)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// StartAnalysis performs the readiness gate's atomic step: flip status to
// analysis iff it is currently awaiting_payment or paid, and write the
// durable pipeline job in the same transaction so a crash after the
// transition cannot lose the start. Returns false when the status was
// already past the trigger point (duplicate delivery).
func (r *AssessmentRepository) StartAnalysis(ctx context.Context, id uuid.UUID) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const upd = `
UPDATE assessments
SET status = 'analysis', updated_at = now()
WHERE id = $1 AND status IN ('awaiting_payment', 'paid');`
	tag, err := tx.Exec(ctx, upd, id)
	if err != nil {
		return false, fmt.Errorf("transition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	const ins = `
INSERT INTO analysis_jobs (assessment_id, status)
VALUES ($1, 'queued')
ON CONFLICT (assessment_id) DO NOTHING;`
	if _, err := tx.Exec(ctx, ins, id); err != nil {
		return false, fmt.Errorf("enqueue job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// MarkDeliverable stamps one deliverable timestamp if not already set.
func (r *AssessmentRepository) MarkDeliverable(ctx context.Context, id uuid.UUID, d domain.Deliverable) error {
	var col string
	switch d {
	case domain.DeliverableExecutiveSummary:
		col = "executive_summary_ready_at"
	case domain.DeliverableDetailedAnalysis:
		col = "detailed_analysis_ready_at"
	case domain.DeliverableImplementationKits:
		col = "implementation_kits_ready_at"
	default:
		return fmt.Errorf("unknown deliverable %q", d)
	}

	q := fmt.Sprintf(`
UPDATE assessments
SET %s = coalesce(%s, now()), updated_at = now()
WHERE id = $1;`, col, col)
	tag, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Deliverables reads the three deliverable timestamps.
func (r *AssessmentRepository) Deliverables(ctx context.Context, id uuid.UUID) (domain.Deliverables, error) {
	const q = `
SELECT executive_summary_ready_at, detailed_analysis_ready_at, implementation_kits_ready_at
FROM assessments WHERE id = $1;`
	var d domain.Deliverables
	err := r.db.QueryRow(ctx, q, id).Scan(&d.ExecutiveSummaryAt, &d.DetailedAnalysisAt, &d.ImplementationKitsAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return d, domain.ErrNotFound
	}
	return d, err
}

// SetExecutiveSummary stores the cross-domain narrative.
func (r *AssessmentRepository) SetExecutiveSummary(ctx context.Context, id uuid.UUID, summary string) error {
	const q = `UPDATE assessments SET executive_summary = $2, updated_at = now() WHERE id = $1;`
	tag, err := r.db.Exec(ctx, q, id, summary)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
