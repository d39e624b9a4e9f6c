package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
)

// AnalysisRepository stores domain analyses, one row per
// (assessment, domain), upserted on re-analysis.
type AnalysisRepository struct {
	db *pgxpool.Pool
}

func NewAnalysisRepository(db *pgxpool.Pool) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Upsert creates or replaces the analysis for (assessment, domain). The kit
// column is left untouched so a re-analysis does not erase a generated kit.
func (r *AnalysisRepository) Upsert(ctx context.Context, a domain.DomainAnalysis) error {
	const q = `
INSERT INTO domain_analyses
  (assessment_id, domain_name, score, health, summary,
   recommendations, key_insights, quick_wins, risk_factors, analysis_complete)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (assessment_id, domain_name) DO UPDATE
SET score = excluded.score,
    health = excluded.health,
    summary = excluded.summary,
    recommendations = excluded.recommendations,
    key_insights = excluded.key_insights,
    quick_wins = excluded.quick_wins,
    risk_factors = excluded.risk_factors,
    analysis_complete = excluded.analysis_complete,
    updated_at = now();`

	_, err := r.db.Exec(ctx, q,
		a.AssessmentID, a.DomainName, a.Score, a.Health, a.Summary,
		a.Recommendations, a.KeyInsights, a.QuickWins, a.RiskFactors, a.AnalysisComplete)
	if err != nil {
		return fmt.Errorf("upsert analysis %s: %w", a.DomainName, err)
	}
	return nil
}

// SetKit attaches an implementation kit to an existing analysis.
func (r *AnalysisRepository) SetKit(ctx context.Context, assessmentID uuid.UUID, domainName string, kit domain.ImplementationKit) error {
	raw, err := json.Marshal(kit)
	if err != nil {
		return fmt.Errorf("marshal kit: %w", err)
	}

	const q = `
UPDATE domain_analyses
SET implementation_kit = $3, updated_at = now()
WHERE assessment_id = $1 AND domain_name = $2;`
	tag, err := r.db.Exec(ctx, q, assessmentID, domainName, raw)
	if err != nil {
		return fmt.Errorf("set kit %s: %w", domainName, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByAssessment returns all analyses for an assessment in catalog-friendly
// insertion order.
func (r *AnalysisRepository) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]domain.DomainAnalysis, error) {
	const q = `
SELECT assessment_id, domain_name, score, health, summary,
       recommendations, key_insights, quick_wins, risk_factors,
       implementation_kit, analysis_complete, created_at, updated_at
FROM domain_analyses
WHERE assessment_id = $1
ORDER BY created_at;`

	rows, err := r.db.Query(ctx, q, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.DomainAnalysis, 0, 8)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Get returns one (assessment, domain) analysis.
func (r *AnalysisRepository) Get(ctx context.Context, assessmentID uuid.UUID, domainName string) (*domain.DomainAnalysis, error) {
	const q = `
SELECT assessment_id, domain_name, score, health, summary,
       recommendations, key_insights, quick_wins, risk_factors,
       implementation_kit, analysis_complete, created_at, updated_at
FROM domain_analyses
WHERE assessment_id = $1 AND domain_name = $2;`

	a, err := scanAnalysis(r.db.QueryRow(ctx, q, assessmentID, domainName))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func scanAnalysis(row pgx.Row) (*domain.DomainAnalysis, error) {
	var a domain.DomainAnalysis
	var kitRaw []byte
	err := row.Scan(
		&a.AssessmentID, &a.DomainName, &a.Score, &a.Health, &a.Summary,
		&a.Recommendations, &a.KeyInsights, &a.QuickWins, &a.RiskFactors,
		&kitRaw, &a.AnalysisComplete, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(kitRaw) > 0 {
		var kit domain.ImplementationKit
		if err := json.Unmarshal(kitRaw, &kit); err != nil {
			return nil, fmt.Errorf("unmarshal kit for %s: %w", a.DomainName, err)
		}
		a.Kit = &kit
	}
	return &a, nil
}
