package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/repository"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/documents"
)

// RepoStore adapts the Postgres repositories to the pipeline's Store surface.
type RepoStore struct {
	assessments *repository.AssessmentRepository
	responses   *repository.ResponseRepository
	analyses    *repository.AnalysisRepository
	docs        *documents.Repo
}

func NewRepoStore(a *repository.AssessmentRepository, r *repository.ResponseRepository, an *repository.AnalysisRepository, d *documents.Repo) *RepoStore {
	return &RepoStore{assessments: a, responses: r, analyses: an, docs: d}
}

func (s *RepoStore) Assessment(ctx context.Context, id uuid.UUID) (*domain.Assessment, error) {
	return s.assessments.GetAny(ctx, id)
}

func (s *RepoStore) Responses(ctx context.Context, id uuid.UUID) ([]domain.Response, error) {
	return s.responses.ListByAssessment(ctx, id)
}

func (s *RepoStore) Documents(ctx context.Context, id uuid.UUID) ([]documents.Document, error) {
	return s.docs.ListByAssessment(ctx, id)
}

func (s *RepoStore) UpsertAnalysis(ctx context.Context, a domain.DomainAnalysis) error {
	return s.analyses.Upsert(ctx, a)
}

func (s *RepoStore) Analyses(ctx context.Context, id uuid.UUID) ([]domain.DomainAnalysis, error) {
	return s.analyses.ListByAssessment(ctx, id)
}

func (s *RepoStore) SetExecutiveSummary(ctx context.Context, id uuid.UUID, summary string) error {
	return s.assessments.SetExecutiveSummary(ctx, id, summary)
}

func (s *RepoStore) SetKit(ctx context.Context, id uuid.UUID, domainName string, kit domain.ImplementationKit) error {
	return s.analyses.SetKit(ctx, id, domainName, kit)
}
