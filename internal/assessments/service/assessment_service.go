package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/catalog"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/lifecycle"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/progress"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/repository"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/cache"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/payments"
)

// Service handles assessment business logic: creation, response submission,
// progress reads, and report assembly. All operations are owner-scoped.
type Service struct {
	assessments *repository.AssessmentRepository
	responses   *repository.ResponseRepository
	analyses    *repository.AnalysisRepository
	machine     *lifecycle.Machine
	cache       *cache.ProgressCache
	checkout    *payments.Checkout
	catalog     *catalog.Catalog
}

func New(
	assessments *repository.AssessmentRepository,
	responses *repository.ResponseRepository,
	analyses *repository.AnalysisRepository,
	machine *lifecycle.Machine,
	progressCache *cache.ProgressCache,
	checkout *payments.Checkout,
	cat *catalog.Catalog,
) *Service {
	return &Service{
		assessments: assessments,
		responses:   responses,
		analyses:    analyses,
		machine:     machine,
		cache:       progressCache,
		checkout:    checkout,
		catalog:     cat,
	}
}

// Create opens a new assessment for the owner with the question total
// snapshotted from the catalog.
func (s *Service) Create(ctx context.Context, ownerUID string, company domain.CompanyContext) (*domain.Assessment, error) {
	return s.assessments.Create(ctx, ownerUID, company, s.catalog.TotalQuestions())
}

// Get returns the owner's assessment.
func (s *Service) Get(ctx context.Context, ownerUID string, id uuid.UUID) (*domain.Assessment, error) {
	return s.assessments.Get(ctx, id, ownerUID)
}

// List returns the owner's assessments, newest first.
func (s *Service) List(ctx context.Context, ownerUID string) ([]domain.Assessment, error) {
	return s.assessments.ListByOwner(ctx, ownerUID)
}

// Answer is one incoming questionnaire answer. The domain is derived from
// the catalog, never trusted from the client.
type Answer struct {
	QuestionID string `json:"question_id"`
	Response   string `json:"response"`
	Score      int    `json:"score"`
}

// SubmitResponses validates and persists a batch of answers, then runs the
// lifecycle machine's recompute. Nothing is persisted if any answer in the
// batch is invalid.
func (s *Service) SubmitResponses(ctx context.Context, ownerUID string, id uuid.UUID, answers []Answer) (progress.Result, error) {
	a, err := s.assessments.Get(ctx, id, ownerUID)
	if err != nil {
		return progress.Result{}, err
	}
	if a.Status.AnalysisStarted() {
		return progress.Result{}, domain.ErrTerminalStatus
	}

	batch := make([]repository.ResponseUpsert, 0, len(answers))
	for _, ans := range answers {
		qid := strings.TrimSpace(ans.QuestionID)
		if qid == "" {
			return progress.Result{}, fmt.Errorf("%w: empty question id", domain.ErrUnknownQuestion)
		}
		domainName := s.catalog.DomainForQuestion(qid)
		if domainName == "" {
			return progress.Result{}, fmt.Errorf("%w: %q", domain.ErrUnknownQuestion, qid)
		}
		if ans.Score < domain.MinScore || ans.Score > domain.MaxScore {
			return progress.Result{}, fmt.Errorf("%w: question %q got %d", domain.ErrInvalidScore, qid, ans.Score)
		}
		if strings.TrimSpace(ans.Response) == "" {
			return progress.Result{}, fmt.Errorf("%w: question %q", domain.ErrMissingResponse, qid)
		}
		batch = append(batch, repository.ResponseUpsert{
			QuestionID: qid,
			DomainName: domainName,
			Response:   strings.TrimSpace(ans.Response),
			Score:      ans.Score,
		})
	}

	if err := s.responses.UpsertBatch(ctx, id, batch); err != nil {
		return progress.Result{}, fmt.Errorf("save responses: %w", err)
	}

	return s.machine.OnResponsesSaved(ctx, id)
}

// Progress serves the completion snapshot, preferring the cache and falling
// through to a fresh recompute on a miss.
func (s *Service) Progress(ctx context.Context, ownerUID string, id uuid.UUID) (*cache.Snapshot, error) {
	// Ownership first; the cache key alone must not leak other users' data.
	a, err := s.assessments.Get(ctx, id, ownerUID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if snap, err := s.cache.Get(ctx, id); err == nil && snap != nil {
			return snap, nil
		}
	}

	responses, err := s.responses.ListByAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	res := progress.Compute(responses, s.catalog, a.TotalQuestions)

	snap := &cache.Snapshot{
		Status:            a.Status,
		Progress:          res.Progress,
		QuestionsAnswered: res.QuestionsAnswered,
		TotalQuestions:    res.TotalQuestions,
		Domains:           res.Domains,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, id, a.Status, res); err != nil {
			// Cache trouble must not fail the read path.
			return snap, nil
		}
	}
	return snap, nil
}

// Report is the assembled analysis view.
type Report struct {
	Assessment *domain.Assessment      `json:"assessment"`
	Analyses   []domain.DomainAnalysis `json:"analyses"`
}

// Report returns the assessment with whatever analyses exist so far.
func (s *Service) Report(ctx context.Context, ownerUID string, id uuid.UUID) (*Report, error) {
	a, err := s.assessments.Get(ctx, id, ownerUID)
	if err != nil {
		return nil, err
	}
	analyses, err := s.analyses.ListByAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Report{Assessment: a, Analyses: analyses}, nil
}

// CheckoutURL returns the hosted payment link for an unpaid assessment.
func (s *Service) CheckoutURL(ctx context.Context, ownerUID string, id uuid.UUID) (string, error) {
	a, err := s.assessments.Get(ctx, id, ownerUID)
	if err != nil {
		return "", err
	}
	if a.PaymentState == domain.PaymentConfirmed {
		return "", fmt.Errorf("assessment already paid")
	}
	return s.checkout.URL(a.ID, ownerUID), nil
}
