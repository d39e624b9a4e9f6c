package http

import (
	"context"

	"github.com/google/uuid"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/progress"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/service"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/cache"
)

// AssessmentService is the slice of the service layer the handlers use.
type AssessmentService interface {
	Create(ctx context.Context, ownerUID string, company domain.CompanyContext) (*domain.Assessment, error)
	Get(ctx context.Context, ownerUID string, id uuid.UUID) (*domain.Assessment, error)
	List(ctx context.Context, ownerUID string) ([]domain.Assessment, error)
	SubmitResponses(ctx context.Context, ownerUID string, id uuid.UUID, answers []service.Answer) (progress.Result, error)
	Progress(ctx context.Context, ownerUID string, id uuid.UUID) (*cache.Snapshot, error)
	Report(ctx context.Context, ownerUID string, id uuid.UUID) (*service.Report, error)
	CheckoutURL(ctx context.Context, ownerUID string, id uuid.UUID) (string, error)
}

type createReq struct {
	Industry    string `json:"industry"`
	CompanySize string `json:"company_size"`
	RevenueBand string `json:"revenue_band"`
}

type submitReq struct {
	Responses []service.Answer `json:"responses"`
}
