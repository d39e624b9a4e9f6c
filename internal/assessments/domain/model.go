package domain

import (
	"time"

	"github.com/google/uuid"
)

// Score bounds for questionnaire answers and domain analyses.
const (
	MinScore = 1
	MaxScore = 10
)

// Health is the classification band derived from a score. It is always
// recomputed server-side; a health value supplied by the inference service is
// never trusted verbatim.
type Health string

const (
	HealthCritical  Health = "critical"
	HealthWarning   Health = "warning"
	HealthGood      Health = "good"
	HealthExcellent Health = "excellent"
)

// HealthForScore maps a 1-10 score onto its health band:
// <4 critical, 4-5 warning, 6-7 good, >=8 excellent.
func HealthForScore(score int) Health {
	switch {
	case score < 4:
		return HealthCritical
	case score <= 5:
		return HealthWarning
	case score <= 7:
		return HealthGood
	default:
		return HealthExcellent
	}
}

// CompanyContext is the profile supplied at assessment creation and passed to
// every inference call.
type CompanyContext struct {
	Industry    string `json:"industry"`
	CompanySize string `json:"company_size"`
	RevenueBand string `json:"revenue_band"`
}

// Assessment is one questionnaire instance: one payment, one analysis run,
// owned by a single user.
type Assessment struct {
	ID           uuid.UUID      `json:"id"`
	OwnerUID     string         `json:"-"`
	Company      CompanyContext `json:"company"`
	Status       Status         `json:"status"`
	PaymentState PaymentState   `json:"payment_state"`

	// TotalQuestions is snapshotted from the catalog at creation and never
	// changes afterwards. QuestionsAnswered and Progress are derived caches of
	// the response ledger.
	TotalQuestions    int `json:"total_questions"`
	QuestionsAnswered int `json:"questions_answered"`
	Progress          int `json:"progress"`

	ExecutiveSummary string `json:"executive_summary,omitempty"`

	Deliverables Deliverables `json:"deliverables"`

	CreatedAt   time.Time  `json:"created_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Deliverable names one of the three staged report outputs.
type Deliverable string

const (
	DeliverableExecutiveSummary   Deliverable = "executive_summary"
	DeliverableDetailedAnalysis   Deliverable = "detailed_analysis"
	DeliverableImplementationKits Deliverable = "implementation_kits"
)

// Deliverables tracks per-deliverable completion. Timestamps are monotonic:
// once set they never revert.
type Deliverables struct {
	ExecutiveSummaryAt   *time.Time `json:"executive_summary_at,omitempty"`
	DetailedAnalysisAt   *time.Time `json:"detailed_analysis_at,omitempty"`
	ImplementationKitsAt *time.Time `json:"implementation_kits_at,omitempty"`
}

// AllReady reports whether all three deliverables have been produced.
func (d Deliverables) AllReady() bool {
	return d.ExecutiveSummaryAt != nil && d.DetailedAnalysisAt != nil && d.ImplementationKitsAt != nil
}

// Response is one answered question. At most one live record exists per
// (assessment, question); resubmission updates in place.
type Response struct {
	AssessmentID uuid.UUID `json:"assessment_id"`
	QuestionID   string    `json:"question_id"`
	DomainName   string    `json:"domain_name"`
	Response     string    `json:"response"`
	Score        int       `json:"score"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// DomainAnalysis is the analyzed result for one (assessment, domain) pair.
type DomainAnalysis struct {
	AssessmentID     uuid.UUID          `json:"assessment_id"`
	DomainName       string             `json:"domain_name"`
	Score            int                `json:"score"`
	Health           Health             `json:"health"`
	Summary          string             `json:"summary"`
	Recommendations  []string           `json:"recommendations"`
	KeyInsights      []string           `json:"key_insights"`
	QuickWins        []string           `json:"quick_wins"`
	RiskFactors      []string           `json:"risk_factors"`
	Kit              *ImplementationKit `json:"implementation_kit,omitempty"`
	AnalysisComplete bool               `json:"analysis_complete"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// ImplementationKit is the staged action plan derived from a completed domain
// analysis.
type ImplementationKit struct {
	DomainName  string   `json:"domain_name"`
	First30Days []string `json:"first_30_days"`
	Next60Days  []string `json:"next_60_days"`
	Next90Days  []string `json:"next_90_days"`
}
