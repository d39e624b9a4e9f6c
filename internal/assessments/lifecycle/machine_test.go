package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/catalog"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/progress"
)

// fakeStore mirrors the conditional-update semantics of the Postgres layer in
// memory, including the gate's atomic status check.
type fakeStore struct {
	assessment domain.Assessment
	responses  []domain.Response
	jobInserts int
	startCalls int
	delivered  domain.Deliverables
}

func newFakeStore(total int) *fakeStore {
	return &fakeStore{
		assessment: domain.Assessment{
			ID:             uuid.New(),
			Status:         domain.StatusPending,
			PaymentState:   domain.PaymentNone,
			TotalQuestions: total,
		},
	}
}

func (f *fakeStore) GetAny(_ context.Context, _ uuid.UUID) (*domain.Assessment, error) {
	a := f.assessment
	a.Deliverables = f.delivered
	return &a, nil
}

func (f *fakeStore) SetProgress(_ context.Context, _ uuid.UUID, answered, pct int) error {
	f.assessment.QuestionsAnswered = answered
	f.assessment.Progress = pct
	return nil
}

func (f *fakeStore) Transition(_ context.Context, _ uuid.UUID, from []domain.Status, to domain.Status) (bool, error) {
	for _, s := range from {
		if f.assessment.Status == s {
			f.assessment.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) SetPaymentState(_ context.Context, _ uuid.UUID, state domain.PaymentState) error {
	f.assessment.PaymentState = state
	return nil
}

func (f *fakeStore) StartAnalysis(_ context.Context, _ uuid.UUID) (bool, error) {
	f.startCalls++
	switch f.assessment.Status {
	case domain.StatusAwaitingPayment, domain.StatusPaid:
		f.assessment.Status = domain.StatusAnalysis
		f.jobInserts++
		return true, nil
	default:
		return false, nil
	}
}

func (f *fakeStore) MarkDeliverable(_ context.Context, _ uuid.UUID, d domain.Deliverable) error {
	now := time.Now()
	switch d {
	case domain.DeliverableExecutiveSummary:
		if f.delivered.ExecutiveSummaryAt == nil {
			f.delivered.ExecutiveSummaryAt = &now
		}
	case domain.DeliverableDetailedAnalysis:
		if f.delivered.DetailedAnalysisAt == nil {
			f.delivered.DetailedAnalysisAt = &now
		}
	case domain.DeliverableImplementationKits:
		if f.delivered.ImplementationKitsAt == nil {
			f.delivered.ImplementationKitsAt = &now
		}
	}
	return nil
}

func (f *fakeStore) Deliverables(_ context.Context, _ uuid.UUID) (domain.Deliverables, error) {
	return f.delivered, nil
}

func (f *fakeStore) ListByAssessment(_ context.Context, _ uuid.UUID) ([]domain.Response, error) {
	return f.responses, nil
}

func (f *fakeStore) answerAll(cat *catalog.Catalog, score int) {
	f.responses = f.responses[:0]
	for _, q := range []string{"fin_01", "fin_02", "sal_01", "sal_02"} {
		f.responses = append(f.responses, domain.Response{
			QuestionID: q,
			DomainName: cat.DomainForQuestion(q),
			Score:      score,
		})
	}
}

func machineCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Domain{
		{Name: "Finance", Questions: []string{"fin_01", "fin_02"}},
		{Name: "Sales", Questions: []string{"sal_01", "sal_02"}},
	})
	require.NoError(t, err)
	return c
}

func TestCompleteThenPay(t *testing.T) {
	ctx := context.Background()
	cat := machineCatalog(t)
	store := newFakeStore(cat.TotalQuestions())
	m := NewMachine(store, store, cat, nil)

	// first answer: pending -> in_progress
	store.responses = []domain.Response{{QuestionID: "fin_01", DomainName: "Finance", Score: 5}}
	res, err := m.OnResponsesSaved(ctx, store.assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, res.Progress)
	assert.Equal(t, domain.StatusInProgress, store.assessment.Status)

	// full completion without payment parks at awaiting_payment
	store.answerAll(cat, 6)
	res, err = m.OnResponsesSaved(ctx, store.assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Progress)
	assert.Equal(t, domain.StatusAwaitingPayment, store.assessment.Status)
	assert.Equal(t, 0, store.jobInserts)

	// payment confirmation fires the gate
	require.NoError(t, m.OnPaymentSucceeded(ctx, store.assessment.ID))
	assert.Equal(t, domain.StatusAnalysis, store.assessment.Status)
	assert.Equal(t, domain.PaymentConfirmed, store.assessment.PaymentState)
	assert.Equal(t, 1, store.jobInserts)
}

func TestPayThenComplete(t *testing.T) {
	ctx := context.Background()
	cat := machineCatalog(t)
	store := newFakeStore(cat.TotalQuestions())
	m := NewMachine(store, store, cat, nil)

	// payment with an empty questionnaire parks at paid
	require.NoError(t, m.OnPaymentSucceeded(ctx, store.assessment.ID))
	assert.Equal(t, domain.StatusPaid, store.assessment.Status)
	assert.Equal(t, 0, store.jobInserts)

	// partial answers stay at paid
	store.responses = []domain.Response{{QuestionID: "fin_01", DomainName: "Finance", Score: 5}}
	_, err := m.OnResponsesSaved(ctx, store.assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, store.assessment.Status)

	// the final answer fires the gate
	store.answerAll(cat, 7)
	res, err := m.OnResponsesSaved(ctx, store.assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Progress)
	assert.Equal(t, domain.StatusAnalysis, store.assessment.Status)
	assert.Equal(t, 1, store.jobInserts)
}

func TestDuplicatePaymentEventsStartOnce(t *testing.T) {
	ctx := context.Background()
	cat := machineCatalog(t)
	store := newFakeStore(cat.TotalQuestions())
	m := NewMachine(store, store, cat, nil)

	store.answerAll(cat, 6)
	_, err := m.OnResponsesSaved(ctx, store.assessment.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.OnPaymentSucceeded(ctx, store.assessment.ID))
	}

	assert.Equal(t, 1, store.jobInserts, "pipeline must start at most once")
	assert.Equal(t, domain.StatusAnalysis, store.assessment.Status)
}

func TestDuplicateCompletionEventsStartOnce(t *testing.T) {
	ctx := context.Background()
	cat := machineCatalog(t)
	store := newFakeStore(cat.TotalQuestions())
	m := NewMachine(store, store, cat, nil)

	require.NoError(t, m.OnPaymentSucceeded(ctx, store.assessment.ID))

	store.answerAll(cat, 6)
	for i := 0; i < 3; i++ {
		_, err := m.OnResponsesSaved(ctx, store.assessment.ID)
		require.NoError(t, err, "i=%d", i)
	}

	assert.Equal(t, 1, store.jobInserts, "repeat completion events must not restart the pipeline")
	assert.Equal(t, domain.StatusAnalysis, store.assessment.Status)
}

func TestResponsesRejectedOnceTerminal(t *testing.T) {
	ctx := context.Background()
	cat := machineCatalog(t)
	store := newFakeStore(cat.TotalQuestions())
	m := NewMachine(store, store, cat, nil)

	store.assessment.Status = domain.StatusCompleted
	_, err := m.OnResponsesSaved(ctx, store.assessment.ID)
	assert.ErrorIs(t, err, domain.ErrTerminalStatus)
}

func TestPaymentFailedNeverRollsBack(t *testing.T) {
	ctx := context.Background()
	cat := machineCatalog(t)
	store := newFakeStore(cat.TotalQuestions())
	m := NewMachine(store, store, cat, nil)

	store.answerAll(cat, 6)
	_, err := m.OnResponsesSaved(ctx, store.assessment.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAwaitingPayment, store.assessment.Status)

	require.NoError(t, m.OnPaymentFailed(ctx, store.assessment.ID))
	assert.Equal(t, domain.StatusAwaitingPayment, store.assessment.Status)
	assert.Equal(t, domain.PaymentFailed, store.assessment.PaymentState)

	// a later success still goes through
	require.NoError(t, m.OnPaymentSucceeded(ctx, store.assessment.ID))
	assert.Equal(t, domain.StatusAnalysis, store.assessment.Status)
}

func TestPaymentFailedAfterConfirmationIsNoOp(t *testing.T) {
	ctx := context.Background()
	cat := machineCatalog(t)
	store := newFakeStore(cat.TotalQuestions())
	m := NewMachine(store, store, cat, nil)

	require.NoError(t, m.OnPaymentSucceeded(ctx, store.assessment.ID))
	require.Equal(t, domain.PaymentConfirmed, store.assessment.PaymentState)

	// out-of-order failure delivery must not clobber the confirmation
	require.NoError(t, m.OnPaymentFailed(ctx, store.assessment.ID))
	assert.Equal(t, domain.PaymentConfirmed, store.assessment.PaymentState)
}

func TestDeliverablesCloseAssessment(t *testing.T) {
	ctx := context.Background()
	cat := machineCatalog(t)
	store := newFakeStore(cat.TotalQuestions())
	m := NewMachine(store, store, cat, nil)

	store.assessment.Status = domain.StatusAnalysis

	require.NoError(t, m.OnDeliverable(ctx, store.assessment.ID, domain.DeliverableDetailedAnalysis))
	assert.Equal(t, domain.StatusAnalysis, store.assessment.Status)

	require.NoError(t, m.OnDeliverable(ctx, store.assessment.ID, domain.DeliverableExecutiveSummary))
	assert.Equal(t, domain.StatusAnalysis, store.assessment.Status)

	require.NoError(t, m.OnDeliverable(ctx, store.assessment.ID, domain.DeliverableImplementationKits))
	assert.Equal(t, domain.StatusCompleted, store.assessment.Status)
}

func TestDeliverableTimestampsAreMonotonic(t *testing.T) {
	ctx := context.Background()
	cat := machineCatalog(t)
	store := newFakeStore(cat.TotalQuestions())
	m := NewMachine(store, store, cat, nil)
	store.assessment.Status = domain.StatusAnalysis

	require.NoError(t, m.OnDeliverable(ctx, store.assessment.ID, domain.DeliverableExecutiveSummary))
	first := store.delivered.ExecutiveSummaryAt
	require.NotNil(t, first)

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, m.OnDeliverable(ctx, store.assessment.ID, domain.DeliverableExecutiveSummary))
	assert.Equal(t, first, store.delivered.ExecutiveSummaryAt, "repeat stamping must not move the timestamp")
}

func TestMarkFailedOnlyFromAnalysis(t *testing.T) {
	ctx := context.Background()
	cat := machineCatalog(t)
	store := newFakeStore(cat.TotalQuestions())
	m := NewMachine(store, store, cat, nil)

	require.NoError(t, m.MarkFailed(ctx, store.assessment.ID, assert.AnError))
	assert.Equal(t, domain.StatusPending, store.assessment.Status, "failed is reachable only from analysis")

	store.assessment.Status = domain.StatusAnalysis
	require.NoError(t, m.MarkFailed(ctx, store.assessment.ID, assert.AnError))
	assert.Equal(t, domain.StatusFailed, store.assessment.Status)
}

type recordingSink struct {
	statuses []domain.Status
	results  []progress.Result
}

func (s *recordingSink) Set(_ context.Context, _ uuid.UUID, status domain.Status, res progress.Result) error {
	s.statuses = append(s.statuses, status)
	s.results = append(s.results, res)
	return nil
}

func TestProgressPublishedToSink(t *testing.T) {
	ctx := context.Background()
	cat := machineCatalog(t)
	store := newFakeStore(cat.TotalQuestions())
	sink := &recordingSink{}
	m := NewMachine(store, store, cat, sink)

	store.responses = []domain.Response{{QuestionID: "fin_01", DomainName: "Finance", Score: 5}}
	_, err := m.OnResponsesSaved(ctx, store.assessment.ID)
	require.NoError(t, err)

	require.Len(t, sink.results, 1)
	assert.Equal(t, 25, sink.results[0].Progress)
	assert.Equal(t, domain.StatusInProgress, sink.statuses[0])
}

func TestPaymentConfirmationRefreshesSnapshot(t *testing.T) {
	ctx := context.Background()
	cat := machineCatalog(t)
	store := newFakeStore(cat.TotalQuestions())
	sink := &recordingSink{}
	m := NewMachine(store, store, cat, sink)

	store.answerAll(cat, 6)
	_, err := m.OnResponsesSaved(ctx, store.assessment.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAwaitingPayment, sink.statuses[len(sink.statuses)-1])

	// confirmation moves awaiting_payment -> analysis; the published view must
	// follow, not keep reporting the pre-payment status until the TTL runs out
	require.NoError(t, m.OnPaymentSucceeded(ctx, store.assessment.ID))

	last := len(sink.statuses) - 1
	assert.Equal(t, domain.StatusAnalysis, sink.statuses[last])
	assert.Equal(t, 100, sink.results[last].Progress)
}
