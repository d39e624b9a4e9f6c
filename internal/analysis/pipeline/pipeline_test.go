package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/analysis/inference"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/catalog"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/documents"
)

type memStore struct {
	mu         sync.Mutex
	assessment domain.Assessment
	responses  []domain.Response
	docs       []documents.Document
	analyses   map[string]domain.DomainAnalysis
	order      []string
	summary    string
	kits       map[string]domain.ImplementationKit
	upsertErr  error
}

func newMemStore() *memStore {
	return &memStore{
		assessment: domain.Assessment{
			ID:      uuid.New(),
			Status:  domain.StatusAnalysis,
			Company: domain.CompanyContext{Industry: "Retail"},
		},
		analyses: make(map[string]domain.DomainAnalysis),
		kits:     make(map[string]domain.ImplementationKit),
	}
}

func (m *memStore) Assessment(_ context.Context, _ uuid.UUID) (*domain.Assessment, error) {
	a := m.assessment
	return &a, nil
}

func (m *memStore) Responses(_ context.Context, _ uuid.UUID) ([]domain.Response, error) {
	return m.responses, nil
}

func (m *memStore) Documents(_ context.Context, _ uuid.UUID) ([]documents.Document, error) {
	return m.docs, nil
}

func (m *memStore) UpsertAnalysis(_ context.Context, a domain.DomainAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if _, seen := m.analyses[a.DomainName]; !seen {
		m.order = append(m.order, a.DomainName)
	}
	m.analyses[a.DomainName] = a
	return nil
}

func (m *memStore) Analyses(_ context.Context, _ uuid.UUID) ([]domain.DomainAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.DomainAnalysis, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.analyses[name])
	}
	return out, nil
}

func (m *memStore) SetExecutiveSummary(_ context.Context, _ uuid.UUID, summary string) error {
	m.summary = summary
	return nil
}

func (m *memStore) SetKit(_ context.Context, _ uuid.UUID, domainName string, kit domain.ImplementationKit) error {
	m.kits[domainName] = kit
	return nil
}

// fakeInference scripts per-stage behavior.
type fakeInference struct {
	mu          sync.Mutex
	triageRes   *inference.TriageResult
	triageErr   error
	failDomains map[string]bool
	domainScore int
	summaryErr  error
	kitErr      error
	calls       []string
}

func (f *fakeInference) Triage(_ context.Context, _ inference.TriageRequest) (*inference.TriageResult, error) {
	if f.triageErr != nil {
		return nil, f.triageErr
	}
	return f.triageRes, nil
}

func (f *fakeInference) AnalyzeDomain(_ context.Context, req inference.DomainRequest) (*inference.DomainResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "analyze:"+req.DomainName)
	f.mu.Unlock()
	if f.failDomains[req.DomainName] {
		return nil, errors.New("model timeout")
	}
	score := f.domainScore
	if score == 0 {
		score = 7
	}
	return &inference.DomainResult{
		Score:           score,
		Health:          "excellent", // deliberately contradicts the score
		Summary:         req.DomainName + " looks stable overall.",
		Recommendations: []string{"Tighten the monthly review loop"},
		QuickWins:       []string{"Publish the current playbook"},
		RiskFactors:     []string{"Key-person dependency"},
	}, nil
}

func (f *fakeInference) Summarize(_ context.Context, _ inference.SummaryRequest) (string, error) {
	if f.summaryErr != nil {
		return "", f.summaryErr
	}
	return "Overall the business is in fair shape.", nil
}

func (f *fakeInference) GenerateKit(_ context.Context, req inference.KitRequest) (*inference.KitResult, error) {
	if f.kitErr != nil {
		return nil, f.kitErr
	}
	return &inference.KitResult{
		First30Days: []string{"Kick off " + req.DomainName + " workstream"},
		Next60Days:  []string{"Review progress"},
		Next90Days:  []string{"Institutionalize the process"},
	}, nil
}

type deliveryLog struct {
	mu    sync.Mutex
	items []domain.Deliverable
}

func (d *deliveryLog) OnDeliverable(_ context.Context, _ uuid.UUID, del domain.Deliverable) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = append(d.items, del)
	return nil
}

func pipelineCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Domain{
		{Name: "Finance", Specialist: "CFO Advisor", Questions: []string{"fin_01"}},
		{Name: "Operations", Specialist: "Operations Director", Questions: []string{"ops_01"}},
		{Name: "Sales", Specialist: "Sales Leader", Questions: []string{"sal_01"}},
		{Name: "Marketing", Specialist: "Marketing Strategist", Questions: []string{"mkt_01"}},
		{Name: "Technology", Specialist: "CTO Advisor", Questions: []string{"tec_01"}},
		{Name: "Leadership", Specialist: "Executive Coach", Questions: []string{"lea_01"}},
	})
	require.NoError(t, err)
	return c
}

func seedResponses(store *memStore, scores map[string]int) {
	qids := map[string]string{
		"Finance": "fin_01", "Operations": "ops_01", "Sales": "sal_01",
		"Marketing": "mkt_01", "Technology": "tec_01", "Leadership": "lea_01",
	}
	for dom, score := range scores {
		store.responses = append(store.responses, domain.Response{
			QuestionID: qids[dom],
			DomainName: dom,
			Response:   "answered",
			Score:      score,
		})
	}
}

func TestRunHappyPath(t *testing.T) {
	store := newMemStore()
	seedResponses(store, map[string]int{"Finance": 3, "Sales": 6, "Operations": 8})
	inf := &fakeInference{
		triageRes: &inference.TriageResult{
			PriorityDomains: []string{"Sales", "Finance", "Operations"},
			CriticalIssues:  []string{"Cash runway under 3 months"},
		},
	}
	lc := &deliveryLog{}
	p := New(store, inf, lc, pipelineCatalog(t))

	require.NoError(t, p.Run(context.Background(), store.assessment.ID))

	assert.Len(t, store.analyses, 3)
	for name, a := range store.analyses {
		assert.True(t, a.AnalysisComplete, name)
		assert.Equal(t, domain.HealthGood, a.Health, "health must come from the score, not the model")
	}
	assert.NotEmpty(t, store.summary)
	assert.Len(t, store.kits, 3)

	assert.Equal(t, []domain.Deliverable{
		domain.DeliverableDetailedAnalysis,
		domain.DeliverableExecutiveSummary,
		domain.DeliverableImplementationKits,
	}, lc.items)
}

func TestSingleDomainFailureIsIsolated(t *testing.T) {
	store := newMemStore()
	seedResponses(store, map[string]int{"Finance": 3, "Sales": 6})
	inf := &fakeInference{
		triageRes:   &inference.TriageResult{PriorityDomains: []string{"Finance", "Sales"}},
		failDomains: map[string]bool{"Finance": true},
	}
	lc := &deliveryLog{}
	p := New(store, inf, lc, pipelineCatalog(t))

	require.NoError(t, p.Run(context.Background(), store.assessment.ID))

	fin := store.analyses["Finance"]
	assert.False(t, fin.AnalysisComplete)
	assert.Equal(t, fallbackScore, fin.Score)
	assert.Equal(t, domain.HealthWarning, fin.Health)

	sal := store.analyses["Sales"]
	assert.True(t, sal.AnalysisComplete, "sibling domain must not be cancelled")

	// the fallback domain gets no kit
	_, hasFinKit := store.kits["Finance"]
	assert.False(t, hasFinKit)
	_, hasSalKit := store.kits["Sales"]
	assert.True(t, hasSalKit)

	// at least one real analysis succeeded, so detailed analysis is delivered
	assert.Contains(t, lc.items, domain.DeliverableDetailedAnalysis)
}

func TestAllDomainsFailingSkipsDetailedDeliverable(t *testing.T) {
	store := newMemStore()
	seedResponses(store, map[string]int{"Finance": 3, "Sales": 6})
	inf := &fakeInference{
		triageRes:   &inference.TriageResult{PriorityDomains: []string{"Finance", "Sales"}},
		failDomains: map[string]bool{"Finance": true, "Sales": true},
	}
	lc := &deliveryLog{}
	p := New(store, inf, lc, pipelineCatalog(t))

	require.NoError(t, p.Run(context.Background(), store.assessment.ID))

	assert.NotContains(t, lc.items, domain.DeliverableDetailedAnalysis)
	// the run still finishes the remaining stages
	assert.Contains(t, lc.items, domain.DeliverableExecutiveSummary)
	assert.Contains(t, lc.items, domain.DeliverableImplementationKits)
	assert.Empty(t, store.kits)
}

func TestSummaryFailureUsesPlaceholder(t *testing.T) {
	store := newMemStore()
	seedResponses(store, map[string]int{"Finance": 3})
	inf := &fakeInference{
		triageRes:  &inference.TriageResult{PriorityDomains: []string{"Finance"}},
		summaryErr: errors.New("model unavailable"),
	}
	lc := &deliveryLog{}
	p := New(store, inf, lc, pipelineCatalog(t))

	require.NoError(t, p.Run(context.Background(), store.assessment.ID))

	assert.Equal(t, summaryPlaceholder, store.summary)
	assert.Contains(t, lc.items, domain.DeliverableExecutiveSummary)
}

func TestKitFailureFallsBackToAnalysisLists(t *testing.T) {
	store := newMemStore()
	seedResponses(store, map[string]int{"Finance": 3})
	inf := &fakeInference{
		triageRes: &inference.TriageResult{PriorityDomains: []string{"Finance"}},
		kitErr:    errors.New("model unavailable"),
	}
	lc := &deliveryLog{}
	p := New(store, inf, lc, pipelineCatalog(t))

	require.NoError(t, p.Run(context.Background(), store.assessment.ID))

	kit, ok := store.kits["Finance"]
	require.True(t, ok)
	assert.Equal(t, []string{"Publish the current playbook"}, kit.First30Days)
	assert.Equal(t, []string{"Tighten the monthly review loop"}, kit.Next60Days)
	assert.Equal(t, []string{"Mitigate: Key-person dependency"}, kit.Next90Days)
}

func TestPersistenceErrorAbortsRun(t *testing.T) {
	store := newMemStore()
	seedResponses(store, map[string]int{"Finance": 3})
	store.upsertErr = errors.New("connection reset")
	inf := &fakeInference{
		triageRes: &inference.TriageResult{PriorityDomains: []string{"Finance"}},
	}
	lc := &deliveryLog{}
	p := New(store, inf, lc, pipelineCatalog(t))

	err := p.Run(context.Background(), store.assessment.ID)
	require.Error(t, err)
	assert.Empty(t, lc.items, "no deliverables on a persistence failure")
}

func TestTriageFailureFallsBackToDefaultList(t *testing.T) {
	store := newMemStore()
	seedResponses(store, map[string]int{
		"Finance": 9, "Operations": 2, "Sales": 5, "Marketing": 5, "Technology": 7,
	})
	inf := &fakeInference{triageErr: errors.New("model unavailable")}
	lc := &deliveryLog{}
	cat := pipelineCatalog(t)
	p := New(store, inf, lc, cat)

	plan := p.triage(context.Background(), store.responses, store.assessment.Company)

	// default list re-ranked ascending by average; ties broken by catalog order
	assert.Equal(t, []string{"Operations", "Sales", "Marketing", "Technology", "Finance"}, plan.Domains)
}

func TestTriageSanitizesModelOutput(t *testing.T) {
	store := newMemStore()
	seedResponses(store, map[string]int{
		"Finance": 2, "Sales": 8, "Operations": 5, "Marketing": 6, "Leadership": 7, "Technology": 9,
	})
	inf := &fakeInference{
		triageRes: &inference.TriageResult{
			PriorityDomains: []string{
				"Sales", "Astrology", "Sales", "Finance", "Operations",
				"Leadership", "Marketing", "Technology", // over the bound
			},
		},
	}
	cat := pipelineCatalog(t)
	p := New(store, inf, &deliveryLog{}, cat)

	plan := p.triage(context.Background(), store.responses, store.assessment.Company)

	require.Len(t, plan.Domains, catalog.MaxPriorityDomains)
	assert.NotContains(t, plan.Domains, "Astrology")
	assert.Equal(t, []string{"Finance", "Operations", "Marketing", "Leadership", "Sales"}, plan.Domains)
}

func TestTriageEmptyResultUsesDefaults(t *testing.T) {
	store := newMemStore()
	seedResponses(store, map[string]int{"Finance": 4})
	inf := &fakeInference{
		triageRes: &inference.TriageResult{
			PriorityDomains: []string{"Astrology"},
			CriticalIssues:  []string{"Unclear ownership"},
		},
	}
	cat := pipelineCatalog(t)
	p := New(store, inf, &deliveryLog{}, cat)

	plan := p.triage(context.Background(), store.responses, store.assessment.Company)

	assert.Len(t, plan.Domains, catalog.MaxPriorityDomains)
	assert.Equal(t, []string{"Unclear ownership"}, plan.CriticalIssues)
}

func TestRankDomainsTiebreakIsCatalogOrder(t *testing.T) {
	cat := pipelineCatalog(t)
	p := New(newMemStore(), &fakeInference{}, &deliveryLog{}, cat)

	got := p.rankDomains(
		[]string{"Leadership", "Sales", "Finance"},
		map[string]float64{"Leadership": 5, "Sales": 5, "Finance": 5},
	)

	assert.Equal(t, []string{"Finance", "Sales", "Leadership"}, got)
}
