// Package pipeline runs the staged analysis for one assessment: triage the
// priority domains, analyze each with failure isolation, synthesize the
// executive summary, derive implementation kits, and track deliverables.
// Inference failures degrade to fallback content; only persistence errors
// propagate, which the worker records as an assessment-level failure.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/analysis/inference"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/catalog"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/documents"
)

// domainConcurrency bounds the analysis fan-out.
const domainConcurrency = 3

// Store is the persistence surface the pipeline reads and writes.
type Store interface {
	Assessment(ctx context.Context, id uuid.UUID) (*domain.Assessment, error)
	Responses(ctx context.Context, id uuid.UUID) ([]domain.Response, error)
	Documents(ctx context.Context, id uuid.UUID) ([]documents.Document, error)
	UpsertAnalysis(ctx context.Context, a domain.DomainAnalysis) error
	Analyses(ctx context.Context, id uuid.UUID) ([]domain.DomainAnalysis, error)
	SetExecutiveSummary(ctx context.Context, id uuid.UUID, summary string) error
	SetKit(ctx context.Context, id uuid.UUID, domainName string, kit domain.ImplementationKit) error
}

// Inference is the model gateway surface.
type Inference interface {
	Triage(ctx context.Context, req inference.TriageRequest) (*inference.TriageResult, error)
	AnalyzeDomain(ctx context.Context, req inference.DomainRequest) (*inference.DomainResult, error)
	Summarize(ctx context.Context, req inference.SummaryRequest) (string, error)
	GenerateKit(ctx context.Context, req inference.KitRequest) (*inference.KitResult, error)
}

// Lifecycle receives deliverable completions.
type Lifecycle interface {
	OnDeliverable(ctx context.Context, id uuid.UUID, d domain.Deliverable) error
}

// Pipeline orchestrates one assessment's analysis run.
type Pipeline struct {
	store     Store
	inference Inference
	lifecycle Lifecycle
	catalog   *catalog.Catalog
}

func New(store Store, inf Inference, lc Lifecycle, cat *catalog.Catalog) *Pipeline {
	return &Pipeline{store: store, inference: inf, lifecycle: lc, catalog: cat}
}

// Run executes all stages for an assessment already transitioned into
// analysis. Re-runs are safe: every stage is an idempotent upsert.
func (p *Pipeline) Run(ctx context.Context, id uuid.UUID) error {
	a, err := p.store.Assessment(ctx, id)
	if err != nil {
		return fmt.Errorf("load assessment: %w", err)
	}

	responses, err := p.store.Responses(ctx, id)
	if err != nil {
		return fmt.Errorf("load responses: %w", err)
	}

	docs, err := p.store.Documents(ctx, id)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}

	plan := p.triage(ctx, responses, a.Company)
	log.Printf("[pipeline] assessment=%s priority_domains=%v critical_issues=%d", id, plan.Domains, len(plan.CriticalIssues))

	anyComplete, err := p.analyzeDomains(ctx, a, responses, docs, plan.Domains)
	if err != nil {
		return err
	}
	if anyComplete {
		if err := p.lifecycle.OnDeliverable(ctx, id, domain.DeliverableDetailedAnalysis); err != nil {
			return fmt.Errorf("deliver detailed analysis: %w", err)
		}
	}

	if err := p.summarize(ctx, a); err != nil {
		return err
	}
	if err := p.lifecycle.OnDeliverable(ctx, id, domain.DeliverableExecutiveSummary); err != nil {
		return fmt.Errorf("deliver executive summary: %w", err)
	}

	if err := p.generateKits(ctx, a); err != nil {
		return err
	}
	if err := p.lifecycle.OnDeliverable(ctx, id, domain.DeliverableImplementationKits); err != nil {
		return fmt.Errorf("deliver implementation kits: %w", err)
	}

	return nil
}

// analyzeDomains fans the prioritized domains out with bounded concurrency.
// A single domain's inference failure becomes a fallback record and never
// cancels its siblings; only persistence errors abort the run. Reports
// whether at least one domain produced a complete (non-fallback) analysis.
func (p *Pipeline) analyzeDomains(ctx context.Context, a *domain.Assessment, responses []domain.Response, docs []documents.Document, domains []string) (bool, error) {
	byDomain := make(map[string][]inference.ResponseItem)
	for _, r := range responses {
		byDomain[r.DomainName] = append(byDomain[r.DomainName], inference.ResponseItem{
			QuestionID: r.QuestionID,
			DomainName: r.DomainName,
			Response:   r.Response,
			Score:      r.Score,
		})
	}

	docItems := make([]inference.DocumentItem, 0, len(docs))
	for _, d := range docs {
		docItems = append(docItems, inference.DocumentItem{
			FileName: d.FileName,
			FileType: d.FileType,
			Size:     d.SizeBytes,
		})
	}

	complete := make([]bool, len(domains))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(domainConcurrency)
	for i, name := range domains {
		g.Go(func() error {
			analysis := p.analyzeOne(gctx, a, name, byDomain[name], docItems)
			complete[i] = analysis.AnalysisComplete
			if err := p.store.UpsertAnalysis(gctx, analysis); err != nil {
				return fmt.Errorf("persist analysis %s: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	for _, c := range complete {
		if c {
			return true, nil
		}
	}
	return false, nil
}

// analyzeOne runs one domain's inference call and converts any failure into
// the safe fallback record. Health is always re-derived from the score so a
// contradictory inference response cannot desynchronize the two.
func (p *Pipeline) analyzeOne(ctx context.Context, a *domain.Assessment, name string, items []inference.ResponseItem, docs []inference.DocumentItem) domain.DomainAnalysis {
	res, err := p.inference.AnalyzeDomain(ctx, inference.DomainRequest{
		DomainName: name,
		Specialist: p.catalog.Specialist(name),
		Responses:  items,
		Documents:  docs,
		Company:    a.Company,
	})
	if err != nil {
		log.Printf("[pipeline] assessment=%s domain=%q analysis failed, using fallback: %v", a.ID, name, err)
		return fallbackAnalysis(a.ID, name)
	}

	return domain.DomainAnalysis{
		AssessmentID:     a.ID,
		DomainName:       name,
		Score:            res.Score,
		Health:           domain.HealthForScore(res.Score),
		Summary:          res.Summary,
		Recommendations:  res.Recommendations,
		KeyInsights:      res.KeyInsights,
		QuickWins:        res.QuickWins,
		RiskFactors:      res.RiskFactors,
		AnalysisComplete: true,
	}
}

// summarize runs the executive summary stage over every analysis produced so
// far, fallbacks included. Its own failure degrades to a placeholder.
func (p *Pipeline) summarize(ctx context.Context, a *domain.Assessment) error {
	analyses, err := p.store.Analyses(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("load analyses: %w", err)
	}

	items := make([]inference.DomainSummaryItem, 0, len(analyses))
	for _, da := range analyses {
		items = append(items, inference.DomainSummaryItem{
			DomainName: da.DomainName,
			Score:      da.Score,
			Health:     string(da.Health),
			Summary:    da.Summary,
		})
	}

	summary, err := p.inference.Summarize(ctx, inference.SummaryRequest{Analyses: items, Company: a.Company})
	if err != nil {
		log.Printf("[pipeline] assessment=%s summary failed, using placeholder: %v", a.ID, err)
		summary = summaryPlaceholder
	}

	if err := p.store.SetExecutiveSummary(ctx, a.ID, summary); err != nil {
		return fmt.Errorf("persist summary: %w", err)
	}
	return nil
}

// generateKits derives a staged action kit for each completed domain
// analysis. Inference failure for one kit falls back to a plan assembled from
// the analysis's own quick wins and recommendations.
func (p *Pipeline) generateKits(ctx context.Context, a *domain.Assessment) error {
	analyses, err := p.store.Analyses(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("load analyses: %w", err)
	}

	for _, da := range analyses {
		if !da.AnalysisComplete {
			continue
		}

		kit := domain.ImplementationKit{DomainName: da.DomainName}
		res, err := p.inference.GenerateKit(ctx, inference.KitRequest{
			DomainName:      da.DomainName,
			Recommendations: da.Recommendations,
			QuickWins:       da.QuickWins,
			Company:         a.Company,
		})
		if err != nil {
			log.Printf("[pipeline] assessment=%s domain=%q kit failed, using fallback: %v", a.ID, da.DomainName, err)
			kit = fallbackKit(da)
		} else {
			kit.First30Days = res.First30Days
			kit.Next60Days = res.Next60Days
			kit.Next90Days = res.Next90Days
		}

		if err := p.store.SetKit(ctx, a.ID, da.DomainName, kit); err != nil {
			return fmt.Errorf("persist kit %s: %w", da.DomainName, err)
		}
	}
	return nil
}

// rankDomains orders candidate domains ascending by average score (most
// problematic first), breaking ties by catalog declaration order.
func (p *Pipeline) rankDomains(candidates []string, averages map[string]float64) []string {
	out := append([]string(nil), candidates...)
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := averages[out[i]], averages[out[j]]
		if ai != aj {
			return ai < aj
		}
		return p.catalog.DomainIndex(out[i]) < p.catalog.DomainIndex(out[j])
	})
	return out
}
