package pipeline

import (
	"context"
	"log"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/analysis/inference"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/catalog"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/progress"
)

// Plan is the triage stage output: which domains get deep analysis, in what
// order, plus any cross-domain critical issues the ranking surfaced.
type Plan struct {
	Domains        []string
	CriticalIssues []string
}

// triage selects the bounded priority domain list. The inference ranking is
// sanitized against the catalog and re-ordered ascending by average score
// with declaration-order tiebreaks; if the call fails or returns nothing
// usable, the catalog's fixed default list keeps the pipeline moving.
// Triage failure is never fatal to the assessment.
func (p *Pipeline) triage(ctx context.Context, responses []domain.Response, company domain.CompanyContext) Plan {
	items := make([]inference.ResponseItem, 0, len(responses))
	for _, r := range responses {
		items = append(items, inference.ResponseItem{
			QuestionID: r.QuestionID,
			DomainName: r.DomainName,
			Response:   r.Response,
			Score:      r.Score,
		})
	}

	averages := progress.DomainAverages(responses)

	res, err := p.inference.Triage(ctx, inference.TriageRequest{
		Responses:  items,
		Company:    company,
		MaxDomains: catalog.MaxPriorityDomains,
	})
	if err != nil {
		log.Printf("[pipeline] triage failed, using default priorities: %v", err)
		return Plan{Domains: p.rankDomains(p.catalog.DefaultPriorities(), averages)}
	}

	candidates := sanitizeDomains(res.PriorityDomains, p.catalog)
	if len(candidates) == 0 {
		log.Printf("[pipeline] triage returned no usable domains, using default priorities")
		return Plan{
			Domains:        p.rankDomains(p.catalog.DefaultPriorities(), averages),
			CriticalIssues: res.CriticalIssues,
		}
	}

	return Plan{
		Domains:        p.rankDomains(candidates, averages),
		CriticalIssues: res.CriticalIssues,
	}
}

// sanitizeDomains drops unknown names, dedupes, and enforces the bound.
func sanitizeDomains(names []string, cat *catalog.Catalog) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, catalog.MaxPriorityDomains)
	for _, n := range names {
		if !cat.HasDomain(n) || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
		if len(out) == catalog.MaxPriorityDomains {
			break
		}
	}
	return out
}
