package pipeline

import (
	"github.com/google/uuid"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
)

const (
	fallbackScore   = 5
	fallbackSummary = "This domain's detailed analysis is still processing. " +
		"Your responses have been recorded and the analysis will appear in your report shortly."
	summaryPlaceholder = "Your executive summary is being prepared and will be available shortly."
)

// fallbackAnalysis is the safe default recorded when one domain's inference
// call fails, so the rest of the pipeline can proceed. AnalysisComplete stays
// false: a re-run replaces this record with the real analysis.
func fallbackAnalysis(assessmentID uuid.UUID, domainName string) domain.DomainAnalysis {
	return domain.DomainAnalysis{
		AssessmentID: assessmentID,
		DomainName:   domainName,
		Score:        fallbackScore,
		Health:       domain.HealthForScore(fallbackScore),
		Summary:      fallbackSummary,
		Recommendations: []string{
			"Review this domain's responses with your team",
			"Identify the top recurring pain point",
		},
		KeyInsights: []string{"Detailed insights are still being generated for this domain"},
		QuickWins:   []string{"Document your current process for this domain"},
		RiskFactors: []string{"Assessment pending for this domain"},
	}
}

// fallbackKit assembles a staged plan from the analysis's own action lists
// when kit generation fails.
func fallbackKit(a domain.DomainAnalysis) domain.ImplementationKit {
	kit := domain.ImplementationKit{
		DomainName:  a.DomainName,
		First30Days: a.QuickWins,
		Next60Days:  a.Recommendations,
	}
	for _, rf := range a.RiskFactors {
		kit.Next90Days = append(kit.Next90Days, "Mitigate: "+rf)
	}
	if len(kit.First30Days) == 0 {
		kit.First30Days = []string{"Review the domain analysis with your team"}
	}
	return kit
}
