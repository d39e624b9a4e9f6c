// Package progress computes questionnaire completion from a response ledger
// snapshot. All functions are pure: the same ledger state always yields the
// same result, regardless of submission order.
package progress

import (
	"math"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/catalog"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
)

// DomainProgress is the per-domain completion breakdown.
type DomainProgress struct {
	Answered     int     `json:"answered"`
	Total        int     `json:"total"`
	AverageScore float64 `json:"average_score"`
}

// Result is a full completion snapshot.
type Result struct {
	QuestionsAnswered int                       `json:"questions_answered"`
	TotalQuestions    int                       `json:"total_questions"`
	Progress          int                       `json:"progress"`
	Domains           map[string]DomainProgress `json:"domains"`
}

// Compute derives completion from the response set and the question total.
// Answered counts distinct question ids, so duplicate rows for the same
// question (which the ledger forbids anyway) cannot inflate progress.
func Compute(responses []domain.Response, cat *catalog.Catalog, totalQuestions int) Result {
	res := Result{
		TotalQuestions: totalQuestions,
		Domains:        make(map[string]DomainProgress),
	}

	seen := make(map[string]bool, len(responses))
	sums := make(map[string]int)
	counts := make(map[string]int)

	for _, r := range responses {
		if seen[r.QuestionID] {
			continue
		}
		seen[r.QuestionID] = true
		res.QuestionsAnswered++
		sums[r.DomainName] += r.Score
		counts[r.DomainName]++
	}

	res.Progress = Percent(res.QuestionsAnswered, totalQuestions)

	for _, name := range cat.DomainNames() {
		dp := DomainProgress{
			Answered: counts[name],
			Total:    cat.QuestionCount(name),
		}
		if dp.Answered > 0 {
			dp.AverageScore = float64(sums[name]) / float64(dp.Answered)
		}
		res.Domains[name] = dp
	}

	return res
}

// Percent is round(100 * answered / total) clamped to [0,100].
func Percent(answered, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(answered) / float64(total)))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// DomainAverages returns each answered domain's average score. Used by triage.
func DomainAverages(responses []domain.Response) map[string]float64 {
	sums := make(map[string]int)
	counts := make(map[string]int)
	seen := make(map[string]bool, len(responses))

	for _, r := range responses {
		if seen[r.QuestionID] {
			continue
		}
		seen[r.QuestionID] = true
		sums[r.DomainName] += r.Score
		counts[r.DomainName]++
	}

	out := make(map[string]float64, len(counts))
	for name, n := range counts {
		out[name] = float64(sums[name]) / float64(n)
	}
	return out
}
