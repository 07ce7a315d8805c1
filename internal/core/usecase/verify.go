package usecase

import (
	"fmt"
	"math"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

// DeterministicVerifier cross-checks numbers, dates, and units in a
// paragraph against retrieved evidence. Identical inputs always yield the
// identical issue sequence, ordered by token position in the paragraph.
type DeterministicVerifier struct {
	// tolerance is the relative tolerance for numeric comparison.
	tolerance float64
}

func NewDeterministicVerifier(tolerance float64) *DeterministicVerifier {
	if tolerance <= 0 {
		tolerance = 0.005
	}
	return &DeterministicVerifier{tolerance: tolerance}
}

type evidenceFact struct {
	fact
	chunkID string
}

// Verify extracts structured tokens from the paragraph and checks each one
// against the evidence set. Pure function of its inputs.
func (v *DeterministicVerifier) Verify(paragraph string, evidence []domain.RetrievedResult) []domain.Issue {
	claims := extractFacts(paragraph)
	if len(claims) == 0 {
		return []domain.Issue{}
	}

	pool := make([]evidenceFact, 0, len(evidence)*4)
	for _, chunk := range evidence {
		for _, f := range extractFacts(chunk.Text) {
			pool = append(pool, evidenceFact{fact: f, chunkID: chunk.ChunkID})
		}
	}

	issues := make([]domain.Issue, 0, len(claims))
	for _, claim := range claims {
		if issue, ok := v.checkClaim(claim, pool); ok {
			issues = append(issues, issue)
		}
	}
	return issues
}

func (v *DeterministicVerifier) checkClaim(claim fact, pool []evidenceFact) (domain.Issue, bool) {
	if claim.kind == factDate {
		return v.checkDate(claim, pool)
	}
	return v.checkNumeric(claim, pool)
}

func (v *DeterministicVerifier) checkNumeric(claim fact, pool []evidenceFact) (domain.Issue, bool) {
	var nearest *evidenceFact
	nearestDiff := math.Inf(1)
	scaleMismatch := false

	for i := range pool {
		ev := pool[i]
		if ev.kind != factNumeric || !compatibleUnits(claim.unit, ev.unit) {
			continue
		}
		if withinTolerance(claim.value, ev.value, v.tolerance) {
			return domain.Issue{}, false
		}

		// The bare figures agree but the scale words do not: a unit
		// discrepancy (thousands vs millions), not a numeric one.
		if withinTolerance(claim.bare, ev.bare, v.tolerance) && claim.scale != ev.scale {
			scaleMismatch = true
		}

		diff := relativeDiff(claim.value, ev.value)
		if diff < nearestDiff {
			nearestDiff = diff
			nearest = &pool[i]
		}
	}

	if nearest == nil {
		issue, _ := domain.NewIssue(domain.IssueNumeric, domain.SeverityMedium, claim.raw,
			"no supporting figure found in the retrieved evidence", nil)
		return issue, true
	}

	if scaleMismatch {
		issue, _ := domain.NewIssue(domain.IssueUnit, domain.SeverityHigh, claim.raw,
			fmt.Sprintf("magnitude disagrees with evidence %q; check the scale (thousands vs millions)", nearest.raw),
			[]string{nearest.chunkID})
		return issue, true
	}

	issue, _ := domain.NewIssue(domain.IssueNumeric, domain.SeverityHigh, claim.raw,
		fmt.Sprintf("nearest evidence figure is %q", nearest.raw),
		[]string{nearest.chunkID})
	return issue, true
}

func (v *DeterministicVerifier) checkDate(claim fact, pool []evidenceFact) (domain.Issue, bool) {
	var nearest *evidenceFact
	for i := range pool {
		ev := pool[i]
		if ev.kind != factDate {
			continue
		}
		if sameDate(claim, ev.fact) {
			return domain.Issue{}, false
		}
		if nearest == nil {
			nearest = &pool[i]
		}
	}

	if nearest == nil {
		issue, _ := domain.NewIssue(domain.IssueDate, domain.SeverityMedium, claim.raw,
			"no supporting date found in the retrieved evidence", nil)
		return issue, true
	}

	issue, _ := domain.NewIssue(domain.IssueDate, domain.SeverityHigh, claim.raw,
		fmt.Sprintf("dates must match exactly; evidence reports %q", nearest.raw),
		[]string{nearest.chunkID})
	return issue, true
}

func withinTolerance(a, b, tolerance float64) bool {
	return relativeDiff(a, b) <= tolerance
}

func relativeDiff(a, b float64) float64 {
	denom := math.Max(math.Abs(a), math.Abs(b))
	if denom == 0 {
		return 0
	}
	return math.Abs(a-b) / denom
}
