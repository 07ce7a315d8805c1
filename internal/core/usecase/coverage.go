package usecase

import (
	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

// ValidateCoverage checks that every paragraph carries at least one
// citation into the evidence set used to produce the draft, and that no
// citation points outside it. Pure function; the draft is not mutated.
// An uncited paragraph and a fabricated citation are both coverage
// failures, and the report keeps them apart so repair can target each.
func ValidateCoverage(draft domain.Draft, evidenceIDs []string) domain.CoverageReport {
	known := make(map[string]struct{}, len(evidenceIDs))
	for _, id := range evidenceIDs {
		known[id] = struct{}{}
	}

	report := domain.CoverageReport{Covered: true}
	for i, paragraph := range draft.Paragraphs {
		if len(paragraph.Citations) == 0 {
			report.Covered = false
			report.UncitedParagraphs = append(report.UncitedParagraphs, i)
			continue
		}
		for _, chunkID := range paragraph.Citations {
			if _, ok := known[chunkID]; !ok {
				report.Covered = false
				report.FabricatedCitations = append(report.FabricatedCitations, domain.FabricatedCitation{
					Paragraph: i,
					ChunkID:   chunkID,
				})
			}
		}
	}
	return report
}

// HasFullCoverage is the coarse boolean contract over ValidateCoverage.
func HasFullCoverage(draft domain.Draft, evidenceIDs []string) bool {
	return ValidateCoverage(draft, evidenceIDs).Covered
}
