package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

func buildEvidenceBlock(evidence []domain.RetrievedResult) string {
	var b strings.Builder
	for _, ev := range evidence {
		b.WriteString(fmt.Sprintf("[%s] company=%s filed=%s\n%s\n\n",
			ev.ChunkID,
			ev.CompanyID,
			ev.FilingDate.Format("2006-01-02"),
			ev.Text,
		))
	}
	return b.String()
}

func buildDraftPrompt(promptVersion, sectionKey string, evidence []domain.RetrievedResult) string {
	return fmt.Sprintf(`You draft financial disclosure text. Template: %s.
Write the %q section using only the evidence excerpts below.
Return a strict JSON object: {"paragraphs": [{"text": string, "citations": [string]}]}.
Every paragraph must cite at least one evidence id (the bracketed token before each excerpt).
Cite only ids that appear in the evidence. No markdown, no extra keys.

Evidence:
%s`, promptVersion, sectionKey, buildEvidenceBlock(evidence))
}

func buildRepairPrompt(promptVersion string, draft domain.Draft, report domain.CoverageReport, evidence []domain.RetrievedResult) string {
	var problems strings.Builder
	for _, idx := range report.UncitedParagraphs {
		problems.WriteString(fmt.Sprintf("- paragraph %d has no citations\n", idx))
	}
	for _, fab := range report.FabricatedCitations {
		problems.WriteString(fmt.Sprintf("- paragraph %d cites unknown id %s\n", fab.Paragraph, fab.ChunkID))
	}

	var current strings.Builder
	for idx, p := range draft.Paragraphs {
		current.WriteString(fmt.Sprintf("paragraph %d (citations: %s):\n%s\n\n",
			idx, strings.Join(p.Citations, ", "), p.Text))
	}

	return fmt.Sprintf(`You repair citation coverage in a disclosure draft. Template: %s.
Fix ONLY the problems listed; keep the paragraph texts unchanged unless a
claim cannot be supported by the evidence, in which case remove the claim.
Return the full draft as strict JSON: {"paragraphs": [{"text": string, "citations": [string]}]}.
Cite only ids that appear in the evidence.

Problems:
%s
Current draft:
%s
Evidence:
%s`, promptVersion, problems.String(), current.String(), buildEvidenceBlock(evidence))
}

func buildVerifyPrompt(promptVersion, paragraph string, evidence []domain.RetrievedResult) string {
	return fmt.Sprintf(`You verify a disclosure paragraph against filed evidence. Template: %s.
Report claims that are contradicted or unsupported by the evidence below.
Do not report numeric, date, or unit mismatches; only semantic conflicts.
Return strict JSON: {"issues": [{"kind": "semantic", "severity": "low"|"medium"|"high",
"claim_text": string, "explanation": string, "cited_chunk_ids": [string]}]}.
Every issue must cite the evidence ids that contradict the claim.
An empty issues array means the paragraph is consistent.

Paragraph:
%s

Evidence:
%s`, promptVersion, paragraph, buildEvidenceBlock(evidence))
}
