package usecase

import (
	"testing"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

func TestValidateCoverageAcceptsFullyCitedDraft(t *testing.T) {
	draft := domain.Draft{Paragraphs: []domain.Paragraph{
		{Text: "Revenue grew.", Citations: []string{"c1", "c2"}},
		{Text: "Margins held.", Citations: []string{"c2"}},
	}}

	report := ValidateCoverage(draft, []string{"c1", "c2", "c3"})
	if !report.Covered {
		t.Fatalf("fully cited draft must be covered: %+v", report)
	}
	if len(report.UncitedParagraphs) != 0 || len(report.FabricatedCitations) != 0 {
		t.Fatalf("covered report must carry no findings: %+v", report)
	}
}

func TestValidateCoverageFlagsUncitedParagraph(t *testing.T) {
	draft := domain.Draft{Paragraphs: []domain.Paragraph{
		{Text: "Revenue grew.", Citations: []string{"c1"}},
		{Text: "Margins held.", Citations: nil},
	}}

	report := ValidateCoverage(draft, []string{"c1"})
	if report.Covered {
		t.Fatal("uncited paragraph must fail coverage")
	}
	if len(report.UncitedParagraphs) != 1 || report.UncitedParagraphs[0] != 1 {
		t.Fatalf("expected paragraph 1 uncited, got %v", report.UncitedParagraphs)
	}
	if len(report.FabricatedCitations) != 0 {
		t.Fatalf("no fabricated citations expected, got %v", report.FabricatedCitations)
	}
}

func TestValidateCoverageFlagsFabricatedCitations(t *testing.T) {
	draft := domain.Draft{Paragraphs: []domain.Paragraph{
		{Text: "Revenue grew.", Citations: []string{"c1", "ghost-a"}},
		{Text: "Margins held.", Citations: []string{"ghost-b"}},
	}}

	report := ValidateCoverage(draft, []string{"c1"})
	if report.Covered {
		t.Fatal("citations outside the evidence set must fail coverage")
	}
	want := []domain.FabricatedCitation{
		{Paragraph: 0, ChunkID: "ghost-a"},
		{Paragraph: 1, ChunkID: "ghost-b"},
	}
	if len(report.FabricatedCitations) != len(want) {
		t.Fatalf("expected %d fabricated citations, got %v", len(want), report.FabricatedCitations)
	}
	for i, fc := range report.FabricatedCitations {
		if fc != want[i] {
			t.Fatalf("fabricated citation %d: expected %+v, got %+v", i, want[i], fc)
		}
	}
}

func TestValidateCoverageSeparatesBothFailureKinds(t *testing.T) {
	draft := domain.Draft{Paragraphs: []domain.Paragraph{
		{Text: "Uncited.", Citations: nil},
		{Text: "Fabricated.", Citations: []string{"nope"}},
	}}

	report := ValidateCoverage(draft, []string{"c1"})
	if report.Covered {
		t.Fatal("draft must fail coverage")
	}
	if len(report.UncitedParagraphs) != 1 || len(report.FabricatedCitations) != 1 {
		t.Fatalf("both failure kinds must be reported separately: %+v", report)
	}
	if HasFullCoverage(draft, []string{"c1"}) {
		t.Fatal("HasFullCoverage must agree with the report")
	}
}
