package usecase

import (
	"testing"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

func result(chunkID string, score float64) domain.RetrievedResult {
	return domain.RetrievedResult{ChunkID: chunkID, Text: "text " + chunkID, RetrievalScore: score}
}

func TestFuseCandidatesMergesAndMarksSources(t *testing.T) {
	lexical := []domain.RetrievedResult{result("a", 2.0), result("b", 1.0)}
	vector := []domain.RetrievedResult{result("b", 10.0), result("c", 5.0)}

	fused := fuseCandidates(lexical, vector, 0.5, 0.5)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused candidates, got %d", len(fused))
	}

	// a and b both combine to 0.5; b is in both signals and wins the tie.
	if fused[0].ChunkID != "b" || fused[0].Source != domain.SourceBoth {
		t.Fatalf("expected b (both) first, got %s (%s)", fused[0].ChunkID, fused[0].Source)
	}
	if fused[1].ChunkID != "a" || fused[1].Source != domain.SourceLexical {
		t.Fatalf("expected a (lexical) second, got %s (%s)", fused[1].ChunkID, fused[1].Source)
	}
	if fused[2].ChunkID != "c" || fused[2].Source != domain.SourceVector {
		t.Fatalf("expected c (vector) last, got %s (%s)", fused[2].ChunkID, fused[2].Source)
	}
}

func TestFuseCandidatesTieBreaksOnChunkID(t *testing.T) {
	lexical := []domain.RetrievedResult{result("zz", 3.0), result("aa", 3.0)}

	fused := fuseCandidates(lexical, nil, 0.5, 0.5)
	if len(fused) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(fused))
	}
	if fused[0].ChunkID != "aa" || fused[1].ChunkID != "zz" {
		t.Fatalf("expected deterministic chunk id order [aa zz], got [%s %s]", fused[0].ChunkID, fused[1].ChunkID)
	}

	again := fuseCandidates(lexical, nil, 0.5, 0.5)
	for i := range fused {
		if fused[i].ChunkID != again[i].ChunkID {
			t.Fatalf("fusion not reproducible at index %d: %s vs %s", i, fused[i].ChunkID, again[i].ChunkID)
		}
	}
}

func TestNormalizeScoresDegenerateRange(t *testing.T) {
	single := normalizeScores([]domain.RetrievedResult{result("a", 7.5)})
	if single[0] != 1 {
		t.Fatalf("single positive score should normalize to 1, got %f", single[0])
	}

	zeros := normalizeScores([]domain.RetrievedResult{result("a", 0), result("b", 0)})
	if zeros[0] != 0 || zeros[1] != 0 {
		t.Fatalf("all-zero scores should stay 0, got %v", zeros)
	}
}

func TestNormalizeScoresMapsOntoUnitInterval(t *testing.T) {
	norm := normalizeScores([]domain.RetrievedResult{result("a", 5), result("b", 10), result("c", 7.5)})
	if norm[0] != 0 || norm[1] != 1 || norm[2] != 0.5 {
		t.Fatalf("unexpected normalization: %v", norm)
	}
}

func TestTrimCandidates(t *testing.T) {
	in := []domain.RetrievedResult{result("a", 3), result("b", 2), result("c", 1)}
	if got := trimCandidates(in, 2); len(got) != 2 || got[0].ChunkID != "a" {
		t.Fatalf("expected top 2 starting with a, got %v", got)
	}
	if got := trimCandidates(in, 10); len(got) != 3 {
		t.Fatalf("limit above length should be a no-op, got %d", len(got))
	}
}

func TestRerankScoresTopNWithoutReordering(t *testing.T) {
	fused := []domain.RetrievedResult{
		{ChunkID: "a", Text: "segment revenue grew", RetrievalScore: 0.9},
		{ChunkID: "b", Text: "unrelated leasing disclosure", RetrievalScore: 0.8},
		{ChunkID: "c", Text: "segment revenue detail", RetrievalScore: 0.7},
	}

	out := rerankCandidates("segment revenue", fused, 2)
	if out[0].ChunkID != "a" || out[1].ChunkID != "b" || out[2].ChunkID != "c" {
		t.Fatalf("rerank must not reorder the fused ranking")
	}
	if out[0].RerankScore == nil || out[1].RerankScore == nil {
		t.Fatalf("top-N candidates should carry a rerank score")
	}
	if out[2].RerankScore != nil {
		t.Fatalf("candidates beyond top-N should not carry a rerank score")
	}

	// Full token overlap for a: 0.7*0.9 + 0.3*1.0.
	if got := *out[0].RerankScore; got < 0.929 || got > 0.931 {
		t.Fatalf("unexpected rerank score for a: %f", got)
	}
}
