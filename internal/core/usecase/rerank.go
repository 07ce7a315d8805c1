package usecase

import (
	"strings"
	"unicode"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

// rerankCandidates sets RerankScore on the top topN fused candidates from
// query/excerpt token overlap. The fused order is left untouched: the
// rerank signal feeds the confidence scorer, it does not reshuffle the
// audited retrieval ranking.
func rerankCandidates(query string, fused []domain.RetrievedResult, topN int) []domain.RetrievedResult {
	if len(fused) == 0 {
		return fused
	}
	if topN <= 0 || topN > len(fused) {
		topN = len(fused)
	}

	queryTokens := toTokenSet(query)
	for i := 0; i < topN; i++ {
		overlap := tokenOverlap(queryTokens, toTokenSet(fused[i].Text))
		score := 0.7*fused[i].RetrievalScore + 0.3*overlap
		fused[i].RerankScore = &score
	}
	return fused
}

func tokenOverlap(query, excerpt map[string]struct{}) float64 {
	if len(query) == 0 || len(excerpt) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := excerpt[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

func toTokenSet(s string) map[string]struct{} {
	tokens := tokenizeAlphaNum(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func tokenizeAlphaNum(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
