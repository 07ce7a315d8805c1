package usecase

import (
	"sort"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

type fusedCandidate struct {
	result  domain.RetrievedResult
	lexical float64
	vector  float64
	inLex   bool
	inVec   bool
}

// fuseCandidates merges the lexical and vector sub-results into one ranked
// list. Each signal is min-max normalized within its own candidate set, so
// neither scale dominates, then combined as a weighted sum. A chunk present
// in both lists is marked SourceBoth and carries both terms. Ordering is
// combined score descending, then both-source over single-source, then
// chunk id ascending so repeated runs rank identically.
func fuseCandidates(lexical, vector []domain.RetrievedResult, lexWeight, vecWeight float64) []domain.RetrievedResult {
	if lexWeight <= 0 && vecWeight <= 0 {
		lexWeight, vecWeight = 0.5, 0.5
	}

	lexNorm := normalizeScores(lexical)
	vecNorm := normalizeScores(vector)

	acc := make(map[string]*fusedCandidate, len(lexical)+len(vector))
	for i, r := range lexical {
		c := acc[r.ChunkID]
		if c == nil {
			c = &fusedCandidate{result: r}
			acc[r.ChunkID] = c
		}
		c.lexical = lexNorm[i]
		c.inLex = true
	}
	for i, r := range vector {
		c := acc[r.ChunkID]
		if c == nil {
			c = &fusedCandidate{result: r}
			acc[r.ChunkID] = c
		}
		c.vector = vecNorm[i]
		c.inVec = true
		if c.result.Text == "" && r.Text != "" {
			c.result = r
		}
	}

	out := make([]domain.RetrievedResult, 0, len(acc))
	for _, c := range acc {
		r := c.result
		r.RetrievalScore = lexWeight*c.lexical + vecWeight*c.vector
		switch {
		case c.inLex && c.inVec:
			r.Source = domain.SourceBoth
		case c.inLex:
			r.Source = domain.SourceLexical
		default:
			r.Source = domain.SourceVector
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RetrievalScore != out[j].RetrievalScore {
			return out[i].RetrievalScore > out[j].RetrievalScore
		}
		iBoth := out[i].Source == domain.SourceBoth
		jBoth := out[j].Source == domain.SourceBoth
		if iBoth != jBoth {
			return iBoth
		}
		return out[i].ChunkID < out[j].ChunkID
	})

	return out
}

// normalizeScores maps a signal's raw scores onto [0,1] within the
// candidate set. A degenerate range collapses to 1 for positive scores so
// a single-hit sub-search still contributes.
func normalizeScores(results []domain.RetrievedResult) []float64 {
	out := make([]float64, len(results))
	if len(results) == 0 {
		return out
	}

	minScore := results[0].RetrievalScore
	maxScore := results[0].RetrievalScore
	for _, r := range results[1:] {
		if r.RetrievalScore < minScore {
			minScore = r.RetrievalScore
		}
		if r.RetrievalScore > maxScore {
			maxScore = r.RetrievalScore
		}
	}

	scoreRange := maxScore - minScore
	for i, r := range results {
		if scoreRange <= 0 {
			if r.RetrievalScore > 0 {
				out[i] = 1
			}
			continue
		}
		out[i] = (r.RetrievalScore - minScore) / scoreRange
	}
	return out
}

func trimCandidates(results []domain.RetrievedResult, limit int) []domain.RetrievedResult {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}
