package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
	"github.com/kirillkom/disclosure-grounding/internal/core/ports"
)

// RetrieverConfig carries the fusion knobs; zero values fall back to
// defaults so a partially filled config stays usable.
type RetrieverConfig struct {
	LexicalWeight float64
	VectorWeight  float64
	// Candidates is the per-signal sub-search limit before fusion.
	Candidates int
	RerankTopN int
}

func (c RetrieverConfig) normalize() RetrieverConfig {
	out := c
	if out.LexicalWeight <= 0 && out.VectorWeight <= 0 {
		out.LexicalWeight, out.VectorWeight = 0.5, 0.5
	}
	if out.LexicalWeight < 0 {
		out.LexicalWeight = 0
	}
	if out.VectorWeight < 0 {
		out.VectorWeight = 0
	}
	// Weights are renormalized to sum to 1 so fused scores stay in [0,1]
	// and feed the confidence scorer without clamping.
	sum := out.LexicalWeight + out.VectorWeight
	out.LexicalWeight /= sum
	out.VectorWeight /= sum
	if out.Candidates <= 0 {
		out.Candidates = 30
	}
	if out.RerankTopN <= 0 {
		out.RerankTopN = 20
	}
	return out
}

// HybridRetriever merges the lexical and vector sub-searches into one
// deterministic ranked list. Peer retrieval is the same path with the
// filter scoped to a resolved peer set.
type HybridRetriever struct {
	embedder ports.Embedder
	index    ports.SearchIndex
	peers    ports.PeerSetStore
	cfg      RetrieverConfig
}

func NewHybridRetriever(embedder ports.Embedder, index ports.SearchIndex, peers ports.PeerSetStore, cfg RetrieverConfig) *HybridRetriever {
	return &HybridRetriever{
		embedder: embedder,
		index:    index,
		peers:    peers,
		cfg:      cfg.normalize(),
	}
}

// Retrieve runs both sub-searches concurrently over the filtered candidate
// set and fuses them. A filter matching zero chunks yields an empty slice,
// not an error; topK <= 0 is a caller bug.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string, filter domain.RetrievalFilter, topK int) ([]domain.RetrievedResult, error) {
	if topK <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidArgument, "retrieve", fmt.Errorf("top_k must be positive, got %d", topK))
	}
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidArgument, "retrieve", errors.New("query is required"))
	}

	if filter.PeerSetID != "" && len(filter.CompanyIDs) == 0 {
		companies, err := r.peers.ResolvePeerSet(ctx, filter.PeerSetID)
		if err != nil {
			return nil, fmt.Errorf("resolve peer set %s: %w", filter.PeerSetID, err)
		}
		if len(companies) == 0 {
			return []domain.RetrievedResult{}, nil
		}
		filter.CompanyIDs = companies
	}

	queryVector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates := r.cfg.Candidates
	if candidates < topK {
		candidates = topK
	}

	type subResult struct {
		results []domain.RetrievedResult
		err     error
	}
	lexCh := make(chan subResult, 1)
	vecCh := make(chan subResult, 1)

	go func() {
		results, err := r.index.SearchLexical(ctx, query, candidates, filter)
		lexCh <- subResult{results: results, err: err}
	}()
	go func() {
		results, err := r.index.Search(ctx, queryVector, candidates, filter)
		vecCh <- subResult{results: results, err: err}
	}()

	lexRes := <-lexCh
	vecRes := <-vecCh
	if lexRes.err != nil {
		return nil, fmt.Errorf("lexical search: %w", lexRes.err)
	}
	if vecRes.err != nil {
		return nil, fmt.Errorf("vector search: %w", vecRes.err)
	}

	fused := fuseCandidates(lexRes.results, vecRes.results, r.cfg.LexicalWeight, r.cfg.VectorWeight)
	fused = rerankCandidates(query, fused, r.cfg.RerankTopN)
	return trimCandidates(fused, topK), nil
}

// RetrievePeers is the peer-similarity specialization: peer_set_id is
// mandatory and the section key optional.
func (r *HybridRetriever) RetrievePeers(ctx context.Context, query, peerSetID, sectionKey string, topK int) ([]domain.RetrievedResult, error) {
	if peerSetID == "" {
		return nil, domain.WrapError(domain.ErrInvalidArgument, "peer search", errors.New("peer_set_id is required"))
	}
	return r.Retrieve(ctx, query, domain.RetrievalFilter{
		PeerSetID:  peerSetID,
		SectionKey: sectionKey,
	}, topK)
}
