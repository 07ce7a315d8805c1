package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeIndex struct {
	lexical []domain.RetrievedResult
	vector  []domain.RetrievedResult
	lexErr  error
	vecErr  error

	lexLimit   int
	vecLimit   int
	lexFilter  domain.RetrievalFilter
	vecFilter  domain.RetrievalFilter
	lastVector []float32
}

func (f *fakeIndex) Search(ctx context.Context, queryVector []float32, limit int, filter domain.RetrievalFilter) ([]domain.RetrievedResult, error) {
	f.vecLimit = limit
	f.vecFilter = filter
	f.lastVector = queryVector
	return f.vector, f.vecErr
}

func (f *fakeIndex) SearchLexical(ctx context.Context, queryText string, limit int, filter domain.RetrievalFilter) ([]domain.RetrievedResult, error) {
	f.lexLimit = limit
	f.lexFilter = filter
	return f.lexical, f.lexErr
}

type fakePeerStore struct {
	members map[string][]string
	err     error
}

func (f *fakePeerStore) ResolvePeerSet(ctx context.Context, peerSetID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.members[peerSetID], nil
}

func newTestRetriever(index *fakeIndex, peers *fakePeerStore) *HybridRetriever {
	return NewHybridRetriever(&fakeEmbedder{vector: []float32{0.1, 0.2}}, index, peers, RetrieverConfig{})
}

func TestRetrieveRejectsInvalidArguments(t *testing.T) {
	r := newTestRetriever(&fakeIndex{}, &fakePeerStore{})

	if _, err := r.Retrieve(context.Background(), "revenue", domain.RetrievalFilter{}, 0); !domain.IsKind(err, domain.ErrInvalidArgument) {
		t.Fatalf("top_k 0 must be rejected, got %v", err)
	}
	if _, err := r.Retrieve(context.Background(), "", domain.RetrievalFilter{}, 5); !domain.IsKind(err, domain.ErrInvalidArgument) {
		t.Fatalf("empty query must be rejected, got %v", err)
	}
	if _, err := r.RetrievePeers(context.Background(), "revenue", "", "", 5); !domain.IsKind(err, domain.ErrInvalidArgument) {
		t.Fatalf("empty peer_set_id must be rejected, got %v", err)
	}
}

func TestRetrieveFusesBothSubSearches(t *testing.T) {
	index := &fakeIndex{
		lexical: []domain.RetrievedResult{result("a", 2), result("b", 1)},
		vector:  []domain.RetrievedResult{result("b", 10), result("c", 5)},
	}
	r := newTestRetriever(index, &fakePeerStore{})

	got, err := r.Retrieve(context.Background(), "revenue growth", domain.RetrievalFilter{FilingVersionID: "fv-1"}, 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	if got[0].ChunkID != "b" || got[0].Source != domain.SourceBoth {
		t.Fatalf("chunk seen by both signals must rank first: %+v", got[0])
	}
	if index.lexFilter.FilingVersionID != "fv-1" || index.vecFilter.FilingVersionID != "fv-1" {
		t.Fatal("filter must reach both sub-searches unchanged")
	}
	if len(index.lastVector) == 0 {
		t.Fatal("dense sub-search must receive the query embedding")
	}
}

func TestRetrieveRenormalizesFusionWeights(t *testing.T) {
	index := &fakeIndex{
		lexical: []domain.RetrievedResult{result("b", 3), result("a", 1)},
		vector:  []domain.RetrievedResult{result("b", 10), result("c", 5)},
	}
	r := NewHybridRetriever(&fakeEmbedder{vector: []float32{1}}, index, &fakePeerStore{}, RetrieverConfig{
		LexicalWeight: 0.8,
		VectorWeight:  0.8,
	})

	got, err := r.Retrieve(context.Background(), "revenue growth", domain.RetrievalFilter{}, 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	for _, res := range got {
		if res.RetrievalScore < 0 || res.RetrievalScore > 1 {
			t.Fatalf("fused score for %s outside [0,1]: %v", res.ChunkID, res.RetrievalScore)
		}
	}
	// b tops both signals, so the renormalized weights sum to exactly 1.
	if got[0].ChunkID != "b" || got[0].RetrievalScore != 1 {
		t.Fatalf("expected b at score 1, got %s at %v", got[0].ChunkID, got[0].RetrievalScore)
	}
}

func TestRetrieveWidensCandidatesToTopK(t *testing.T) {
	index := &fakeIndex{}
	r := NewHybridRetriever(&fakeEmbedder{vector: []float32{1}}, index, &fakePeerStore{}, RetrieverConfig{Candidates: 10})

	if _, err := r.Retrieve(context.Background(), "liquidity", domain.RetrievalFilter{}, 40); err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if index.lexLimit != 40 || index.vecLimit != 40 {
		t.Fatalf("candidate limit must never undercut top_k: lex=%d vec=%d", index.lexLimit, index.vecLimit)
	}
}

func TestRetrieveResolvesPeerSetMembership(t *testing.T) {
	index := &fakeIndex{
		lexical: []domain.RetrievedResult{result("p1", 3)},
	}
	peers := &fakePeerStore{members: map[string][]string{
		"ps-retail": {"co-1", "co-2"},
	}}
	r := newTestRetriever(index, peers)

	got, err := r.RetrievePeers(context.Background(), "same store sales", "ps-retail", "mdna", 5)
	if err != nil {
		t.Fatalf("retrieve peers: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	wantCompanies := []string{"co-1", "co-2"}
	if len(index.lexFilter.CompanyIDs) != 2 {
		t.Fatalf("resolved membership must reach the index filter, got %v", index.lexFilter.CompanyIDs)
	}
	for i, id := range index.lexFilter.CompanyIDs {
		if id != wantCompanies[i] {
			t.Fatalf("company filter %d: expected %s, got %s", i, wantCompanies[i], id)
		}
	}
	if index.lexFilter.SectionKey != "mdna" {
		t.Fatalf("section key must pass through, got %q", index.lexFilter.SectionKey)
	}
}

func TestRetrieveEmptyPeerSetYieldsNoResults(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1}}
	r := NewHybridRetriever(embedder, &fakeIndex{}, &fakePeerStore{members: map[string][]string{}}, RetrieverConfig{})

	got, err := r.RetrievePeers(context.Background(), "capex", "ps-empty", "", 5)
	if err != nil {
		t.Fatalf("retrieve peers: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("empty membership must yield empty results, got %v", got)
	}
	if embedder.calls != 0 {
		t.Fatal("empty membership must short-circuit before embedding")
	}
}

func TestRetrievePropagatesSubSearchFailures(t *testing.T) {
	storageDown := domain.WrapError(domain.ErrStorageUnavailable, "search", errors.New("connection refused"))

	r := newTestRetriever(&fakeIndex{lexErr: storageDown}, &fakePeerStore{})
	if _, err := r.Retrieve(context.Background(), "debt", domain.RetrievalFilter{}, 5); !domain.IsKind(err, domain.ErrStorageUnavailable) {
		t.Fatalf("lexical failure must propagate, got %v", err)
	}

	r = newTestRetriever(&fakeIndex{vecErr: storageDown}, &fakePeerStore{})
	if _, err := r.Retrieve(context.Background(), "debt", domain.RetrievalFilter{}, 5); !domain.IsKind(err, domain.ErrStorageUnavailable) {
		t.Fatalf("vector failure must propagate, got %v", err)
	}
}
