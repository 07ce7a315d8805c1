package domain

import "time"

// Chunk is the unit of retrievable filing text. Chunks are produced by the
// external ingestion pipeline and are read-only here; the service only
// references them by ChunkID.
type Chunk struct {
	ChunkID         string    `json:"chunk_id"`
	DocumentID      string    `json:"document_id"`
	FilingVersionID string    `json:"filing_version_id"`
	SectionKey      string    `json:"section_key"`
	CompanyID       string    `json:"company_id"`
	Text            string    `json:"text"`
	Embedding       []float32 `json:"embedding,omitempty"`
	FilingDate      time.Time `json:"filing_date"`
}

// RetrievalFilter narrows the candidate set before either sub-search runs.
// Every constraint that is set must hold for every returned chunk.
type RetrievalFilter struct {
	FilingVersionID string
	SectionKey      string
	PeerSetID       string
	CompanyID       string

	// CompanyIDs is the resolved membership of PeerSetID. It is filled by
	// the retriever before the filter reaches an index adapter.
	CompanyIDs []string
}

type ResultSource string

const (
	SourceLexical ResultSource = "lexical"
	SourceVector  ResultSource = "vector"
	SourceBoth    ResultSource = "both"
)

// RetrievedResult is one ranked candidate from hybrid retrieval. It is
// produced fresh per query and never persisted.
type RetrievedResult struct {
	ChunkID         string       `json:"chunk_id"`
	CompanyID       string       `json:"company_id,omitempty"`
	FilingVersionID string       `json:"filing_version_id,omitempty"`
	SectionKey      string       `json:"section_key,omitempty"`
	Text            string       `json:"text"`
	FilingDate      time.Time    `json:"filing_date"`
	RetrievalScore  float64      `json:"retrieval_score"`
	RerankScore     *float64     `json:"rerank_score,omitempty"`
	Source          ResultSource `json:"source"`
}

// PeerExcerpt is a benchmark result: a peer-company excerpt with its
// confidence score.
type PeerExcerpt struct {
	CompanyID  string  `json:"peer_company"`
	ChunkID    string  `json:"chunk_id"`
	Excerpt    string  `json:"excerpt"`
	Confidence float64 `json:"confidence"`
}
