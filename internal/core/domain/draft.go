package domain

// Paragraph is one drafted paragraph with the chunk ids it cites.
type Paragraph struct {
	Text      string   `json:"text"`
	Citations []string `json:"citations"`
}

// Draft is an ordered sequence of cited paragraphs. A draft is final only
// once every paragraph carries at least one citation into the evidence set
// used to produce it.
type Draft struct {
	DraftID    string      `json:"draft_id"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// FabricatedCitation is a citation whose chunk id is outside the evidence
// set the draft was produced from.
type FabricatedCitation struct {
	Paragraph int    `json:"paragraph"`
	ChunkID   string `json:"chunk_id"`
}

// CoverageReport distinguishes the two ways a draft fails citation
// coverage: paragraphs with no citations at all, and citations that
// reference unknown chunk ids. The boolean answers the coarse contract;
// the detail drives repair.
type CoverageReport struct {
	Covered             bool                 `json:"covered"`
	UncitedParagraphs   []int                `json:"uncited_paragraphs,omitempty"`
	FabricatedCitations []FabricatedCitation `json:"fabricated_citations,omitempty"`
}
