package domain

// DefaultTopK is the number of chunks retrieved when the caller does not say.
const DefaultTopK = 5

// PreviewTextMaxRunes bounds the text of a SourcePreview.
const PreviewTextMaxRunes = 150

// RetrievalResult is one ranked chunk returned for a query.
// Results are ephemeral and never persisted.
type RetrievalResult struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// DocumentID is the document that owns the chunk.
	DocumentID string

	// Text is the chunk content.
	Text string

	// Filename is the display name of the owning document.
	Filename string

	// Metadata is the chunk metadata, verbatim.
	Metadata map[string]any

	// Similarity is the cosine similarity to the query, in [-1, 1].
	Similarity float64
}

// SourcePreview is the short attribution shown under a generated answer.
type SourcePreview struct {
	SourceID   string  `json:"sourceId"`
	Filename   string  `json:"filename"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}
