package driven

import "context"

// VectorIndex stores one embedding per chunk and answers nearest-neighbour
// queries scoped to a single chatbot.
//
// Implementations must serialise writers per chatbot and let readers run
// in parallel without observing a partial mutation.
type VectorIndex interface {
	// Insert adds or replaces the entry for entry.ChunkID.
	// Fails with domain.ErrDimensionMismatch if the embedding length differs
	// from the established dimensionality. The first insert fixes it.
	Insert(ctx context.Context, entry VectorEntry) error

	// RemoveByChunk removes a single entry. Absent ids are not an error.
	RemoveByChunk(ctx context.Context, chunkID string) error

	// RemoveByDocument removes every entry of a document and reports how many.
	RemoveByDocument(ctx context.Context, documentID string) (int, error)

	// RemoveByChatbot drops the whole partition of a chatbot and reports how many.
	RemoveByChatbot(ctx context.Context, chatbotID string) (int, error)

	// Query returns up to k hits from the chatbot's partition, ordered by
	// descending cosine similarity with ties broken by insertion order.
	// An empty partition yields an empty slice, not an error.
	Query(ctx context.Context, chatbotID string, query []float32, k int) ([]VectorHit, error)

	// Count returns the number of entries in the chatbot's partition.
	Count(ctx context.Context, chatbotID string) (int, error)

	// ChunkIDs returns the ids held in the chatbot's partition, in insertion order.
	ChunkIDs(ctx context.Context, chatbotID string) ([]string, error)

	// Dimensions returns the established dimensionality, or 0 before the first insert.
	Dimensions() int

	// Close releases resources. Further calls fail with domain.ErrIndexClosed.
	Close() error
}

// VectorEntry is one indexed embedding.
type VectorEntry struct {
	// ChunkID identifies the entry.
	ChunkID string

	// DocumentID is the owning document, used by RemoveByDocument.
	DocumentID string

	// ChatbotID is the partition the entry belongs to.
	ChatbotID string

	// Embedding is the raw vector. Implementations may normalise a copy.
	Embedding []float32
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score, in [-1, 1].
	Similarity float64
}
