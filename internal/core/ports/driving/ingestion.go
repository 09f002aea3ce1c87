package driving

import (
	"context"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// IngestionService writes documents into the chunk store and vector index.
type IngestionService interface {
	// IngestDocument replaces the chunks of doc with windows of rawText.
	// Invalid cfg fails before any state changes. Per-chunk failures are
	// reported in the result, not returned.
	IngestDocument(ctx context.Context, doc domain.Document, rawText string, cfg domain.ChunkConfig) (*domain.IngestResult, error)

	// IngestBatch ingests items one after another and accumulates outcomes.
	IngestBatch(ctx context.Context, items []domain.BatchIngestItem, cfg domain.ChunkConfig) (*domain.BatchIngestResult, error)

	// DeleteDocument removes a document with its chunks and vectors.
	DeleteDocument(ctx context.Context, documentID string) error

	// DeleteChatbot removes every document, chunk and vector of a chatbot.
	DeleteChatbot(ctx context.Context, chatbotID string) error
}
