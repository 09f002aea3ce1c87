package driven

import (
	"context"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// ChunkStore persists documents and chunks.
// It is the durable half of the knowledge base; VectorIndex is the searchable half.
type ChunkStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetDocuments retrieves the documents that exist among ids, in any order.
	GetDocuments(ctx context.Context, ids []string) ([]domain.Document, error)

	// ListDocuments returns the documents of a chatbot, oldest first.
	ListDocuments(ctx context.Context, chatbotID string) ([]domain.Document, error)

	// DeleteDocument removes a document record. Chunks are removed separately.
	DeleteDocument(ctx context.Context, id string) error

	// DeleteDocumentsByChatbot removes every document record of a chatbot.
	DeleteDocumentsByChatbot(ctx context.Context, chatbotID string) (int, error)

	// CreateChunk stores a chunk, replacing any chunk with the same ID.
	CreateChunk(ctx context.Context, chunk *domain.Chunk) error

	// GetChunksByIDs returns the chunks that exist among ids, in any order.
	GetChunksByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error)

	// GetChunksByDocument returns the chunks of a document ordered by position.
	GetChunksByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// ListChunksByChatbot returns every chunk of a chatbot, embeddings included.
	ListChunksByChatbot(ctx context.Context, chatbotID string) ([]domain.Chunk, error)

	// ListChatbotIDs returns the chatbots that own at least one chunk.
	ListChatbotIDs(ctx context.Context) ([]string, error)

	// DeleteChunk removes a single chunk. Absent ids are not an error.
	DeleteChunk(ctx context.Context, id string) error

	// DeleteChunksByDocument removes the chunks of a document and reports how many.
	DeleteChunksByDocument(ctx context.Context, documentID string) (int, error)

	// DeleteChunksByChatbot removes the chunks of a chatbot and reports how many.
	DeleteChunksByChatbot(ctx context.Context, chatbotID string) (int, error)

	// CountChunks returns the number of chunks owned by a chatbot.
	CountChunks(ctx context.Context, chatbotID string) (int, error)

	// Close releases resources.
	Close() error
}
