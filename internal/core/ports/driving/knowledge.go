package driving

import (
	"context"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// KnowledgeService inspects what a chatbot knows.
type KnowledgeService interface {
	// ListDocuments returns the documents of a chatbot.
	ListDocuments(ctx context.Context, chatbotID string) ([]domain.Document, error)

	// GetDocumentChunks returns the chunks of a document ordered by position.
	GetDocumentChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// Stats returns document, chunk and vector counts for a chatbot.
	Stats(ctx context.Context, chatbotID string) (*domain.ChatbotStats, error)

	// VerifyConsistency compares the chunk store with the vector index.
	VerifyConsistency(ctx context.Context, chatbotID string) (*ConsistencyReport, error)
}

// ConsistencyReport lists the entries that break store and index lockstep.
type ConsistencyReport struct {
	// ChatbotID is the checked chatbot.
	ChatbotID string

	// MissingVectors are chunk ids with no index entry.
	MissingVectors []string

	// OrphanVectors are index entries with no chunk record.
	OrphanVectors []string
}

// Consistent returns true if store and index agree.
func (r ConsistencyReport) Consistent() bool {
	return len(r.MissingVectors) == 0 && len(r.OrphanVectors) == 0
}
