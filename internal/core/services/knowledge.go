package services

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
	"github.com/custodia-labs/ragkit/internal/logger"
)

// Ensure KnowledgeService implements the interface.
var _ driving.KnowledgeService = (*KnowledgeService)(nil)

// KnowledgeService reports what a chatbot has been taught.
type KnowledgeService struct {
	chunks driven.ChunkStore
	index  driven.VectorIndex
}

// NewKnowledgeService creates a knowledge service.
func NewKnowledgeService(chunks driven.ChunkStore, index driven.VectorIndex) *KnowledgeService {
	return &KnowledgeService{
		chunks: chunks,
		index:  index,
	}
}

// ListDocuments returns the documents of a chatbot.
func (s *KnowledgeService) ListDocuments(ctx context.Context, chatbotID string) ([]domain.Document, error) {
	docs, err := s.chunks.ListDocuments(ctx, chatbotID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// GetDocumentChunks returns the chunks of a document ordered by position.
func (s *KnowledgeService) GetDocumentChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if _, err := s.chunks.GetDocument(ctx, documentID); err != nil {
		return nil, fmt.Errorf("get document %s: %w", documentID, err)
	}
	chunks, err := s.chunks.GetChunksByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	return chunks, nil
}

// Stats returns document, chunk and vector counts for a chatbot.
func (s *KnowledgeService) Stats(ctx context.Context, chatbotID string) (*domain.ChatbotStats, error) {
	docs, err := s.chunks.ListDocuments(ctx, chatbotID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	chunks, err := s.chunks.CountChunks(ctx, chatbotID)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	vectors, err := s.index.Count(ctx, chatbotID)
	if err != nil {
		return nil, fmt.Errorf("count vectors: %w", err)
	}

	return &domain.ChatbotStats{
		ChatbotID:     chatbotID,
		DocumentCount: len(docs),
		ChunkCount:    chunks,
		IndexedCount:  vectors,
	}, nil
}

// VerifyConsistency lists chunk records without a vector and vectors without a chunk record.
func (s *KnowledgeService) VerifyConsistency(ctx context.Context, chatbotID string) (*driving.ConsistencyReport, error) {
	chunks, err := s.chunks.ListChunksByChatbot(ctx, chatbotID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	indexed, err := s.index.ChunkIDs(ctx, chatbotID)
	if err != nil {
		return nil, fmt.Errorf("list vectors: %w", err)
	}

	stored := lo.Map(chunks, func(c domain.Chunk, _ int) string { return c.ID })
	missing, orphans := lo.Difference(stored, indexed)

	report := &driving.ConsistencyReport{
		ChatbotID:      chatbotID,
		MissingVectors: missing,
		OrphanVectors:  orphans,
	}
	if !report.Consistent() {
		logger.Warn("%v: chatbot %s has %d chunks without vectors and %d vectors without chunks",
			domain.ErrChunkStoreInconsistency, chatbotID, len(missing), len(orphans))
	}
	return report, nil
}
