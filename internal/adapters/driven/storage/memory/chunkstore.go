package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu        sync.RWMutex
	seq       uint64
	documents map[string]storedDocument
	chunks    map[string]storedChunk
}

type storedDocument struct {
	doc domain.Document
	seq uint64
}

type storedChunk struct {
	chunk domain.Chunk
	seq   uint64
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		documents: make(map[string]storedDocument),
		chunks:    make(map[string]storedChunk),
	}
}

// SaveDocument stores or updates a document.
func (s *ChunkStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *doc
	stored.Content = ""
	stored.Metadata = copyMetadata(doc.Metadata)

	seq := s.nextSeq()
	if prev, ok := s.documents[doc.ID]; ok {
		seq = prev.seq
	}
	s.documents[doc.ID] = storedDocument{doc: stored, seq: seq}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *ChunkStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := d.doc
	return &doc, nil
}

// GetDocuments retrieves the documents that exist among ids.
func (s *ChunkStore) GetDocuments(_ context.Context, ids []string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Document, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if d, ok := s.documents[id]; ok {
			result = append(result, d.doc)
		}
	}
	return result, nil
}

// ListDocuments returns the documents of a chatbot, oldest first.
func (s *ChunkStore) ListDocuments(_ context.Context, chatbotID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stored []storedDocument
	for _, d := range s.documents {
		if d.doc.ChatbotID == chatbotID {
			stored = append(stored, d)
		}
	}
	sort.Slice(stored, func(i, j int) bool {
		a, b := stored[i], stored[j]
		if !a.doc.UploadedAt.Equal(b.doc.UploadedAt) {
			return a.doc.UploadedAt.Before(b.doc.UploadedAt)
		}
		return a.seq < b.seq
	})

	result := make([]domain.Document, len(stored))
	for i, d := range stored {
		result[i] = d.doc
	}
	return result, nil
}

// DeleteDocument removes a document record.
func (s *ChunkStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	return nil
}

// DeleteDocumentsByChatbot removes every document record of a chatbot.
func (s *ChunkStore) DeleteDocumentsByChatbot(_ context.Context, chatbotID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, d := range s.documents {
		if d.doc.ChatbotID == chatbotID {
			delete(s.documents, id)
			n++
		}
	}
	return n, nil
}

// CreateChunk stores a chunk, replacing any chunk with the same ID.
func (s *ChunkStore) CreateChunk(_ context.Context, chunk *domain.Chunk) error {
	if chunk == nil || chunk.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *chunk
	stored.Metadata = copyMetadata(chunk.Metadata)
	if chunk.Embedding != nil {
		stored.Embedding = append([]float32(nil), chunk.Embedding...)
	}

	seq := s.nextSeq()
	if prev, ok := s.chunks[chunk.ID]; ok {
		seq = prev.seq
	}
	s.chunks[chunk.ID] = storedChunk{chunk: stored, seq: seq}
	return nil
}

// GetChunksByIDs returns the chunks that exist among ids.
func (s *ChunkStore) GetChunksByIDs(_ context.Context, ids []string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.chunks[id]; ok {
			result = append(result, c.chunk)
		}
	}
	return result, nil
}

// GetChunksByDocument returns the chunks of a document ordered by position.
func (s *ChunkStore) GetChunksByDocument(_ context.Context, documentID string) ([]domain.Chunk, error) {
	result := s.collect(func(c *domain.Chunk) bool { return c.DocumentID == documentID })
	sort.SliceStable(result, func(i, j int) bool { return result[i].Position < result[j].Position })
	return result, nil
}

// ListChunksByChatbot returns every chunk of a chatbot in insertion order.
func (s *ChunkStore) ListChunksByChatbot(_ context.Context, chatbotID string) ([]domain.Chunk, error) {
	return s.collect(func(c *domain.Chunk) bool { return c.ChatbotID == chatbotID }), nil
}

// ListChatbotIDs returns the chatbots that own at least one chunk.
func (s *ChunkStore) ListChatbotIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var result []string
	for _, c := range s.chunks {
		if !seen[c.chunk.ChatbotID] {
			seen[c.chunk.ChatbotID] = true
			result = append(result, c.chunk.ChatbotID)
		}
	}
	sort.Strings(result)
	return result, nil
}

// DeleteChunk removes a single chunk.
func (s *ChunkStore) DeleteChunk(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, id)
	return nil
}

// DeleteChunksByDocument removes the chunks of a document.
func (s *ChunkStore) DeleteChunksByDocument(_ context.Context, documentID string) (int, error) {
	return s.deleteWhere(func(c *domain.Chunk) bool { return c.DocumentID == documentID }), nil
}

// DeleteChunksByChatbot removes the chunks of a chatbot.
func (s *ChunkStore) DeleteChunksByChatbot(_ context.Context, chatbotID string) (int, error) {
	return s.deleteWhere(func(c *domain.Chunk) bool { return c.ChatbotID == chatbotID }), nil
}

// CountChunks returns the number of chunks owned by a chatbot.
func (s *ChunkStore) CountChunks(_ context.Context, chatbotID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.chunks {
		if c.chunk.ChatbotID == chatbotID {
			n++
		}
	}
	return n, nil
}

// Close is a no-op for the memory store.
func (s *ChunkStore) Close() error {
	return nil
}

// nextSeq returns the next insertion sequence. Callers hold mu.
func (s *ChunkStore) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func (s *ChunkStore) collect(match func(*domain.Chunk) bool) []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stored []storedChunk
	for _, c := range s.chunks {
		if match(&c.chunk) {
			stored = append(stored, c)
		}
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].seq < stored[j].seq })

	result := make([]domain.Chunk, len(stored))
	for i, c := range stored {
		result[i] = c.chunk
	}
	return result
}

func (s *ChunkStore) deleteWhere(match func(*domain.Chunk) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, c := range s.chunks {
		if match(&c.chunk) {
			delete(s.chunks, id)
			n++
		}
	}
	return n
}

// copyMetadata creates a shallow copy of metadata.
func copyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
