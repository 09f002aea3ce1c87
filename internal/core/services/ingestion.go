package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
	"github.com/custodia-labs/ragkit/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestionService chunks documents and keeps the chunk store and vector index in lockstep.
type IngestionService struct {
	chunks   driven.ChunkStore
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	builder  driven.PipelineBuilder
	recorder driven.Recorder

	pipeline     domain.PipelineConfig
	embedTimeout time.Duration

	locks    *keyedMutex
	chatbots *keyedMutex
}

// IngestionOption configures the ingestion service.
type IngestionOption func(*IngestionService)

// WithPipelineConfig sets the processors run after the chunker.
func WithPipelineConfig(cfg domain.PipelineConfig) IngestionOption {
	return func(s *IngestionService) {
		s.pipeline = cfg
	}
}

// WithEmbedTimeout bounds each per-chunk embedding call. Zero disables the bound.
func WithEmbedTimeout(d time.Duration) IngestionOption {
	return func(s *IngestionService) {
		s.embedTimeout = d
	}
}

// WithIngestionRecorder sets the metrics recorder.
func WithIngestionRecorder(rec driven.Recorder) IngestionOption {
	return func(s *IngestionService) {
		if rec != nil {
			s.recorder = rec
		}
	}
}

// NewIngestionService creates an ingestion service.
func NewIngestionService(
	chunks driven.ChunkStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	builder driven.PipelineBuilder,
	opts ...IngestionOption,
) *IngestionService {
	s := &IngestionService{
		chunks:       chunks,
		index:        index,
		embedder:     embedder,
		builder:      builder,
		recorder:     nopRecorder{},
		pipeline:     domain.DefaultPipelineConfig(),
		embedTimeout: domain.DefaultEmbeddingTimeout,
		locks:        newKeyedMutex(),
		chatbots:     newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestDocument replaces the chunks of doc with windows of rawText.
// An invalid cfg fails with domain.ErrInvalidChunkConfig before any state changes.
// Windows that cannot be embedded or stored are skipped and reported in the result.
// A vector of the wrong dimensionality aborts the call with domain.ErrDimensionMismatch;
// chunks persisted before it stay.
func (s *IngestionService) IngestDocument(
	ctx context.Context,
	doc domain.Document,
	rawText string,
	cfg domain.ChunkConfig,
) (*domain.IngestResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if doc.ChatbotID == "" {
		return nil, fmt.Errorf("%w: document has no chatbot", domain.ErrInvalidInput)
	}
	if s.builder == nil {
		return nil, fmt.Errorf("ingest: pipeline builder not configured")
	}
	pipeline, err := s.builder.BuildPipeline(s.pipeline.WithChunking(cfg))
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("ingest: %w", domain.ErrEmbeddingUnavailable)
	}

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	doc.Content = rawText

	// Ingests of one chatbot share its gate; DeleteChatbot holds it exclusively.
	release := s.chatbots.RLock(doc.ChatbotID)
	defer release()
	unlock := s.locks.Lock(doc.ID)
	defer unlock()

	start := time.Now()
	if err := s.clearDocument(ctx, doc.ID); err != nil {
		return nil, err
	}
	if err := s.chunks.SaveDocument(ctx, &doc); err != nil {
		return nil, fmt.Errorf("save document %s: %w", doc.ID, err)
	}

	windows, err := pipeline.Process(ctx, &doc)
	if err != nil {
		return nil, fmt.Errorf("chunk document %s: %w", doc.ID, err)
	}

	result := &domain.IngestResult{DocumentID: doc.ID}
	for i := range windows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		c := &windows[i]
		err := s.storeChunk(ctx, c)
		if errors.Is(err, domain.ErrDimensionMismatch) {
			s.finish(doc, result, start)
			return result, fmt.Errorf("index chunk %d of %s: %w", c.Position, doc.ID, err)
		}
		if err != nil {
			logger.Warn("ingest: skipping chunk %d of document %s: %v", c.Position, doc.ID, err)
			result.FailedCount++
			result.Failures = append(result.Failures, domain.ChunkFailure{Position: c.Position, Err: err})
			continue
		}
		result.ChunkCount++
	}

	s.finish(doc, result, start)
	return result, nil
}

// storeChunk embeds c, writes it to the chunk store, then publishes its vector.
// A chunk whose vector cannot be published is removed again.
func (s *IngestionService) storeChunk(ctx context.Context, c *domain.Chunk) error {
	vec, err := s.embed(ctx, c.Content)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	c.Embedding = vec

	if err := s.chunks.CreateChunk(ctx, c); err != nil {
		return fmt.Errorf("create chunk: %w", err)
	}

	err = s.index.Insert(ctx, driven.VectorEntry{
		ChunkID:    c.ID,
		DocumentID: c.DocumentID,
		ChatbotID:  c.ChatbotID,
		Embedding:  vec,
	})
	if err != nil {
		if delErr := s.chunks.DeleteChunk(ctx, c.ID); delErr != nil {
			logger.Warn("ingest: %v: chunk %s stored without vector: %v",
				domain.ErrChunkStoreInconsistency, c.ID, delErr)
		}
		return fmt.Errorf("insert vector: %w", err)
	}
	return nil
}

func (s *IngestionService) embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.embedTimeout)
		defer cancel()
	}
	return s.embedder.Embed(ctx, text)
}

func (s *IngestionService) finish(doc domain.Document, result *domain.IngestResult, start time.Time) {
	s.recorder.ObserveIngestion(doc.ChatbotID, time.Since(start), result.ChunkCount, result.FailedCount)
	if result.FailedCount > 0 {
		logger.Info("Ingested %s: %d chunks, %d failed", doc.DisplayName(), result.ChunkCount, result.FailedCount)
		return
	}
	logger.Info("Ingested %s: %d chunks", doc.DisplayName(), result.ChunkCount)
}

// clearDocument removes the vectors and chunks of a document, vectors first.
func (s *IngestionService) clearDocument(ctx context.Context, documentID string) error {
	vectors, err := s.index.RemoveByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("remove vectors of %s: %w", documentID, err)
	}
	chunks, err := s.chunks.DeleteChunksByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("delete chunks of %s: %w", documentID, err)
	}
	if vectors != chunks {
		logger.Warn("ingest: %v: document %s had %d chunks and %d vectors",
			domain.ErrChunkStoreInconsistency, documentID, chunks, vectors)
	}
	if chunks > 0 {
		logger.Debug("ingest: cleared %d chunks of document %s", chunks, documentID)
	}
	return nil
}

// IngestBatch ingests items one after another.
// A document that yields no persisted chunk is reported in Errors; the batch continues.
func (s *IngestionService) IngestBatch(
	ctx context.Context,
	items []domain.BatchIngestItem,
	cfg domain.ChunkConfig,
) (*domain.BatchIngestResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	batch := &domain.BatchIngestResult{}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		source := item.Document.DisplayName()
		res, err := s.IngestDocument(ctx, item.Document, item.Text, cfg)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return batch, err
		}
		if err == nil && res.ChunkCount == 0 {
			err = emptyIngestError(res)
		}
		if err != nil {
			batch.FailedCount++
			itemErr := domain.BatchItemError{DocumentID: item.Document.ID, Source: source, Err: err}
			if res != nil {
				itemErr.DocumentID = res.DocumentID
			}
			batch.Errors = append(batch.Errors, itemErr)
			logger.Warn("ingest batch: %s: %v", source, err)
			continue
		}

		batch.ProcessedCount++
		batch.TotalChunks += res.ChunkCount
		batch.Results = append(batch.Results, *res)
	}

	logger.Info("Batch ingested %d documents (%d chunks), %d failed",
		batch.ProcessedCount, batch.TotalChunks, batch.FailedCount)
	return batch, nil
}

func emptyIngestError(res *domain.IngestResult) error {
	if len(res.Failures) > 0 {
		return fmt.Errorf("all %d chunks failed: %w", res.FailedCount, res.Failures[0].Err)
	}
	return fmt.Errorf("%w: no text to index", domain.ErrInvalidInput)
}

// DeleteDocument removes a document with its vectors and chunks.
func (s *IngestionService) DeleteDocument(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("%w: empty document id", domain.ErrInvalidInput)
	}

	unlock := s.locks.Lock(documentID)
	defer unlock()

	if err := s.clearDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.chunks.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	logger.Debug("deleted document %s", documentID)
	return nil
}

// DeleteChatbot removes every vector, chunk and document of a chatbot.
func (s *IngestionService) DeleteChatbot(ctx context.Context, chatbotID string) error {
	if chatbotID == "" {
		return fmt.Errorf("%w: empty chatbot id", domain.ErrInvalidInput)
	}

	unlock := s.chatbots.Lock(chatbotID)
	defer unlock()

	vectors, err := s.index.RemoveByChatbot(ctx, chatbotID)
	if err != nil {
		return fmt.Errorf("remove vectors of chatbot %s: %w", chatbotID, err)
	}
	chunks, err := s.chunks.DeleteChunksByChatbot(ctx, chatbotID)
	if err != nil {
		return fmt.Errorf("delete chunks of chatbot %s: %w", chatbotID, err)
	}
	docs, err := s.chunks.DeleteDocumentsByChatbot(ctx, chatbotID)
	if err != nil {
		return fmt.Errorf("delete documents of chatbot %s: %w", chatbotID, err)
	}

	logger.Info("Deleted chatbot %s: %d documents, %d chunks, %d vectors", chatbotID, docs, chunks, vectors)
	return nil
}

// keyedMutex serialises work per key. Entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.RWMutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock acquires key exclusively and returns its release function.
func (k *keyedMutex) Lock(key string) func() {
	m := k.acquire(key)
	m.Lock()
	return func() {
		m.Unlock()
		k.release(key, m)
	}
}

// RLock acquires key in shared mode and returns its release function.
func (k *keyedMutex) RLock(key string) func() {
	m := k.acquire(key)
	m.RLock()
	return func() {
		m.RUnlock()
		k.release(key, m)
	}
}

func (k *keyedMutex) acquire(key string) *refMutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	return m
}

func (k *keyedMutex) release(key string, m *refMutex) {
	k.mu.Lock()
	defer k.mu.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(k.locks, key)
	}
}
