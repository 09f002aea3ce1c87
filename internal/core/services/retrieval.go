package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
	"github.com/custodia-labs/ragkit/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Fail-open reasons reported to the Recorder.
const (
	reasonEmbedding  = "embedding"
	reasonIndex      = "index"
	reasonChunkStore = "chunk_store"
)

const contextSeparator = "---------------------\n"

// RetrievalService finds the chunks that ground an answer for one chatbot.
type RetrievalService struct {
	chunks   driven.ChunkStore
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	prompts  driven.PromptStore
	recorder driven.Recorder
	settings domain.RetrievalSettings
}

// RetrievalOption configures a RetrievalService.
type RetrievalOption func(*RetrievalService)

// WithRetrievalSettings sets the default top-k and similarity threshold.
func WithRetrievalSettings(s domain.RetrievalSettings) RetrievalOption {
	return func(r *RetrievalService) {
		r.settings = s
	}
}

// WithPromptStore sets where context templates are loaded from.
func WithPromptStore(p driven.PromptStore) RetrievalOption {
	return func(r *RetrievalService) {
		if p != nil {
			r.prompts = p
		}
	}
}

// WithRetrievalRecorder sets the metrics sink.
func WithRetrievalRecorder(rec driven.Recorder) RetrievalOption {
	return func(r *RetrievalService) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(
	chunks driven.ChunkStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	opts ...RetrievalOption,
) *RetrievalService {
	r := &RetrievalService{
		chunks:   chunks,
		index:    index,
		embedder: embedder,
		prompts:  defaultPromptStore{},
		recorder: nopRecorder{},
		settings: domain.RetrievalSettings{TopK: domain.DefaultTopK, MinSimilarity: -1},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns up to k chunks of chatbotID ranked by similarity to query.
// Provider, index and store failures degrade to an empty result.
func (r *RetrievalService) Retrieve(ctx context.Context, chatbotID, query string, k int) ([]domain.RetrievalResult, error) {
	start := time.Now()
	query = strings.TrimSpace(query)
	if chatbotID == "" || query == "" {
		logger.Debug("retrieve: empty chatbot or query, returning no results")
		return []domain.RetrievalResult{}, nil
	}
	if k <= 0 {
		k = r.settings.TopK
		if k <= 0 {
			k = domain.DefaultTopK
		}
	}

	if r.embedder == nil {
		return r.failOpen(chatbotID, reasonEmbedding, domain.ErrEmbeddingUnavailable), nil
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return r.failOpen(chatbotID, reasonEmbedding, err), nil
	}

	hits, err := r.index.Query(ctx, chatbotID, vec, k)
	if err != nil {
		if errors.Is(err, domain.ErrDimensionMismatch) {
			return nil, fmt.Errorf("query index for chatbot %s: %w", chatbotID, err)
		}
		return r.failOpen(chatbotID, reasonIndex, err), nil
	}
	if r.settings.FilterEnabled() {
		hits = lo.Filter(hits, func(h driven.VectorHit, _ int) bool {
			return h.Similarity >= r.settings.MinSimilarity
		})
	}
	if len(hits) == 0 {
		r.recorder.ObserveRetrieval(chatbotID, time.Since(start), 0)
		return []domain.RetrievalResult{}, nil
	}

	results, err := r.hydrate(ctx, chatbotID, hits)
	if err != nil {
		return r.failOpen(chatbotID, reasonChunkStore, err), nil
	}

	logger.Debug("retrieve: chatbot=%s k=%d hits=%d results=%d", chatbotID, k, len(hits), len(results))
	r.recorder.ObserveRetrieval(chatbotID, time.Since(start), len(results))
	return results, nil
}

// hydrate fetches chunk and document records for hits, keeping hit order.
// Hits without a chunk record are dropped.
func (r *RetrievalService) hydrate(ctx context.Context, chatbotID string, hits []driven.VectorHit) ([]domain.RetrievalResult, error) {
	ids := lo.Map(hits, func(h driven.VectorHit, _ int) string { return h.ChunkID })
	chunks, err := r.chunks.GetChunksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	byID := lo.SliceToMap(chunks, func(c domain.Chunk) (string, domain.Chunk) { return c.ID, c })

	docIDs := lo.Uniq(lo.Map(chunks, func(c domain.Chunk, _ int) string { return c.DocumentID }))
	docs, err := r.chunks.GetDocuments(ctx, docIDs)
	if err != nil {
		return nil, fmt.Errorf("get documents: %w", err)
	}
	names := lo.SliceToMap(docs, func(d domain.Document) (string, string) { return d.ID, d.DisplayName() })

	results := make([]domain.RetrievalResult, 0, len(hits))
	for _, h := range hits {
		c, ok := byID[h.ChunkID]
		if !ok || c.ChatbotID != chatbotID {
			logger.Warn("retrieve: %v: index entry %s of chatbot %s has no chunk record",
				domain.ErrChunkStoreInconsistency, h.ChunkID, chatbotID)
			r.recorder.InconsistentChunk(chatbotID)
			continue
		}
		filename, ok := names[c.DocumentID]
		if !ok {
			filename = c.DocumentID
		}
		results = append(results, domain.RetrievalResult{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Text:       c.Content,
			Filename:   filename,
			Metadata:   c.Metadata,
			Similarity: h.Similarity,
		})
	}
	return results, nil
}

func (r *RetrievalService) failOpen(chatbotID, reason string, err error) []domain.RetrievalResult {
	logger.Warn("retrieve: chatbot %s continuing without context (%s): %v", chatbotID, reason, err)
	r.recorder.RetrievalFailOpen(chatbotID, reason)
	return []domain.RetrievalResult{}
}

// BuildContext assembles the system message handed to the generator.
// An empty systemPrompt uses the default system prompt.
func (r *RetrievalService) BuildContext(systemPrompt string, results []domain.RetrievalResult) string {
	var b strings.Builder
	if systemPrompt == "" {
		systemPrompt = r.prompt(driven.PromptSystemDefault)
	}
	b.WriteString(systemPrompt)

	if len(results) == 0 {
		b.WriteString("\n\n")
		b.WriteString(r.prompt(driven.PromptNoContext))
		return b.String()
	}

	b.WriteString("\n\n")
	b.WriteString(r.prompt(driven.PromptContextPreamble))
	b.WriteString("\n")
	b.WriteString(contextSeparator)
	for i, res := range results {
		fmt.Fprintf(&b, "[Document %d] %s\n%s\n\n", i+1, res.Filename, res.Text)
	}
	b.WriteString(contextSeparator)
	b.WriteString(r.prompt(driven.PromptContextInstruction))
	return b.String()
}

// prompt loads a template, falling back to the built-in one.
func (r *RetrievalService) prompt(name string) string {
	p, err := r.prompts.Load(name)
	if err != nil {
		logger.Debug("prompt %s: %v, using default", name, err)
		return driven.DefaultPrompts()[name]
	}
	return p
}

// SourcePreviews returns the attribution list shown under an answer.
// Each preview holds the first PreviewTextMaxRunes runes of the chunk followed by "...".
func (r *RetrievalService) SourcePreviews(results []domain.RetrievalResult) []domain.SourcePreview {
	return lo.Map(results, func(res domain.RetrievalResult, _ int) domain.SourcePreview {
		text := []rune(res.Text)
		if len(text) > domain.PreviewTextMaxRunes {
			text = text[:domain.PreviewTextMaxRunes]
		}
		return domain.SourcePreview{
			SourceID:   res.ChunkID,
			Filename:   res.Filename,
			Text:       string(text) + "...",
			Similarity: res.Similarity,
		}
	})
}

// defaultPromptStore serves the built-in templates.
type defaultPromptStore struct{}

func (defaultPromptStore) Load(name string) (string, error) {
	p, ok := driven.DefaultPrompts()[name]
	if !ok {
		return "", fmt.Errorf("%w: prompt %q", domain.ErrNotFound, name)
	}
	return p, nil
}

// nopRecorder discards measurements when no Recorder is configured.
type nopRecorder struct{}

func (nopRecorder) ObserveRetrieval(string, time.Duration, int)      {}
func (nopRecorder) RetrievalFailOpen(string, string)                 {}
func (nopRecorder) InconsistentChunk(string)                         {}
func (nopRecorder) ObserveIngestion(string, time.Duration, int, int) {}
