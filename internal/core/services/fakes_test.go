package services

import (
	"context"
	"errors"
	"sync"
	"time"

	memstore "github.com/custodia-labs/ragkit/internal/adapters/driven/storage/memory"
	memvector "github.com/custodia-labs/ragkit/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

// fakeEmbedder maps known texts to vectors. Unknown texts get fallback.
type fakeEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	failOn   map[string]bool
	err      error
	calls    int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.failOn[text] {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.fallback, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int              { return len(f.fallback) }
func (f *fakeEmbedder) ModelName() string            { return "fake" }
func (f *fakeEmbedder) Ping(_ context.Context) error { return f.err }
func (f *fakeEmbedder) Close() error                 { return nil }

// recordingRecorder counts Recorder calls.
type recordingRecorder struct {
	mu           sync.Mutex
	retrievals   []int
	failOpen     []string
	inconsistent int
	ingested     int
	failed       int
}

func (r *recordingRecorder) ObserveRetrieval(_ string, _ time.Duration, hits int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retrievals = append(r.retrievals, hits)
}

func (r *recordingRecorder) RetrievalFailOpen(_ string, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failOpen = append(r.failOpen, reason)
}

func (r *recordingRecorder) InconsistentChunk(_ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inconsistent++
}

func (r *recordingRecorder) ObserveIngestion(_ string, _ time.Duration, chunks, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingested += chunks
	r.failed += failed
}

// flakyStore wraps a memory store and fails selected operations.
type flakyStore struct {
	*memstore.ChunkStore
	getChunksErr   error
	createChunkErr map[string]error
}

var errStore = errors.New("store unavailable")

func (s *flakyStore) GetChunksByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	if s.getChunksErr != nil {
		return nil, s.getChunksErr
	}
	return s.ChunkStore.GetChunksByIDs(ctx, ids)
}

func (s *flakyStore) CreateChunk(ctx context.Context, c *domain.Chunk) error {
	if err := s.createChunkErr[c.Content]; err != nil {
		return err
	}
	return s.ChunkStore.CreateChunk(ctx, c)
}

// flakyIndex wraps a memory index and fails selected inserts, counted from 1.
type flakyIndex struct {
	*memvector.Index
	mu        sync.Mutex
	inserts   int
	insertErr map[int]error
	queryErr  error
}

func (x *flakyIndex) Insert(ctx context.Context, e driven.VectorEntry) error {
	x.mu.Lock()
	x.inserts++
	err := x.insertErr[x.inserts]
	x.mu.Unlock()
	if err != nil {
		return err
	}
	return x.Index.Insert(ctx, e)
}

func (x *flakyIndex) Query(ctx context.Context, chatbotID string, q []float32, k int) ([]driven.VectorHit, error) {
	if x.queryErr != nil {
		return nil, x.queryErr
	}
	return x.Index.Query(ctx, chatbotID, q, k)
}

// stubPrompts serves fixed templates.
type stubPrompts map[string]string

func (s stubPrompts) Load(name string) (string, error) {
	p, ok := s[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}
