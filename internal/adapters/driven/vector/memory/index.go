package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is a brute-force cosine similarity index partitioned by chatbot.
type Index struct {
	partitions cmap.ConcurrentMap[string, *partition]

	// owners maps chunk id to chatbot id, documents maps document id to chatbot id.
	owners    cmap.ConcurrentMap[string, string]
	documents cmap.ConcurrentMap[string, string]

	dims   atomic.Int64
	seq    atomic.Uint64
	closed atomic.Bool
}

// partition holds the entries of one chatbot.
type partition struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	byDocument map[string]map[string]struct{}

	// dropped is set once the partition is detached by RemoveByChatbot.
	dropped bool
}

// entry is a normalised vector with its insertion sequence.
type entry struct {
	chunkID    string
	documentID string
	vec        []float32
	seq        uint64
}

// Option configures the index.
type Option func(*Index)

// WithDimensions fixes the dimensionality up front instead of at first insert.
func WithDimensions(n int) Option {
	return func(x *Index) {
		if n > 0 {
			x.dims.Store(int64(n))
		}
	}
}

// New creates an empty index.
func New(opts ...Option) *Index {
	x := &Index{
		partitions: cmap.New[*partition](),
		owners:     cmap.New[string](),
		documents:  cmap.New[string](),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func newPartition() *partition {
	return &partition{
		entries:    make(map[string]*entry),
		byDocument: make(map[string]map[string]struct{}),
	}
}

// Insert adds or replaces the entry for a chunk.
func (x *Index) Insert(_ context.Context, e driven.VectorEntry) error {
	if x.closed.Load() {
		return domain.ErrIndexClosed
	}
	if e.ChunkID == "" || e.ChatbotID == "" {
		return fmt.Errorf("%w: chunk and chatbot ids are required", domain.ErrInvalidInput)
	}
	if len(e.Embedding) == 0 {
		return fmt.Errorf("%w: empty embedding for chunk %s", domain.ErrInvalidInput, e.ChunkID)
	}
	if err := x.checkDims(len(e.Embedding), true); err != nil {
		return err
	}

	vec := normalise(e.Embedding)
	for {
		p := x.partition(e.ChatbotID)
		p.mu.Lock()
		if p.dropped {
			p.mu.Unlock()
			continue
		}
		seq, replaced := uint64(0), false
		if old, ok := p.entries[e.ChunkID]; ok {
			seq, replaced = old.seq, true
			p.unlinkDocument(old)
		} else {
			seq = x.seq.Add(1)
		}
		ent := &entry{chunkID: e.ChunkID, documentID: e.DocumentID, vec: vec, seq: seq}
		p.entries[e.ChunkID] = ent
		p.linkDocument(ent)
		prev := x.claim(e.ChunkID, e.ChatbotID)
		if e.DocumentID != "" {
			x.documents.Set(e.DocumentID, e.ChatbotID)
		}
		p.mu.Unlock()

		// A chunk re-inserted under another chatbot leaves its old partition.
		if prev != "" && prev != e.ChatbotID {
			x.evict(prev, e.ChunkID)
		}
		if replaced {
			logger.Debug("vector index: replaced chunk %s in chatbot %s", e.ChunkID, e.ChatbotID)
		}
		return nil
	}
}

// RemoveByChunk removes a single entry. Absent ids are ignored.
func (x *Index) RemoveByChunk(_ context.Context, chunkID string) error {
	if x.closed.Load() {
		return domain.ErrIndexClosed
	}
	owner, ok := x.owners.Get(chunkID)
	if !ok {
		return nil
	}
	x.removeChunk(owner, chunkID)
	return nil
}

// RemoveByDocument removes every entry of a document.
// A document's chunks are expected to share one chatbot.
func (x *Index) RemoveByDocument(_ context.Context, documentID string) (int, error) {
	if x.closed.Load() {
		return 0, domain.ErrIndexClosed
	}
	owner, ok := x.documents.Get(documentID)
	if !ok {
		return 0, nil
	}
	p, ok := x.partitions.Get(owner)
	if !ok {
		x.documents.Remove(documentID)
		return 0, nil
	}

	p.mu.Lock()
	ids := p.byDocument[documentID]
	for id := range ids {
		delete(p.entries, id)
		x.owners.Remove(id)
	}
	delete(p.byDocument, documentID)
	x.documents.Remove(documentID)
	p.mu.Unlock()

	return len(ids), nil
}

// RemoveByChatbot drops a chatbot's partition.
func (x *Index) RemoveByChatbot(_ context.Context, chatbotID string) (int, error) {
	if x.closed.Load() {
		return 0, domain.ErrIndexClosed
	}
	p, ok := x.partitions.Pop(chatbotID)
	if !ok {
		return 0, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.entries)
	for id := range p.entries {
		x.owners.RemoveCb(id, func(_ string, owner string, exists bool) bool {
			return exists && owner == chatbotID
		})
	}
	for docID := range p.byDocument {
		x.documents.Remove(docID)
	}
	p.entries = make(map[string]*entry)
	p.byDocument = make(map[string]map[string]struct{})
	p.dropped = true
	return n, nil
}

// Query returns the k entries of a chatbot most similar to query.
func (x *Index) Query(_ context.Context, chatbotID string, query []float32, k int) ([]driven.VectorHit, error) {
	if x.closed.Load() {
		return nil, domain.ErrIndexClosed
	}
	if err := x.checkDims(len(query), false); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}
	p, ok := x.partitions.Get(chatbotID)
	if !ok {
		return []driven.VectorHit{}, nil
	}

	q := normalise(query)

	p.mu.RLock()
	top := newTopK(k)
	for _, e := range p.entries {
		top.offer(candidate{chunkID: e.chunkID, similarity: similarity(q, e.vec), seq: e.seq})
	}
	p.mu.RUnlock()

	ranked := top.sorted()
	hits := make([]driven.VectorHit, len(ranked))
	for i, c := range ranked {
		hits[i] = driven.VectorHit{ChunkID: c.chunkID, Similarity: c.similarity}
	}
	return hits, nil
}

// Count returns the number of entries held for a chatbot.
func (x *Index) Count(_ context.Context, chatbotID string) (int, error) {
	if x.closed.Load() {
		return 0, domain.ErrIndexClosed
	}
	p, ok := x.partitions.Get(chatbotID)
	if !ok {
		return 0, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries), nil
}

// ChunkIDs returns the ids held for a chatbot in insertion order.
func (x *Index) ChunkIDs(_ context.Context, chatbotID string) ([]string, error) {
	if x.closed.Load() {
		return nil, domain.ErrIndexClosed
	}
	p, ok := x.partitions.Get(chatbotID)
	if !ok {
		return nil, nil
	}

	p.mu.RLock()
	entries := make([]*entry, 0, len(p.entries))
	for _, e := range p.entries {
		entries = append(entries, e)
	}
	p.mu.RUnlock()

	slices.SortFunc(entries, func(a, b *entry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		default:
			return 0
		}
	})
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.chunkID
	}
	return ids, nil
}

// Dimensions returns the established dimensionality, or 0 before the first insert.
func (x *Index) Dimensions() int {
	return int(x.dims.Load())
}

// Close releases all entries. Later calls fail with domain.ErrIndexClosed.
func (x *Index) Close() error {
	if x.closed.Swap(true) {
		return nil
	}
	x.partitions.Clear()
	x.owners.Clear()
	x.documents.Clear()
	return nil
}

// RebuildFrom reloads the index from durable chunk embeddings.
// Chunks without an embedding are skipped. Returns the number indexed.
func (x *Index) RebuildFrom(ctx context.Context, store driven.ChunkStore) (int, error) {
	chatbots, err := store.ListChatbotIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list chatbots: %w", err)
	}

	total := 0
	for _, chatbotID := range chatbots {
		chunks, err := store.ListChunksByChatbot(ctx, chatbotID)
		if err != nil {
			return total, fmt.Errorf("list chunks for chatbot %s: %w", chatbotID, err)
		}
		for i := range chunks {
			c := &chunks[i]
			if len(c.Embedding) == 0 {
				continue
			}
			if err := x.Insert(ctx, driven.VectorEntry{
				ChunkID:    c.ID,
				DocumentID: c.DocumentID,
				ChatbotID:  c.ChatbotID,
				Embedding:  c.Embedding,
			}); err != nil {
				return total, fmt.Errorf("index chunk %s: %w", c.ID, err)
			}
			total++
		}
	}

	logger.Debug("vector index: rebuilt %d entries across %d chatbots", total, len(chatbots))
	return total, nil
}

// partition returns the chatbot's partition, creating it if needed.
func (x *Index) partition(chatbotID string) *partition {
	return x.partitions.Upsert(chatbotID, nil, func(exist bool, current, _ *partition) *partition {
		if exist {
			return current
		}
		return newPartition()
	})
}

// removeChunk deletes one entry from the named partition.
func (x *Index) removeChunk(chatbotID, chunkID string) {
	p, ok := x.partitions.Get(chatbotID)
	if !ok {
		x.owners.Remove(chunkID)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[chunkID]; ok {
		delete(p.entries, chunkID)
		p.unlinkDocument(e)
	}
	x.owners.RemoveCb(chunkID, func(_ string, owner string, exists bool) bool {
		return exists && owner == chatbotID
	})
}

// claim records chatbotID as the owner of chunkID and returns the previous owner.
func (x *Index) claim(chunkID, chatbotID string) string {
	var prev string
	x.owners.Upsert(chunkID, chatbotID, func(exist bool, current, next string) string {
		if exist {
			prev = current
		}
		return next
	})
	return prev
}

// evict drops chunkID from chatbotID's partition unless that chatbot has
// claimed it again since.
func (x *Index) evict(chatbotID, chunkID string) {
	p, ok := x.partitions.Get(chatbotID)
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if owner, ok := x.owners.Get(chunkID); ok && owner == chatbotID {
		return
	}
	if e, ok := p.entries[chunkID]; ok {
		delete(p.entries, chunkID)
		p.unlinkDocument(e)
	}
}

// checkDims validates n against the index dimensionality.
// When establish is set and no dimensionality exists yet, n becomes it.
func (x *Index) checkDims(n int, establish bool) error {
	want := x.dims.Load()
	if want == 0 {
		if !establish {
			return nil
		}
		if x.dims.CompareAndSwap(0, int64(n)) {
			logger.Debug("vector index: dimensionality fixed at %d", n)
			return nil
		}
		want = x.dims.Load()
	}
	if int64(n) != want {
		return fmt.Errorf("%w: got %d, index has %d", domain.ErrDimensionMismatch, n, want)
	}
	return nil
}

func (p *partition) linkDocument(e *entry) {
	if e.documentID == "" {
		return
	}
	ids, ok := p.byDocument[e.documentID]
	if !ok {
		ids = make(map[string]struct{})
		p.byDocument[e.documentID] = ids
	}
	ids[e.chunkID] = struct{}{}
}

func (p *partition) unlinkDocument(e *entry) {
	ids, ok := p.byDocument[e.documentID]
	if !ok {
		return
	}
	delete(ids, e.chunkID)
	if len(ids) == 0 {
		delete(p.byDocument, e.documentID)
	}
}
