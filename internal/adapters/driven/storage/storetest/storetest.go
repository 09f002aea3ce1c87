// Package storetest holds behaviour tests shared by every driven.ChunkStore.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) driven.ChunkStore

// Run exercises the ChunkStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("SaveAndGetDocument", func(t *testing.T) { testSaveAndGetDocument(t, newStore(t)) })
	t.Run("ListDocuments", func(t *testing.T) { testListDocuments(t, newStore(t)) })
	t.Run("GetDocuments", func(t *testing.T) { testGetDocuments(t, newStore(t)) })
	t.Run("DeleteDocuments", func(t *testing.T) { testDeleteDocuments(t, newStore(t)) })
	t.Run("CreateAndGetChunks", func(t *testing.T) { testCreateAndGetChunks(t, newStore(t)) })
	t.Run("ChunkReplace", func(t *testing.T) { testChunkReplace(t, newStore(t)) })
	t.Run("DeleteChunks", func(t *testing.T) { testDeleteChunks(t, newStore(t)) })
	t.Run("ChatbotListing", func(t *testing.T) { testChatbotListing(t, newStore(t)) })
}

func document(id, chatbotID, filename string) *domain.Document {
	return &domain.Document{
		ID:         id,
		ChatbotID:  chatbotID,
		Filename:   filename,
		SourceType: "txt",
		Metadata:   map[string]any{"author": "alice"},
		Content:    "not persisted",
		UploadedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func chunk(id, documentID, chatbotID string, position int, embedding ...float32) *domain.Chunk {
	return &domain.Chunk{
		ID:         id,
		DocumentID: documentID,
		ChatbotID:  chatbotID,
		Content:    "content of " + id,
		Position:   position,
		Embedding:  embedding,
		Metadata:   map[string]any{domain.MetaPosition: position, "page": "3", "score": 0.25},
	}
}

func chunkIDs(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.ID
	}
	return out
}

func testSaveAndGetDocument(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, document("doc-1", "bot-1", "a.txt")))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.ID)
	assert.Equal(t, "bot-1", got.ChatbotID)
	assert.Equal(t, "a.txt", got.Filename)
	assert.Equal(t, "txt", got.SourceType)
	assert.Equal(t, "alice", got.Metadata["author"])
	assert.Empty(t, got.Content)
	assert.True(t, got.UploadedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))

	updated := document("doc-1", "bot-1", "b.txt")
	require.NoError(t, store.SaveDocument(ctx, updated))
	got, err = store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "b.txt", got.Filename)

	_, err = store.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testListDocuments(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, document("doc-1", "bot-1", "a.txt")))
	require.NoError(t, store.SaveDocument(ctx, document("doc-2", "bot-1", "b.txt")))
	require.NoError(t, store.SaveDocument(ctx, document("doc-3", "bot-2", "c.txt")))

	docs, err := store.ListDocuments(ctx, "bot-1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-1", docs[0].ID)
	assert.Equal(t, "doc-2", docs[1].ID)

	docs, err = store.ListDocuments(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func testGetDocuments(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, document("doc-1", "bot-1", "a.txt")))
	require.NoError(t, store.SaveDocument(ctx, document("doc-2", "bot-1", "b.txt")))

	docs, err := store.GetDocuments(ctx, []string{"doc-2", "missing", "doc-1"})
	require.NoError(t, err)
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	assert.ElementsMatch(t, []string{"doc-1", "doc-2"}, ids)

	docs, err = store.GetDocuments(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func testDeleteDocuments(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, document("doc-1", "bot-1", "a.txt")))
	require.NoError(t, store.SaveDocument(ctx, document("doc-2", "bot-1", "b.txt")))
	require.NoError(t, store.SaveDocument(ctx, document("doc-3", "bot-2", "c.txt")))

	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))
	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))
	_, err := store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := store.DeleteDocumentsByChatbot(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.GetDocument(ctx, "doc-3")
	assert.NoError(t, err)
}

func testCreateAndGetChunks(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()

	require.NoError(t, store.CreateChunk(ctx, chunk("c2", "doc-1", "bot-1", 1, 0, 1)))
	require.NoError(t, store.CreateChunk(ctx, chunk("c1", "doc-1", "bot-1", 0, 1, 0)))
	require.NoError(t, store.CreateChunk(ctx, chunk("c3", "doc-2", "bot-1", 0, 0.5, 0.5)))

	chunks, err := store.GetChunksByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, chunkIDs(chunks))
	assert.Equal(t, "content of c1", chunks[0].Content)
	assert.Equal(t, []float32{1, 0}, chunks[0].Embedding)
	assert.Equal(t, "3", chunks[0].Metadata["page"])
	assert.Equal(t, "bot-1", chunks[0].ChatbotID)
	// Numbers keep their Go type across the round trip.
	assert.Equal(t, 1, chunks[1].Metadata[domain.MetaPosition])
	assert.Equal(t, 0.25, chunks[1].Metadata["score"])

	chunks, err = store.GetChunksByIDs(ctx, []string{"c3", "missing", "c1"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c3"}, chunkIDs(chunks))

	chunks, err = store.GetChunksByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	count, err := store.CountChunks(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func testChunkReplace(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()

	require.NoError(t, store.CreateChunk(ctx, chunk("c1", "doc-1", "bot-1", 0, 1, 0)))
	replacement := chunk("c1", "doc-1", "bot-1", 0, 0, 1)
	replacement.Content = "re-embedded"
	require.NoError(t, store.CreateChunk(ctx, replacement))

	chunks, err := store.GetChunksByIDs(ctx, []string{"c1"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "re-embedded", chunks[0].Content)
	assert.Equal(t, []float32{0, 1}, chunks[0].Embedding)

	count, err := store.CountChunks(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func testDeleteChunks(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()

	require.NoError(t, store.CreateChunk(ctx, chunk("a1", "doc-a", "bot-1", 0, 1, 0)))
	require.NoError(t, store.CreateChunk(ctx, chunk("a2", "doc-a", "bot-1", 1, 1, 0)))
	require.NoError(t, store.CreateChunk(ctx, chunk("b1", "doc-b", "bot-1", 0, 1, 0)))
	require.NoError(t, store.CreateChunk(ctx, chunk("c1", "doc-c", "bot-2", 0, 1, 0)))

	require.NoError(t, store.DeleteChunk(ctx, "b1"))
	require.NoError(t, store.DeleteChunk(ctx, "b1"))

	n, err := store.DeleteChunksByDocument(ctx, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := store.CountChunks(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	n, err = store.DeleteChunksByChatbot(ctx, "bot-2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = store.DeleteChunksByChatbot(ctx, "bot-2")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func testChatbotListing(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()

	require.NoError(t, store.CreateChunk(ctx, chunk("a1", "doc-a", "bot-1", 0, 1, 0)))
	require.NoError(t, store.CreateChunk(ctx, chunk("a2", "doc-a", "bot-1", 1)))
	require.NoError(t, store.CreateChunk(ctx, chunk("c1", "doc-c", "bot-2", 0, 0, 1)))

	ids, err := store.ListChatbotIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bot-1", "bot-2"}, ids)

	chunks, err := store.ListChunksByChatbot(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, chunkIDs(chunks))
	assert.Equal(t, []float32{1, 0}, chunks[0].Embedding)
	assert.Empty(t, chunks[1].Embedding)
}
