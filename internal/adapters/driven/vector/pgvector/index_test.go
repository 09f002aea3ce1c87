package pgvector

import (
	"context"
	"os"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

// openTestIndex connects to RAGKIT_POSTGRES_DSN and empties the vector table.
func openTestIndex(t *testing.T) *Index {
	t.Helper()

	dsn := os.Getenv("RAGKIT_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RAGKIT_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	x, err := Open(ctx, dsn)
	require.NoError(t, err)
	_, err = x.db.ExecContext(ctx, "TRUNCATE "+tableVectors)
	require.NoError(t, err)
	x.dims.Store(0)

	t.Cleanup(func() {
		assert.NoError(t, x.Close())
	})
	return x
}

func insert(t *testing.T, x *Index, chunkID, documentID, chatbotID string, vec ...float32) {
	t.Helper()
	require.NoError(t, x.Insert(context.Background(), driven.VectorEntry{
		ChunkID:    chunkID,
		DocumentID: documentID,
		ChatbotID:  chatbotID,
		Embedding:  vec,
	}))
}

func TestIndex_Query_RanksByCosine(t *testing.T) {
	x := openTestIndex(t)
	insert(t, x, "c1", "d1", "bot1", 1, 0)
	insert(t, x, "c2", "d1", "bot1", 0, 1)
	insert(t, x, "c3", "d1", "bot1", 0.9, 0.1)

	hits, err := x.Query(context.Background(), "bot1", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "c1", hits[0].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.Equal(t, "c3", hits[1].ChunkID)
	assert.InDelta(t, 0.9939, hits[1].Similarity, 1e-3)
}

func TestIndex_Query_ChatbotIsolationAndTies(t *testing.T) {
	x := openTestIndex(t)
	insert(t, x, "a1", "d1", "bot-a", 1, 0)
	insert(t, x, "b1", "d2", "bot-b", 1, 0)
	insert(t, x, "a2", "d1", "bot-a", 1, 0)

	hits, err := x.Query(context.Background(), "bot-a", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a1", hits[0].ChunkID)
	assert.Equal(t, "a2", hits[1].ChunkID)

	hits, err = x.Query(context.Background(), "bot-c", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_ReplaceKeepsSequence(t *testing.T) {
	x := openTestIndex(t)
	ctx := context.Background()
	insert(t, x, "c1", "d1", "bot1", 1, 0)
	insert(t, x, "c2", "d1", "bot1", 1, 0)
	insert(t, x, "c1", "d1", "bot1", 2, 0)

	ids, err := x.ChunkIDs(ctx, "bot1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, ids)

	n, err := x.Count(ctx, "bot1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIndex_Removal(t *testing.T) {
	x := openTestIndex(t)
	ctx := context.Background()
	insert(t, x, "c1", "d1", "bot1", 1, 0)
	insert(t, x, "c2", "d1", "bot1", 0, 1)
	insert(t, x, "c3", "d1", "bot1", 1, 1)
	insert(t, x, "c4", "d2", "bot1", 1, 1)
	insert(t, x, "c5", "d3", "bot2", 1, 1)

	n, err := x.RemoveByDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, x.RemoveByChunk(ctx, "c4"))
	require.NoError(t, x.RemoveByChunk(ctx, "c4"))

	n, err = x.RemoveByChatbot(ctx, "bot2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = x.Count(ctx, "bot1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIndex_ZeroVectorScoresZero(t *testing.T) {
	x := openTestIndex(t)
	insert(t, x, "z", "d1", "bot1", 0, 0)

	hits, err := x.Query(context.Background(), "bot1", []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Zero(t, hits[0].Similarity)
}

func TestIndex_DimensionMismatch(t *testing.T) {
	x := &Index{}
	ctx := context.Background()

	require.NoError(t, x.checkDims(3, true))
	assert.Equal(t, 3, x.Dimensions())

	err := x.Insert(ctx, driven.VectorEntry{ChunkID: "c", ChatbotID: "b", Embedding: []float32{1, 2}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = x.Query(ctx, "b", []float32{1}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestIndex_QueryBeforeFirstInsert(t *testing.T) {
	x := &Index{}

	hits, err := x.Query(context.Background(), "b", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Zero(t, x.Dimensions())
}

func TestIndex_InvalidInput(t *testing.T) {
	x := &Index{}
	ctx := context.Background()

	err := x.Insert(ctx, driven.VectorEntry{ChatbotID: "b", Embedding: []float32{1}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = x.Insert(ctx, driven.VectorEntry{ChunkID: "c", ChatbotID: "b"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndex_Closed(t *testing.T) {
	x := &Index{}
	require.NoError(t, x.Close())
	require.NoError(t, x.Close())
	ctx := context.Background()

	assert.ErrorIs(t, x.Insert(ctx, driven.VectorEntry{}), domain.ErrIndexClosed)
	assert.ErrorIs(t, x.RemoveByChunk(ctx, "c"), domain.ErrIndexClosed)
	_, err := x.RemoveByDocument(ctx, "d")
	assert.ErrorIs(t, err, domain.ErrIndexClosed)
	_, err = x.RemoveByChatbot(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrIndexClosed)
	_, err = x.Query(ctx, "b", []float32{1}, 1)
	assert.ErrorIs(t, err, domain.ErrIndexClosed)
	_, err = x.Count(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrIndexClosed)
	_, err = x.ChunkIDs(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrIndexClosed)
}

func TestSimilarityExpr_Placeholders(t *testing.T) {
	query, args, err := psql.Select("chunk_id").
		Column(sq.Expr(similarityExpr, "q", "q")).
		From(tableVectors).
		Where(sq.Eq{"chatbot_id": "bot1"}).
		ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "vector_norm($1::vector)")
	assert.Contains(t, query, "embedding <=> $2::vector")
	assert.Contains(t, query, "chatbot_id = $3")
	assert.Equal(t, []any{"q", "q", "bot1"}, args)
}
