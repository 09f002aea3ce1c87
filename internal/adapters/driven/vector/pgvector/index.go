package pgvector

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync/atomic"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

const tableVectors = "ragkit_vectors"

//go:embed schema.sql
var schema string

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// similarityExpr scores zero-norm vectors 0 and clamps rounding noise.
const similarityExpr = "CASE WHEN vector_norm(embedding) = 0 OR vector_norm(?::vector) = 0 THEN 0 " +
	"ELSE GREATEST(-1, LEAST(1, 1 - (embedding <=> ?::vector))) END AS similarity"

// Index is a pgvector-backed vector index.
type Index struct {
	db     *sqlx.DB
	ownsDB bool

	dims   atomic.Int64
	closed atomic.Bool
}

// Open connects to dsn and prepares the vector table.
func Open(ctx context.Context, dsn string) (*Index, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	x, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	x.ownsDB = true
	return x, nil
}

// New wraps an existing pool. The dimensionality is read from the stored
// rows; dims presets it when the table is empty and is checked otherwise.
func New(ctx context.Context, db *sqlx.DB, dims ...int) (*Index, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating vector schema: %w", err)
	}

	x := &Index{db: db}
	var stored int
	err := db.GetContext(ctx, &stored, "SELECT vector_dims(embedding) FROM "+tableVectors+" LIMIT 1")
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("reading vector dimensions: %w", err)
	default:
		x.dims.Store(int64(stored))
	}

	if len(dims) > 0 && dims[0] > 0 {
		if err := x.checkDims(dims[0], true); err != nil {
			return nil, err
		}
	}
	return x, nil
}

// Insert adds or replaces the entry for a chunk. A replace keeps the
// original insertion sequence.
func (x *Index) Insert(ctx context.Context, e driven.VectorEntry) error {
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

	query := psql.Insert(tableVectors).
		Columns("chunk_id", "document_id", "chatbot_id", "embedding").
		Values(e.ChunkID, e.DocumentID, e.ChatbotID, pgvector.NewVector(e.Embedding)).
		Suffix(`ON CONFLICT (chunk_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			chatbot_id = EXCLUDED.chatbot_id,
			embedding = EXCLUDED.embedding`)
	_, err := x.exec(ctx, "inserting vector", query)
	return err
}

// RemoveByChunk removes a single entry. Absent ids are ignored.
func (x *Index) RemoveByChunk(ctx context.Context, chunkID string) error {
	if x.closed.Load() {
		return domain.ErrIndexClosed
	}
	_, err := x.exec(ctx, "removing vector", psql.Delete(tableVectors).Where(sq.Eq{"chunk_id": chunkID}))
	return err
}

// RemoveByDocument removes every entry of a document.
func (x *Index) RemoveByDocument(ctx context.Context, documentID string) (int, error) {
	if x.closed.Load() {
		return 0, domain.ErrIndexClosed
	}
	return x.exec(ctx, "removing document vectors",
		psql.Delete(tableVectors).Where(sq.Eq{"document_id": documentID}))
}

// RemoveByChatbot removes every entry of a chatbot.
func (x *Index) RemoveByChatbot(ctx context.Context, chatbotID string) (int, error) {
	if x.closed.Load() {
		return 0, domain.ErrIndexClosed
	}
	return x.exec(ctx, "removing chatbot vectors",
		psql.Delete(tableVectors).Where(sq.Eq{"chatbot_id": chatbotID}))
}

// Query returns the k entries of a chatbot most similar to query.
func (x *Index) Query(ctx context.Context, chatbotID string, query []float32, k int) ([]driven.VectorHit, error) {
	if x.closed.Load() {
		return nil, domain.ErrIndexClosed
	}
	if err := x.checkDims(len(query), false); err != nil {
		return nil, err
	}
	if k <= 0 || x.dims.Load() == 0 {
		return []driven.VectorHit{}, nil
	}

	vec := pgvector.NewVector(query)
	queryString, args, err := psql.Select("chunk_id").
		Column(sq.Expr(similarityExpr, vec, vec)).
		From(tableVectors).
		Where(sq.Eq{"chatbot_id": chatbotID}).
		OrderBy("similarity DESC", "seq ASC").
		Limit(uint64(k)).
		ToSql()
	if err != nil {
		return nil, errorSQLBuild(err)
	}

	var rows []struct {
		ChunkID    string  `db:"chunk_id"`
		Similarity float64 `db:"similarity"`
	}
	if err := x.db.SelectContext(ctx, &rows, queryString, args...); err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}

	hits := make([]driven.VectorHit, len(rows))
	for i, r := range rows {
		hits[i] = driven.VectorHit{ChunkID: r.ChunkID, Similarity: r.Similarity}
	}
	return hits, nil
}

// Count returns the number of entries held for a chatbot.
func (x *Index) Count(ctx context.Context, chatbotID string) (int, error) {
	if x.closed.Load() {
		return 0, domain.ErrIndexClosed
	}
	queryString, args, err := psql.Select("COUNT(*)").From(tableVectors).
		Where(sq.Eq{"chatbot_id": chatbotID}).ToSql()
	if err != nil {
		return 0, errorSQLBuild(err)
	}
	var n int
	if err := x.db.GetContext(ctx, &n, queryString, args...); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// ChunkIDs returns the ids held for a chatbot in insertion order.
func (x *Index) ChunkIDs(ctx context.Context, chatbotID string) ([]string, error) {
	if x.closed.Load() {
		return nil, domain.ErrIndexClosed
	}
	queryString, args, err := psql.Select("chunk_id").From(tableVectors).
		Where(sq.Eq{"chatbot_id": chatbotID}).OrderBy("seq").ToSql()
	if err != nil {
		return nil, errorSQLBuild(err)
	}
	var ids []string
	if err := x.db.SelectContext(ctx, &ids, queryString, args...); err != nil {
		return nil, fmt.Errorf("listing vectors: %w", err)
	}
	return ids, nil
}

// Dimensions returns the established dimensionality, or 0 before the first insert.
func (x *Index) Dimensions() int {
	return int(x.dims.Load())
}

// Close marks the index closed and closes the pool if the index opened it.
func (x *Index) Close() error {
	if x.closed.Swap(true) {
		return nil
	}
	if x.ownsDB {
		return x.db.Close()
	}
	return nil
}

func errorSQLBuild(err error) error {
	return fmt.Errorf("failed to build sql query: %w", err)
}

func (x *Index) exec(ctx context.Context, what string, query sq.Sqlizer) (int, error) {
	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, errorSQLBuild(err)
	}
	res, err := x.db.ExecContext(ctx, queryString, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	return int(n), nil
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
			logger.Debug("pgvector index: dimensionality fixed at %d", n)
			return nil
		}
		want = x.dims.Load()
	}
	if int64(n) != want {
		return fmt.Errorf("%w: got %d, index has %d", domain.ErrDimensionMismatch, n, want)
	}
	return nil
}
