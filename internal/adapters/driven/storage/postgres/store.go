package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/custodia-labs/ragkit/internal/adapters/driven/storage/jsonmeta"
	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ChunkStore = (*Store)(nil)

const (
	tableDocuments = "ragkit_documents"
	tableChunks    = "ragkit_chunks"
)

//go:embed schema.sql
var schema string

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var (
	documentColumns = []string{"id", "chatbot_id", "filename", "source_url", "source_type", "metadata", "uploaded_at"}
	chunkColumns    = []string{"id", "document_id", "chatbot_id", "content", "position", "embedding", "metadata"}
)

// Store is a PostgreSQL-backed chunk store.
type Store struct {
	db     *sqlx.DB
	ownsDB bool
}

// Open connects to dsn and prepares the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	s, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// New wraps an existing connection pool and prepares the schema.
// Close does not close a pool passed in here.
func New(ctx context.Context, db *sqlx.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the connection pool if the store opened it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

type documentRow struct {
	ID         string    `db:"id"`
	ChatbotID  string    `db:"chatbot_id"`
	Filename   string    `db:"filename"`
	SourceURL  string    `db:"source_url"`
	SourceType string    `db:"source_type"`
	Metadata   []byte    `db:"metadata"`
	UploadedAt time.Time `db:"uploaded_at"`
}

type chunkRow struct {
	ID         string          `db:"id"`
	DocumentID string          `db:"document_id"`
	ChatbotID  string          `db:"chatbot_id"`
	Content    string          `db:"content"`
	Position   int             `db:"position"`
	Embedding  pq.Float64Array `db:"embedding"`
	Metadata   []byte          `db:"metadata"`
}

// ==================== Documents ====================

// SaveDocument stores or updates a document.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	metadata, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	query := psql.Insert(tableDocuments).
		Columns(documentColumns...).
		Values(doc.ID, doc.ChatbotID, doc.Filename, doc.SourceURL, doc.SourceType, metadata, doc.UploadedAt.UTC()).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			chatbot_id = EXCLUDED.chatbot_id,
			filename = EXCLUDED.filename,
			source_url = EXCLUDED.source_url,
			source_type = EXCLUDED.source_type,
			metadata = EXCLUDED.metadata,
			uploaded_at = EXCLUDED.uploaded_at`)
	return s.exec(ctx, "saving document", query)
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	queryString, args, err := psql.Select(documentColumns...).From(tableDocuments).
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, errorSQLBuild(err)
	}

	var row documentRow
	if err := s.db.GetContext(ctx, &row, queryString, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("getting document: %w", err)
	}
	doc, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocuments retrieves the documents that exist among ids.
func (s *Store) GetDocuments(ctx context.Context, ids []string) ([]domain.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.selectDocuments(ctx, psql.Select(documentColumns...).From(tableDocuments).
		Where(sq.Eq{"id": ids}))
}

// ListDocuments returns the documents of a chatbot, oldest first.
func (s *Store) ListDocuments(ctx context.Context, chatbotID string) ([]domain.Document, error) {
	return s.selectDocuments(ctx, psql.Select(documentColumns...).From(tableDocuments).
		Where(sq.Eq{"chatbot_id": chatbotID}).OrderBy("uploaded_at", "seq"))
}

// DeleteDocument removes a document record.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return s.exec(ctx, "deleting document", psql.Delete(tableDocuments).Where(sq.Eq{"id": id}))
}

// DeleteDocumentsByChatbot removes every document record of a chatbot.
func (s *Store) DeleteDocumentsByChatbot(ctx context.Context, chatbotID string) (int, error) {
	return s.execCount(ctx, "deleting documents",
		psql.Delete(tableDocuments).Where(sq.Eq{"chatbot_id": chatbotID}))
}

// ==================== Chunks ====================

// CreateChunk stores a chunk, replacing any chunk with the same ID.
func (s *Store) CreateChunk(ctx context.Context, chunk *domain.Chunk) error {
	if chunk == nil || chunk.ID == "" {
		return domain.ErrInvalidInput
	}
	metadata, err := marshalMetadata(chunk.Metadata)
	if err != nil {
		return err
	}
	embedding := pq.Float64Array(lo.Map(chunk.Embedding, func(f float32, _ int) float64 {
		return float64(f)
	}))

	query := psql.Insert(tableChunks).
		Columns(chunkColumns...).
		Values(chunk.ID, chunk.DocumentID, chunk.ChatbotID, chunk.Content, chunk.Position, embedding, metadata).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			chatbot_id = EXCLUDED.chatbot_id,
			content = EXCLUDED.content,
			position = EXCLUDED.position,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`)
	return s.exec(ctx, "saving chunk", query)
}

// GetChunksByIDs returns the chunks that exist among ids.
func (s *Store) GetChunksByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.selectChunks(ctx, psql.Select(chunkColumns...).From(tableChunks).
		Where(sq.Eq{"id": ids}))
}

// GetChunksByDocument returns the chunks of a document ordered by position.
func (s *Store) GetChunksByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return s.selectChunks(ctx, psql.Select(chunkColumns...).From(tableChunks).
		Where(sq.Eq{"document_id": documentID}).OrderBy("position", "seq"))
}

// ListChunksByChatbot returns every chunk of a chatbot in insertion order.
func (s *Store) ListChunksByChatbot(ctx context.Context, chatbotID string) ([]domain.Chunk, error) {
	return s.selectChunks(ctx, psql.Select(chunkColumns...).From(tableChunks).
		Where(sq.Eq{"chatbot_id": chatbotID}).OrderBy("seq"))
}

// ListChatbotIDs returns the chatbots that own at least one chunk.
func (s *Store) ListChatbotIDs(ctx context.Context) ([]string, error) {
	queryString, args, err := psql.Select("DISTINCT chatbot_id").From(tableChunks).
		OrderBy("chatbot_id").ToSql()
	if err != nil {
		return nil, errorSQLBuild(err)
	}
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, queryString, args...); err != nil {
		return nil, fmt.Errorf("querying chatbots: %w", err)
	}
	return ids, nil
}

// DeleteChunk removes a single chunk.
func (s *Store) DeleteChunk(ctx context.Context, id string) error {
	return s.exec(ctx, "deleting chunk", psql.Delete(tableChunks).Where(sq.Eq{"id": id}))
}

// DeleteChunksByDocument removes the chunks of a document.
func (s *Store) DeleteChunksByDocument(ctx context.Context, documentID string) (int, error) {
	return s.execCount(ctx, "deleting chunks",
		psql.Delete(tableChunks).Where(sq.Eq{"document_id": documentID}))
}

// DeleteChunksByChatbot removes the chunks of a chatbot.
func (s *Store) DeleteChunksByChatbot(ctx context.Context, chatbotID string) (int, error) {
	return s.execCount(ctx, "deleting chunks",
		psql.Delete(tableChunks).Where(sq.Eq{"chatbot_id": chatbotID}))
}

// CountChunks returns the number of chunks owned by a chatbot.
func (s *Store) CountChunks(ctx context.Context, chatbotID string) (int, error) {
	queryString, args, err := psql.Select("COUNT(*)").From(tableChunks).
		Where(sq.Eq{"chatbot_id": chatbotID}).ToSql()
	if err != nil {
		return 0, errorSQLBuild(err)
	}
	var n int
	if err := s.db.GetContext(ctx, &n, queryString, args...); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// ==================== Helper Functions ====================

func errorSQLBuild(err error) error {
	return fmt.Errorf("failed to build sql query: %w", err)
}

func (s *Store) exec(ctx context.Context, what string, query sq.Sqlizer) error {
	_, err := s.execCount(ctx, what, query)
	return err
}

func (s *Store) execCount(ctx context.Context, what string, query sq.Sqlizer) (int, error) {
	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, errorSQLBuild(err)
	}
	res, err := s.db.ExecContext(ctx, queryString, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	return int(n), nil
}

func (s *Store) selectDocuments(ctx context.Context, query sq.SelectBuilder) ([]domain.Document, error) {
	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, errorSQLBuild(err)
	}
	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, queryString, args...); err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	docs := make([]domain.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Store) selectChunks(ctx context.Context, query sq.SelectBuilder) ([]domain.Chunk, error) {
	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, errorSQLBuild(err)
	}
	var rows []chunkRow
	if err := s.db.SelectContext(ctx, &rows, queryString, args...); err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	chunks := make([]domain.Chunk, 0, len(rows))
	for _, row := range rows {
		chunk, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (r documentRow) toDomain() (domain.Document, error) {
	metadata, err := unmarshalMetadata(r.Metadata)
	if err != nil {
		return domain.Document{}, fmt.Errorf("document %s: %w", r.ID, err)
	}
	return domain.Document{
		ID:         r.ID,
		ChatbotID:  r.ChatbotID,
		Filename:   r.Filename,
		SourceURL:  r.SourceURL,
		SourceType: r.SourceType,
		Metadata:   metadata,
		UploadedAt: r.UploadedAt,
	}, nil
}

func (r chunkRow) toDomain() (domain.Chunk, error) {
	metadata, err := unmarshalMetadata(r.Metadata)
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("chunk %s: %w", r.ID, err)
	}
	var embedding []float32
	if len(r.Embedding) > 0 {
		embedding = lo.Map(r.Embedding, func(f float64, _ int) float32 {
			return float32(f)
		})
	}
	return domain.Chunk{
		ID:         r.ID,
		DocumentID: r.DocumentID,
		ChatbotID:  r.ChatbotID,
		Content:    r.Content,
		Position:   r.Position,
		Embedding:  embedding,
		Metadata:   metadata,
	}, nil
}

func marshalMetadata(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshalling metadata: %w", err)
	}
	return string(data), nil
}

func unmarshalMetadata(data []byte) (map[string]any, error) {
	m, err := jsonmeta.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	return m, nil
}
