package sqlite

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragkit/internal/adapters/driven/storage/jsonmeta"
	"github.com/custodia-labs/ragkit/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

var _ driven.ChunkStore = (*Store)(nil)

const (
	dbFile  = "knowledge.db"
	pragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	tableDocuments = "documents"
	tableChunks    = "chunks"
)

var (
	documentColumns = []string{"id", "chatbot_id", "filename", "source_url", "source_type", "metadata", "uploaded_at"}
	chunkColumns    = []string{"id", "document_id", "chatbot_id", "content", "position", "embedding", "metadata"}
)

// Store keeps documents and chunks in a single SQLite file.
type Store struct {
	db   *sqlx.DB
	path string
}

// NewStore opens dataDir/knowledge.db, creating the directory and applying
// pending migrations. An empty dataDir means ~/.ragkit/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ragkit", "data")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dataDir, err)
	}

	path := filepath.Join(dataDir, dbFile)
	db, err := sqlx.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	if err := migrate(db, migrations.FS); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies every NNN_name.up.sql newer than the recorded version.
// Each file runs in its own transaction together with its version row.
func migrate(db *sqlx.DB, fsys fs.FS) error {
	const bootstrap = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(bootstrap); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var applied int
	if err := db.Get(&applied, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations"); err != nil {
		return fmt.Errorf("migrate: reading version: %w", err)
	}

	files, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	slices.Sort(files)

	for _, name := range files {
		prefix, _, _ := strings.Cut(name, "_")
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= applied {
			continue
		}
		script, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}

		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		if _, err := tx.Exec(string(script)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
	}
	return nil
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
	ID         string `db:"id"`
	DocumentID string `db:"document_id"`
	ChatbotID  string `db:"chatbot_id"`
	Content    string `db:"content"`
	Position   int    `db:"position"`
	Embedding  []byte `db:"embedding"`
	Metadata   []byte `db:"metadata"`
}

// SaveDocument inserts doc or replaces the stored record with the same ID.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	metadata, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return err
	}
	query := sq.Insert(tableDocuments).
		Columns(documentColumns...).
		Values(doc.ID, doc.ChatbotID, doc.Filename, doc.SourceURL, doc.SourceType, metadata, doc.UploadedAt.UTC()).
		Suffix(upsert(documentColumns))
	return s.exec(ctx, "saving document", query)
}

// GetDocument returns domain.ErrNotFound when id is unknown.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	docs, err := s.selectDocuments(ctx, sq.Select(documentColumns...).From(tableDocuments).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.ErrNotFound
	}
	return &docs[0], nil
}

func (s *Store) GetDocuments(ctx context.Context, ids []string) ([]domain.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.selectDocuments(ctx, sq.Select(documentColumns...).From(tableDocuments).
		Where(sq.Eq{"id": ids}))
}

// ListDocuments returns the documents of a chatbot, oldest first.
func (s *Store) ListDocuments(ctx context.Context, chatbotID string) ([]domain.Document, error) {
	return s.selectDocuments(ctx, sq.Select(documentColumns...).From(tableDocuments).
		Where(sq.Eq{"chatbot_id": chatbotID}).OrderBy("uploaded_at", "rowid"))
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return s.exec(ctx, "deleting document", sq.Delete(tableDocuments).Where(sq.Eq{"id": id}))
}

func (s *Store) DeleteDocumentsByChatbot(ctx context.Context, chatbotID string) (int, error) {
	return s.execCount(ctx, "deleting documents",
		sq.Delete(tableDocuments).Where(sq.Eq{"chatbot_id": chatbotID}))
}

// CreateChunk inserts chunk or replaces the stored chunk with the same ID.
func (s *Store) CreateChunk(ctx context.Context, chunk *domain.Chunk) error {
	if chunk == nil || chunk.ID == "" {
		return domain.ErrInvalidInput
	}
	metadata, err := marshalMetadata(chunk.Metadata)
	if err != nil {
		return err
	}
	query := sq.Insert(tableChunks).
		Columns(chunkColumns...).
		Values(chunk.ID, chunk.DocumentID, chunk.ChatbotID, chunk.Content, chunk.Position,
			float32SliceToBytes(chunk.Embedding), metadata).
		Suffix(upsert(chunkColumns))
	return s.exec(ctx, "saving chunk", query)
}

func (s *Store) GetChunksByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.selectChunks(ctx, sq.Select(chunkColumns...).From(tableChunks).
		Where(sq.Eq{"id": ids}))
}

// GetChunksByDocument orders by position, then by insertion.
func (s *Store) GetChunksByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return s.selectChunks(ctx, sq.Select(chunkColumns...).From(tableChunks).
		Where(sq.Eq{"document_id": documentID}).OrderBy("position", "rowid"))
}

// ListChunksByChatbot returns chunks in insertion order.
func (s *Store) ListChunksByChatbot(ctx context.Context, chatbotID string) ([]domain.Chunk, error) {
	return s.selectChunks(ctx, sq.Select(chunkColumns...).From(tableChunks).
		Where(sq.Eq{"chatbot_id": chatbotID}).OrderBy("rowid"))
}

func (s *Store) ListChatbotIDs(ctx context.Context) ([]string, error) {
	query, args, err := sq.Select("DISTINCT chatbot_id").From(tableChunks).OrderBy("chatbot_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("listing chatbots: %w", err)
	}
	return ids, nil
}

func (s *Store) DeleteChunk(ctx context.Context, id string) error {
	return s.exec(ctx, "deleting chunk", sq.Delete(tableChunks).Where(sq.Eq{"id": id}))
}

func (s *Store) DeleteChunksByDocument(ctx context.Context, documentID string) (int, error) {
	return s.execCount(ctx, "deleting chunks",
		sq.Delete(tableChunks).Where(sq.Eq{"document_id": documentID}))
}

func (s *Store) DeleteChunksByChatbot(ctx context.Context, chatbotID string) (int, error) {
	return s.execCount(ctx, "deleting chunks",
		sq.Delete(tableChunks).Where(sq.Eq{"chatbot_id": chatbotID}))
}

func (s *Store) CountChunks(ctx context.Context, chatbotID string) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From(tableChunks).
		Where(sq.Eq{"chatbot_id": chatbotID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("building query: %w", err)
	}
	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// upsert renders an ON CONFLICT clause that overwrites every column but id.
func upsert(columns []string) string {
	sets := make([]string, 0, len(columns)-1)
	for _, c := range columns[1:] {
		sets = append(sets, c+" = excluded."+c)
	}
	return "ON CONFLICT(id) DO UPDATE SET " + strings.Join(sets, ", ")
}

func (s *Store) exec(ctx context.Context, what string, query sq.Sqlizer) error {
	_, err := s.execCount(ctx, what, query)
	return err
}

func (s *Store) execCount(ctx context.Context, what string, query sq.Sqlizer) (int, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: building query: %w", what, err)
	}
	res, err := s.db.ExecContext(ctx, stmt, args...)
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
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}

	docs := make([]domain.Document, len(rows))
	for i, r := range rows {
		metadata, err := unmarshalMetadata(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", r.ID, err)
		}
		docs[i] = domain.Document{
			ID:         r.ID,
			ChatbotID:  r.ChatbotID,
			Filename:   r.Filename,
			SourceURL:  r.SourceURL,
			SourceType: r.SourceType,
			Metadata:   metadata,
			UploadedAt: r.UploadedAt,
		}
	}
	return docs, nil
}

func (s *Store) selectChunks(ctx context.Context, query sq.SelectBuilder) ([]domain.Chunk, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	var rows []chunkRow
	if err := s.db.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}

	chunks := make([]domain.Chunk, len(rows))
	for i, r := range rows {
		metadata, err := unmarshalMetadata(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", r.ID, err)
		}
		chunks[i] = domain.Chunk{
			ID:         r.ID,
			DocumentID: r.DocumentID,
			ChatbotID:  r.ChatbotID,
			Content:    r.Content,
			Position:   r.Position,
			Embedding:  bytesToFloat32Slice(r.Embedding),
			Metadata:   metadata,
		}
	}
	return chunks, nil
}

func marshalMetadata(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}
	return string(data), nil
}

func unmarshalMetadata(data []byte) (map[string]any, error) {
	m, err := jsonmeta.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return m, nil
}

// float32SliceToBytes packs an embedding as little-endian float32 values.
func float32SliceToBytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 0, len(v)*4)
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) < 4 {
		return nil
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v
}
