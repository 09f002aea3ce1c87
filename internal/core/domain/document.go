package domain

import "time"

// SourceTypeURL marks a document produced from a crawled web page.
const SourceTypeURL = "url"

// Chatbot is the tenant boundary for retrieval.
// Configuration fields are consumed by the external generation step.
type Chatbot struct {
	// ID is the unique identifier for the chatbot.
	ID string

	// OwnerID is the user that owns the chatbot.
	OwnerID string

	// Name is the display name.
	Name string

	// SystemPrompt prefixes every generated answer.
	SystemPrompt string

	// Temperature is the sampling temperature for generation.
	Temperature float64
}

// Document represents an uploaded file or a single crawled page.
// A document owns zero or more chunks.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// ChatbotID links to the owning Chatbot.
	ChatbotID string

	// Filename is the uploaded file name. Empty for crawled pages.
	Filename string

	// SourceURL is the page location for crawled documents.
	SourceURL string

	// SourceType is the file format (pdf, docx, txt) or SourceTypeURL.
	SourceType string

	// Metadata contains arbitrary key-value pairs.
	// It is copied verbatim into every chunk of the document.
	Metadata map[string]any

	// Content is the extracted plain text while the document is being chunked.
	// Chunk stores do not persist it.
	Content string

	// UploadedAt is when the document was first ingested.
	UploadedAt time.Time
}

// DisplayName returns the name shown next to retrieved context.
func (d Document) DisplayName() string {
	if d.Filename != "" {
		return d.Filename
	}
	if d.SourceURL != "" {
		return d.SourceURL
	}
	return d.ID
}

// Chunk represents a bounded span of a document's text.
// Chunks are immutable once written, apart from re-embedding on retry.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// ChatbotID links to the owning Chatbot.
	ChatbotID string

	// Content is the text content of this chunk. Never empty.
	Content string

	// Position is the ordinal window index within the document.
	Position int

	// Embedding is the vector representation for semantic search.
	Embedding []float32

	// Metadata is passed through retrieval untouched.
	Metadata map[string]any
}

// ChatbotStats summarises the knowledge held by one chatbot.
type ChatbotStats struct {
	ChatbotID     string
	DocumentCount int
	ChunkCount    int

	// IndexedCount is the number of vectors in the index partition.
	// It equals ChunkCount when the stores are in lockstep.
	IndexedCount int
}
