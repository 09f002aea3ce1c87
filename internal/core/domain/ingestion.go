package domain

import "fmt"

// ChunkUnit is the unit chunk windows are measured in.
type ChunkUnit string

// Available chunk units.
const (
	// ChunkUnitChars measures windows in Unicode code points.
	ChunkUnitChars ChunkUnit = "chars"

	// ChunkUnitTokens measures windows in tokenizer tokens.
	ChunkUnitTokens ChunkUnit = "tokens"
)

// IsValid returns true if the unit is recognised.
func (u ChunkUnit) IsValid() bool {
	switch u {
	case ChunkUnitChars, ChunkUnitTokens:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (u ChunkUnit) String() string {
	return string(u)
}

// Chunking defaults.
const (
	DefaultChunkSize   = 1000
	DefaultOverlapSize = 100
	DefaultChunkUnit   = ChunkUnitChars
)

// ChunkConfig controls how raw text is split into windows.
type ChunkConfig struct {
	// ChunkSize is the number of units per window. Must be positive.
	ChunkSize int

	// OverlapSize is the number of units shared by consecutive windows.
	// Must satisfy 0 <= OverlapSize < ChunkSize.
	OverlapSize int

	// Unit is the measure for ChunkSize and OverlapSize.
	// Empty means ChunkUnitChars.
	Unit ChunkUnit
}

// DefaultChunkConfig returns 1000-unit windows with 100 units of overlap.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:   DefaultChunkSize,
		OverlapSize: DefaultOverlapSize,
		Unit:        DefaultChunkUnit,
	}
}

// Validate rejects configurations that would never advance the window.
func (c ChunkConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunkConfig, c.ChunkSize)
	}
	if c.OverlapSize < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidChunkConfig, c.OverlapSize)
	}
	if c.OverlapSize >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be less than chunk size %d",
			ErrInvalidChunkConfig, c.OverlapSize, c.ChunkSize)
	}
	if c.Unit != "" && !c.Unit.IsValid() {
		return fmt.Errorf("%w: unknown unit %q", ErrInvalidChunkConfig, c.Unit)
	}
	return nil
}

// Step returns the distance between the starts of consecutive windows.
func (c ChunkConfig) Step() int {
	return c.ChunkSize - c.OverlapSize
}

// EffectiveUnit returns Unit, or the default unit when it is empty.
func (c ChunkConfig) EffectiveUnit() ChunkUnit {
	if c.Unit == "" {
		return DefaultChunkUnit
	}
	return c.Unit
}

// Chunk metadata keys written by the chunker.
const (
	MetaPosition = "position"
	MetaStart    = "start"
	MetaEnd      = "end"
)

// ChunkFailure records a window that could not be embedded or stored.
type ChunkFailure struct {
	// Position is the window index within the document.
	Position int

	// Err is the cause.
	Err error
}

// IngestResult summarises the ingestion of one document.
type IngestResult struct {
	// DocumentID is the ingested document.
	DocumentID string

	// ChunkCount is the number of chunks persisted and indexed.
	ChunkCount int

	// FailedCount is the number of windows skipped.
	FailedCount int

	// Failures holds one entry per skipped window.
	Failures []ChunkFailure
}

// Partial returns true if some but not all windows were persisted.
func (r IngestResult) Partial() bool {
	return r.FailedCount > 0 && r.ChunkCount > 0
}

// Total returns the number of windows produced by the chunker.
func (r IngestResult) Total() int {
	return r.ChunkCount + r.FailedCount
}

// BatchIngestItem is one document of a batch ingestion, such as a crawled page.
type BatchIngestItem struct {
	Document Document
	Text     string
}

// BatchItemError records a document of a batch that failed outright.
type BatchItemError struct {
	DocumentID string
	Source     string
	Err        error
}

// BatchIngestResult accumulates per-item outcomes of a batch ingestion.
type BatchIngestResult struct {
	// ProcessedCount is the number of documents that produced at least one chunk.
	ProcessedCount int

	// FailedCount is the number of documents that produced none.
	FailedCount int

	// TotalChunks is the sum of persisted chunks across the batch.
	TotalChunks int

	// Results holds one entry per processed document, in input order.
	Results []IngestResult

	// Errors holds one entry per failed document, in input order.
	Errors []BatchItemError
}
