package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown normaliser, processor or backend type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Index Errors.

	// ErrDimensionMismatch indicates an embedding length that differs from the
	// index dimensionality. The offending call fails; index state is unchanged.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrIndexClosed indicates the vector index has been closed.
	ErrIndexClosed = errors.New("vector index closed")

	// ErrChunkStoreInconsistency indicates the index references a chunk that is
	// absent from the chunk store. Retrieval logs and drops such entries.
	ErrChunkStoreInconsistency = errors.New("chunk store inconsistency")

	// Provider Errors.

	// ErrEmbeddingUnavailable indicates the embedding provider failed or timed out.
	// Retrieval degrades to an empty result; ingestion skips the affected chunk.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Ingestion Errors.

	// ErrInvalidChunkConfig indicates a non-positive chunk size or an overlap
	// that would stop the chunk window from advancing.
	ErrInvalidChunkConfig = errors.New("invalid chunk config")
)
