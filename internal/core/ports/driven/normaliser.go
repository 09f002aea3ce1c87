package driven

import (
	"context"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// Normaliser extracts the text of one family of formats.
type Normaliser interface {
	SupportedMIMETypes() []string

	// Priority breaks ties between normalisers claiming the same type.
	// Format-specific normalisers use 50; the plain text fallback uses 5.
	Priority() int

	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult carries the extracted document. Chunking happens later
// in the post-processor pipeline.
type NormaliseResult struct {
	Document domain.Document
}
