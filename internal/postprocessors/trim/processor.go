// Package trim strips surrounding whitespace from chunks and drops blank ones.
package trim

import (
	"context"
	"strings"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// Name is the registry name of the trim processor.
const Name = domain.ProcessorTrim

// Processor trims chunk content. Positions and offsets are left as cut.
type Processor struct{}

// New creates a trim processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// Process trims each chunk and removes the ones left empty.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	out := chunks[:0]
	for _, c := range chunks {
		c.Content = strings.TrimSpace(c.Content)
		if c.Content == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
