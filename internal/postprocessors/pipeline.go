// Package postprocessors turns normalised documents into chunk windows.
package postprocessors

import (
	"context"
	"fmt"
	"slices"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/logger"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs processors in order. The first stage receives no chunks
// and is expected to cut them; later stages rewrite what they are given.
type Pipeline struct {
	stages []driven.PostProcessor
}

// NewPipeline returns a pipeline running stages in the given order.
func NewPipeline(stages ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: slices.Clone(stages)}
}

// Stages returns the processor names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Process feeds doc through every stage. Chunks with empty content never
// leave the pipeline, whichever stages ran.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := stage.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", stage.Name(), err)
		}
		logger.Debug("pipeline %s: document %s, %d -> %d chunks", stage.Name(), doc.ID, len(chunks), len(out))
		chunks = out
	}

	return slices.DeleteFunc(chunks, func(c domain.Chunk) bool { return c.Content == "" }), nil
}
