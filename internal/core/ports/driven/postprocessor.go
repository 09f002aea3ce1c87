package driven

import (
	"context"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// PostProcessor is one stage of the ingestion pipeline. The first stage
// receives nil chunks and splits the document. Later stages rewrite or
// drop the chunks they are given.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline runs a document through its stages in order.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}

// PipelineBuilder assembles a pipeline from settings. Unusable chunker
// settings fail with domain.ErrInvalidChunkConfig.
type PipelineBuilder interface {
	BuildPipeline(cfg domain.PipelineConfig) (PostProcessorPipeline, error)
}
