package driven

import (
	"context"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// EmbeddingProbe checks that embedding settings reach a working provider
// before they are relied on.
type EmbeddingProbe interface {
	// Probe returns nil when the provider answers or when settings name no
	// provider. Failures wrap domain.ErrEmbeddingUnavailable.
	Probe(ctx context.Context, settings *domain.EmbeddingSettings) error
}
