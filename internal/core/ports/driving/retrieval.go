package driving

import (
	"context"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// RetrievalService finds supporting chunks for a chatbot query.
type RetrievalService interface {
	// Retrieve returns up to k chunks ranked by similarity to query.
	// k <= 0 uses the configured default. Embedding failures yield an empty
	// slice and a nil error; only domain.ErrDimensionMismatch is returned.
	Retrieve(ctx context.Context, chatbotID, query string, k int) ([]domain.RetrievalResult, error)

	// BuildContext assembles the system message sent to the generator.
	BuildContext(systemPrompt string, results []domain.RetrievalResult) string

	// SourcePreviews returns the attribution list shown under an answer.
	SourcePreviews(results []domain.RetrievalResult) []domain.SourcePreview
}
