package driving

import (
	"context"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetChunking updates the default chunk configuration.
	SetChunking(cfg domain.ChunkConfig) error

	// SetRetrieval updates the default top-k and similarity threshold.
	SetRetrieval(topK int, minSimilarity float64) error

	// Validate checks that current settings can serve retrieval and ingestion.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig(ctx context.Context) error
}
