// Package ai selects and checks the embedding provider named in settings.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/ragkit/internal/adapters/driven/embedding/limiter"
	ollamaembed "github.com/custodia-labs/ragkit/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/ragkit/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

var _ driven.EmbeddingProbe = (*Probe)(nil)

// DefaultProbeTimeout bounds a connectivity check.
const DefaultProbeTimeout = 5 * time.Second

// Probe checks embedding settings against the real provider.
type Probe struct {
	Timeout time.Duration
}

// NewProbe returns a Probe using DefaultProbeTimeout.
func NewProbe() *Probe {
	return &Probe{Timeout: DefaultProbeTimeout}
}

// Probe builds a throwaway client from settings and pings it.
// Unconfigured settings pass.
func (p *Probe) Probe(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

// CreateEmbeddingService creates the embedding service selected by settings,
// bounded by the configured timeout and rate limit.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var svc driven.EmbeddingService
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = createOllamaEmbedding(settings)

	case domain.AIProviderOpenAI:
		s, err := createOpenAIEmbedding(settings)
		if err != nil {
			return nil, err
		}
		svc = s

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}

	return limiter.Wrap(svc, limiter.Config{
		Timeout:   settings.Timeout,
		RateLimit: limiter.RateLimitConfig{RequestsPerSecond: settings.RateLimit},
	}), nil
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) *openaiembed.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Timeout:    settings.Timeout,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (*openaiembed.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Timeout:    settings.Timeout,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
	})
}
