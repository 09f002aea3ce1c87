// Package limiter decorates an embedding service with a per-call timeout and
// rate limiting, and reports every failure as domain.ErrEmbeddingUnavailable.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Config controls the decorator.
type Config struct {
	// Timeout bounds each Embed or EmbedBatch call, including the rate limit wait.
	// Defaults to domain.DefaultEmbeddingTimeout.
	Timeout time.Duration

	// RateLimit configures the token bucket.
	RateLimit RateLimitConfig
}

// EmbeddingService wraps another embedding service.
type EmbeddingService struct {
	next    driven.EmbeddingService
	timeout time.Duration
	limiter *RateLimiter
}

// Wrap decorates next.
func Wrap(next driven.EmbeddingService, cfg Config) *EmbeddingService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = domain.DefaultEmbeddingTimeout
	}
	return &EmbeddingService{
		next:    next,
		timeout: cfg.Timeout,
		limiter: NewRateLimiter(cfg.RateLimit),
	}
}

// Embed generates a vector embedding within the timeout.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, unavailable(err)
	}
	vec, err := s.next.Embed(ctx, text)
	if err != nil {
		s.observe(err)
		return nil, unavailable(err)
	}
	if len(vec) == 0 {
		return nil, unavailable(errors.New("empty embedding"))
	}
	return vec, nil
}

// EmbedBatch generates embeddings within the timeout. The batch counts as one request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, unavailable(err)
	}
	vecs, err := s.next.EmbedBatch(ctx, texts)
	if err != nil {
		s.observe(err)
		return nil, unavailable(err)
	}
	if len(vecs) != len(texts) {
		return nil, unavailable(fmt.Errorf("got %d embeddings for %d texts", len(vecs), len(texts)))
	}
	return vecs, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.next.Dimensions()
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.next.ModelName()
}

// Ping checks the wrapped service within the timeout.
// It fails fast without calling the provider while a 429 backoff is active.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if s.limiter.BackingOff() {
		return unavailable(errors.New("rate limited, backing off"))
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.next.Ping(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// Close releases the wrapped service.
func (s *EmbeddingService) Close() error {
	return s.next.Close()
}

// observe starts a backoff when the provider reports rate limiting.
func (s *EmbeddingService) observe(err error) {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		logger.Warn("embedding provider rate limited %s, backing off", s.next.ModelName())
		s.limiter.RecordRateLimitError(0)
	}
}

func unavailable(err error) error {
	if errors.Is(err, domain.ErrEmbeddingUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
}
