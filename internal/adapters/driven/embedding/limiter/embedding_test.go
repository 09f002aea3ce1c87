package limiter

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// fakeEmbedder is a configurable driven.EmbeddingService.
type fakeEmbedder struct {
	vec    []float32
	err    error
	delay  time.Duration
	calls  atomic.Int32
	pings  atomic.Int32
	closed bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.vec, f.err
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int   { return len(f.vec) }
func (f *fakeEmbedder) ModelName() string { return "fake" }

func (f *fakeEmbedder) Ping(context.Context) error {
	f.pings.Add(1)
	return f.err
}

func (f *fakeEmbedder) Close() error {
	f.closed = true
	return nil
}

func TestEmbed_PassesThrough(t *testing.T) {
	next := &fakeEmbedder{vec: []float32{1, 2}}
	svc := Wrap(next, Config{})

	vec, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)
	assert.Equal(t, 2, svc.Dimensions())
	assert.Equal(t, "fake", svc.ModelName())
	assert.Equal(t, domain.DefaultEmbeddingTimeout, svc.timeout)
}

func TestEmbed_WrapsErrors(t *testing.T) {
	next := &fakeEmbedder{err: errors.New("connection refused")}
	svc := Wrap(next, Config{})

	_, err := svc.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "connection refused")

	assert.ErrorIs(t, svc.Ping(context.Background()), domain.ErrEmbeddingUnavailable)
}

func TestEmbed_DoesNotDoubleWrap(t *testing.T) {
	next := &fakeEmbedder{err: domain.ErrEmbeddingUnavailable}
	svc := Wrap(next, Config{})

	_, err := svc.Embed(context.Background(), "hello")
	assert.Equal(t, domain.ErrEmbeddingUnavailable, err)
}

func TestEmbed_EmptyVectorIsUnavailable(t *testing.T) {
	svc := Wrap(&fakeEmbedder{}, Config{})

	_, err := svc.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEmbed_Timeout(t *testing.T) {
	next := &fakeEmbedder{vec: []float32{1}, delay: time.Second}
	svc := Wrap(next, Config{Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := svc.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestEmbedBatch(t *testing.T) {
	next := &fakeEmbedder{vec: []float32{1}}
	svc := Wrap(next, Config{})

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)

	next.err = errors.New("boom")
	_, err = svc.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEmbed_RateLimitWaitExceedsTimeout(t *testing.T) {
	next := &fakeEmbedder{vec: []float32{1}}
	svc := Wrap(next, Config{
		Timeout:   30 * time.Millisecond,
		RateLimit: RateLimitConfig{RequestsPerSecond: 0.1, BurstSize: 1},
	})

	_, err := svc.Embed(context.Background(), "first")
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "second")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestEmbed_TooManyRequestsStartsBackoff(t *testing.T) {
	next := &fakeEmbedder{err: &goopenai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}}
	svc := Wrap(next, Config{RateLimit: RateLimitConfig{Backoff: time.Hour}})

	_, err := svc.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.True(t, svc.limiter.BackingOff())
}

func TestPing_FailsFastWhileBackingOff(t *testing.T) {
	next := &fakeEmbedder{err: &goopenai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}}
	svc := Wrap(next, Config{RateLimit: RateLimitConfig{Backoff: time.Hour}})

	_, err := svc.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	next.err = nil
	err = svc.Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "backing off")
	assert.Zero(t, next.pings.Load())
}

func TestPing_NoBackoff(t *testing.T) {
	next := &fakeEmbedder{}
	svc := Wrap(next, Config{RateLimit: RateLimitConfig{RequestsPerSecond: 1}})

	_, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.NoError(t, svc.Ping(context.Background()))
	assert.Equal(t, int32(1), next.pings.Load())
}

func TestClose(t *testing.T) {
	next := &fakeEmbedder{}
	require.NoError(t, Wrap(next, Config{}).Close())
	assert.True(t, next.closed)
}

func TestRateLimiter_Unlimited(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 100; i++ {
		require.NoError(t, rl.Wait(ctx))
	}
	assert.False(t, rl.BackingOff())
}

func TestRateLimiter_BackingOff(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{})
	rl.RecordRateLimitError(time.Hour)
	assert.True(t, rl.BackingOff())

	rl.RecordRateLimitError(-time.Hour)
	assert.True(t, rl.BackingOff(), "non-positive hint uses the configured backoff")
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{})
	rl.RecordRateLimitError(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.Canceled)
}
