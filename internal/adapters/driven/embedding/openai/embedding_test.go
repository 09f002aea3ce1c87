package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions"`
}

// fakeServer answers /v1/embeddings with one vector per input, [len(input), index].
func fakeServer(t *testing.T, requests *atomic.Int32, lastReq *embeddingRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/embeddings":
			requests.Add(1)
			var req embeddingRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if lastReq != nil {
				*lastReq = req
			}
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			data := make([]map[string]any, len(req.Input))
			// Reverse order to exercise index placement.
			for i := range req.Input {
				j := len(req.Input) - 1 - i
				data[i] = map[string]any{
					"object":    "embedding",
					"index":     j,
					"embedding": []float32{float32(len(req.Input[j])), float32(j)},
				}
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object": "list",
				"model":  req.Model,
				"data":   data,
				"usage":  map[string]int{"prompt_tokens": 3, "total_tokens": 3},
			})
		case "/v1/models":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.Error(t, err)
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "k"})
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, 1536, svc.Dimensions())
	assert.Equal(t, DefaultBatchSize, svc.batchSize)
	assert.NoError(t, svc.Close())
}

func TestNewCompatible_UnknownModelLearnsDimensions(t *testing.T) {
	var requests atomic.Int32
	srv := fakeServer(t, &requests, nil)

	svc := NewCompatible(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1/", Model: "custom"})
	assert.Zero(t, svc.Dimensions())

	_, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, 2, svc.Dimensions())
}

func TestEmbed(t *testing.T) {
	var requests atomic.Int32
	var last embeddingRequest
	srv := fakeServer(t, &requests, &last)

	svc, err := NewEmbeddingService(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	vec, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 0}, vec)
	assert.Equal(t, DefaultModel, last.Model)
	assert.Zero(t, last.Dimensions)
}

func TestEmbed_SendsDimensionsForV3Models(t *testing.T) {
	var requests atomic.Int32
	var last embeddingRequest
	srv := fakeServer(t, &requests, &last)

	svc, err := NewEmbeddingService(Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/v1",
		Model:      "text-embedding-3-large",
		Dimensions: 256,
	})
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 256, last.Dimensions)
	assert.Equal(t, 256, svc.Dimensions())
}

func TestEmbedBatch_SplitsAndOrders(t *testing.T) {
	var requests atomic.Int32
	srv := fakeServer(t, &requests, nil)

	svc, err := NewEmbeddingService(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1", BatchSize: 2})
	require.NoError(t, err)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := svc.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	for i, text := range texts {
		assert.InDelta(t, float32(len(text)), vecs[i][0], 1e-6, "input %d", i)
	}
	assert.Equal(t, int32(3), requests.Load())
}

func TestEmbedBatch_Empty(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "k"})
	require.NoError(t, err)

	vecs, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbed_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "hello")
	assert.Error(t, err)
	assert.Error(t, svc.Ping(context.Background()))
}

func TestPing(t *testing.T) {
	var requests atomic.Int32
	srv := fakeServer(t, &requests, nil)

	svc, err := NewEmbeddingService(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	assert.NoError(t, svc.Ping(context.Background()))
}
