package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompatibleURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:11434", "http://localhost:11434/v1"},
		{"http://localhost:11434/", "http://localhost:11434/v1"},
		{"http://gpu:11434/v1", "http://gpu:11434/v1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompatibleURL(tt.in), tt.in)
	}
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
}

func TestNewEmbeddingService_OtherModelHasNoPreset(t *testing.T) {
	svc := NewEmbeddingService(Config{Model: "all-minilm"})
	assert.Zero(t, svc.Dimensions())
}

func TestEmbed_UsesCompatibleEndpoint(t *testing.T) {
	var path, model string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		var req struct {
			Model string `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		model = req.Model
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL, Model: "mxbai-embed-large"})
	vec, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, "/v1/embeddings", path)
	assert.Equal(t, "mxbai-embed-large", model)
	assert.Len(t, vec, 3)
	assert.Equal(t, 3, svc.Dimensions())
}
