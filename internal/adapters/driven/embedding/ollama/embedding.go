// Package ollama provides an embedding service adapter using Ollama.
//
// Requests go through Ollama's OpenAI-compatible /v1 endpoint, so the adapter
// shares the OpenAI client and adds Ollama defaults.
package ollama

import (
	"strings"
	"time"

	"github.com/custodia-labs/ragkit/internal/adapters/driven/embedding/openai"
)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768
)

// Ollama ignores the key but the client sends one.
const placeholderAPIKey = "ollama"

// Config selects the server and model. Zero fields take the defaults above;
// Dimensions stays unknown for models other than DefaultModel until the
// first embedding arrives.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Dimensions int
}

// NewEmbeddingService returns an OpenAI-compatible client aimed at Ollama.
func NewEmbeddingService(cfg Config) *openai.EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 && cfg.Model == DefaultModel {
		cfg.Dimensions = DefaultDimensions
	}

	return openai.NewCompatible(openai.Config{
		APIKey:     placeholderAPIKey,
		BaseURL:    CompatibleURL(cfg.BaseURL),
		Model:      cfg.Model,
		Timeout:    cfg.Timeout,
		Dimensions: cfg.Dimensions,
	})
}

// CompatibleURL returns the OpenAI-compatible endpoint for an Ollama base URL.
func CompatibleURL(baseURL string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(baseURL, "/v1") {
		return baseURL
	}
	return baseURL + "/v1"
}
