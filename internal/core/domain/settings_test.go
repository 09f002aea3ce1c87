package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAIProvider_IsValid tests all valid and invalid providers
func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider AIProvider
		expected bool
	}{
		{"ollama is valid", AIProviderOllama, true},
		{"openai is valid", AIProviderOpenAI, true},
		{"empty is invalid", AIProvider(""), false},
		{"anthropic is invalid", AIProvider("anthropic"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

// TestAIProvider_Properties tests key and locality requirements
func TestAIProvider_Properties(t *testing.T) {
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOllama.IsLocal())
	assert.False(t, AIProviderOpenAI.IsLocal())
	assert.Equal(t, "Ollama (local)", AIProviderOllama.Description())
	assert.Equal(t, "OpenAI (cloud)", AIProviderOpenAI.Description())
	assert.Equal(t, unknownDescription, AIProvider("x").Description())
}

// TestEmbeddingSettings_IsConfigured tests provider configuration checks
func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{"unset provider", EmbeddingSettings{}, false},
		{"ollama without key", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk-test"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

// TestBackends_IsValid tests storage and vector backend names
func TestBackends_IsValid(t *testing.T) {
	assert.True(t, StorageMemory.IsValid())
	assert.True(t, StorageSQLite.IsValid())
	assert.True(t, StoragePostgres.IsValid())
	assert.False(t, StorageBackend("mysql").IsValid())

	assert.True(t, VectorMemory.IsValid())
	assert.True(t, VectorPgvector.IsValid())
	assert.False(t, VectorBackend("hnsw").IsValid())
}

// TestDefaultAppSettings tests the shipped defaults
func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.False(t, s.Embedding.IsConfigured())
	assert.Equal(t, DefaultEmbeddingTimeout, s.Embedding.Timeout)
	assert.Equal(t, 5, s.Retrieval.TopK)
	assert.False(t, s.Retrieval.FilterEnabled())
	assert.Equal(t, DefaultChunkConfig(), s.Chunking)
	assert.Equal(t, StorageSQLite, s.Storage.Backend)
	assert.Equal(t, VectorMemory, s.VectorIndex.Backend)
	assert.Equal(t, "info", s.Log.Level)
	require.NoError(t, s.Chunking.Validate())
}

// TestRetrievalSettings_FilterEnabled tests the similarity threshold switch
func TestRetrievalSettings_FilterEnabled(t *testing.T) {
	assert.False(t, RetrievalSettings{MinSimilarity: -1}.FilterEnabled())
	assert.False(t, RetrievalSettings{MinSimilarity: -2}.FilterEnabled())
	assert.True(t, RetrievalSettings{MinSimilarity: 0}.FilterEnabled())
	assert.True(t, RetrievalSettings{MinSimilarity: 0.75}.FilterEnabled())
}

// TestDefaultEmbeddingModels tests that every provider has a known model
func TestDefaultEmbeddingModels(t *testing.T) {
	models := DefaultEmbeddingModels()
	dims := EmbeddingDimensions()

	for _, p := range AllEmbeddingProviders() {
		model, ok := models[p]
		require.True(t, ok, "missing default model for %s", p)
		assert.Positive(t, dims[model], "missing dimensions for %s", model)
	}
}

// TestPipelineConfig_GetProcessorConfig tests per-processor lookups
func TestPipelineConfig_GetProcessorConfig(t *testing.T) {
	cfg := DefaultPipelineConfig()

	assert.Equal(t, []string{ProcessorChunker}, cfg.Processors)
	assert.Equal(t, 1000, cfg.GetProcessorConfig(ProcessorChunker)["chunk_size"])
	assert.Nil(t, cfg.GetProcessorConfig(ProcessorTrim))

	empty := PipelineConfig{}
	assert.Nil(t, empty.GetProcessorConfig(ProcessorChunker))
}

// TestPipelineConfig_WithChunking tests chunker overrides
func TestPipelineConfig_WithChunking(t *testing.T) {
	t.Run("overrides existing chunker config", func(t *testing.T) {
		base := DefaultPipelineConfig()
		cfg := base.WithChunking(ChunkConfig{ChunkSize: 200, OverlapSize: 20, Unit: ChunkUnitTokens})

		assert.Equal(t, []string{ProcessorChunker}, cfg.Processors)
		pc := cfg.GetProcessorConfig(ProcessorChunker)
		assert.Equal(t, 200, pc["chunk_size"])
		assert.Equal(t, 20, pc["overlap"])
		assert.Equal(t, "tokens", pc["unit"])

		// Base is untouched.
		assert.Equal(t, 1000, base.GetProcessorConfig(ProcessorChunker)["chunk_size"])
	})

	t.Run("prepends chunker when missing", func(t *testing.T) {
		base := PipelineConfig{Processors: []string{ProcessorTrim}}
		cfg := base.WithChunking(DefaultChunkConfig())

		assert.Equal(t, []string{ProcessorChunker, ProcessorTrim}, cfg.Processors)
		assert.Equal(t, "chars", cfg.GetProcessorConfig(ProcessorChunker)["unit"])
	})
}
