package services

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedTimeout   = "embedding.timeout"
	keyEmbedRateLimit = "embedding.rate_limit"
	keyTopK           = "retrieval.top_k"
	keyMinSimilarity  = "retrieval.min_similarity"
	keyChunkSize      = "chunking.chunk_size"
	keyChunkOverlap   = "chunking.overlap"
	keyChunkUnit      = "chunking.unit"
	keyPipeline       = "pipeline.processors"
	keyStorageBackend = "storage.backend"
	keyStorageDataDir = "storage.data_dir"
	keyPostgresDSN    = "storage.postgres_dsn"
	keyVectorBackend  = "vector_index.backend"
	keyVectorDims     = "vector_index.dimensions"
	keyLogLevel       = "log.level"
	keyLogPath        = "log.path"
)

// EnvOpenAIKey is read when no embedding API key is configured.
//
//nolint:gosec // G101: environment variable name, not a credential.
const EnvOpenAIKey = "OPENAI_API_KEY"

// processorConfigKeys are the per-processor keys read from pipeline.<name>.<key>.
var processorConfigKeys = []string{"chunk_size", "overlap", "unit"}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	probe       driven.EmbeddingProbe
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// probe may be nil, which skips connectivity checks.
func NewSettingsService(configStore driven.ConfigStore, probe driven.EmbeddingProbe) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		probe:       probe,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:  s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:     s.configStore.GetString(keyEmbedModel),
			BaseURL:   s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:    s.configStore.GetString(keyEmbedAPIKey),
			Timeout:   s.getDuration(keyEmbedTimeout, defaults.Embedding.Timeout),
			RateLimit: s.getFloat(keyEmbedRateLimit, defaults.Embedding.RateLimit),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:          s.getInt(keyTopK, defaults.Retrieval.TopK),
			MinSimilarity: s.getFloat(keyMinSimilarity, defaults.Retrieval.MinSimilarity),
		},
		Chunking: domain.ChunkConfig{
			ChunkSize:   s.getInt(keyChunkSize, defaults.Chunking.ChunkSize),
			OverlapSize: s.getIntAllowZero(keyChunkOverlap, defaults.Chunking.OverlapSize),
			Unit:        domain.ChunkUnit(s.getString(keyChunkUnit, defaults.Chunking.Unit.String())),
		},
		Pipeline: s.GetPipelineConfig(),
		Storage: domain.StorageSettings{
			Backend:     domain.StorageBackend(s.getString(keyStorageBackend, defaults.Storage.Backend.String())),
			DataDir:     s.configStore.GetString(keyStorageDataDir),
			PostgresDSN: s.configStore.GetString(keyPostgresDSN),
		},
		VectorIndex: domain.VectorIndexSettings{
			Backend:    domain.VectorBackend(s.getString(keyVectorBackend, defaults.VectorIndex.Backend.String())),
			Dimensions: s.getInt(keyVectorDims, defaults.VectorIndex.Dimensions),
		},
		Log: domain.LogSettings{
			Level: s.getString(keyLogLevel, defaults.Log.Level),
			Path:  s.configStore.GetString(keyLogPath),
		},
	}

	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.Embedding.APIKey == "" && settings.Embedding.Provider == domain.AIProviderOpenAI {
		settings.Embedding.APIKey = s.getenv(EnvOpenAIKey)
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedTimeout, settings.Embedding.Timeout.String()},
		{keyEmbedRateLimit, settings.Embedding.RateLimit},
		{keyTopK, settings.Retrieval.TopK},
		{keyMinSimilarity, settings.Retrieval.MinSimilarity},
		{keyChunkSize, settings.Chunking.ChunkSize},
		{keyChunkOverlap, settings.Chunking.OverlapSize},
		{keyChunkUnit, settings.Chunking.EffectiveUnit().String()},
		{keyStorageBackend, settings.Storage.Backend.String()},
		{keyStorageDataDir, settings.Storage.DataDir},
		{keyVectorBackend, settings.VectorIndex.Backend.String()},
		{keyVectorDims, settings.VectorIndex.Dimensions},
		{keyLogLevel, settings.Log.Level},
		{keyLogPath, settings.Log.Path},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Secrets are only written when set, so an env-provided key is never persisted.
	if settings.Embedding.APIKey != "" && settings.Embedding.APIKey != s.getenv(EnvOpenAIKey) {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.Storage.PostgresDSN != "" {
		if err := s.configStore.Set(keyPostgresDSN, settings.Storage.PostgresDSN); err != nil {
			return fmt.Errorf("save postgres dsn: %w", err)
		}
	}

	if len(settings.Pipeline.Processors) > 0 {
		if err := s.configStore.Set(keyPipeline, settings.Pipeline.Processors); err != nil {
			return fmt.Errorf("save pipeline: %w", err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	if apiKey == "" && provider == domain.AIProviderOpenAI {
		apiKey = s.getenv(EnvOpenAIKey)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	// Update vector dimensions based on model
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.VectorIndex.Dimensions = d
	}

	return s.Save(settings)
}

// SetChunking updates the default chunk configuration.
func (s *SettingsService) SetChunking(cfg domain.ChunkConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Chunking = cfg
	return s.Save(settings)
}

// SetRetrieval updates the default top-k and similarity threshold.
func (s *SettingsService) SetRetrieval(topK int, minSimilarity float64) error {
	if topK <= 0 {
		return fmt.Errorf("%w: top-k must be positive, got %d", domain.ErrInvalidInput, topK)
	}
	if minSimilarity > 1 {
		return fmt.Errorf("%w: similarity threshold %.2f above 1", domain.ErrInvalidInput, minSimilarity)
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Retrieval.TopK = topK
	settings.Retrieval.MinSimilarity = minSimilarity
	return s.Save(settings)
}

// Validate checks that current settings can serve retrieval and ingestion.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider is not configured")
	}
	if err := settings.Chunking.Validate(); err != nil {
		return err
	}
	if settings.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: top-k must be positive, got %d", domain.ErrInvalidInput, settings.Retrieval.TopK)
	}
	if !settings.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, settings.Storage.Backend)
	}
	if !settings.VectorIndex.Backend.IsValid() {
		return fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, settings.VectorIndex.Backend)
	}
	needsDSN := settings.Storage.Backend == domain.StoragePostgres ||
		settings.VectorIndex.Backend == domain.VectorPgvector
	if needsDSN && settings.Storage.PostgresDSN == "" {
		return fmt.Errorf("%w: postgres backends need %s", domain.ErrInvalidInput, keyPostgresDSN)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig pings the configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.probe == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.probe.Probe(ctx, &settings.Embedding)
}

// GetPipelineConfig returns the post-processor pipeline configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	defaults := domain.DefaultPipelineConfig()

	if processors := s.configStore.GetStringSlice(keyPipeline); len(processors) > 0 {
		defaults.Processors = processors
	}

	for _, name := range defaults.Processors {
		cfg := s.loadProcessorConfig("pipeline." + name + ".")
		if len(cfg) == 0 {
			continue
		}
		existing := defaults.ProcessorConfigs[name]
		if existing == nil {
			existing = make(map[string]any)
		}
		maps.Copy(existing, cfg)
		defaults.ProcessorConfigs[name] = existing
	}

	return defaults
}

// loadProcessorConfig loads config keys with a given prefix into a map.
func (s *SettingsService) loadProcessorConfig(prefix string) map[string]any {
	cfg := make(map[string]any)
	for _, key := range processorConfigKeys {
		if val, exists := s.configStore.Get(prefix + key); exists {
			cfg[key] = val
		}
	}
	return cfg
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero distinguishes an explicit zero from an absent key.
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
