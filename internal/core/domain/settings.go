package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// StorageBackend identifies where chunk and document records live.
type StorageBackend string

// Available storage backends.
const (
	// StorageMemory keeps records in process memory.
	StorageMemory StorageBackend = "memory"

	// StorageSQLite keeps records in a local SQLite database.
	StorageSQLite StorageBackend = "sqlite"

	// StoragePostgres keeps records in a PostgreSQL database.
	StoragePostgres StorageBackend = "postgres"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageMemory, StorageSQLite, StoragePostgres:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// VectorBackend identifies the vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorMemory is the in-process brute-force cosine index.
	VectorMemory VectorBackend = "memory"

	// VectorPgvector delegates similarity search to PostgreSQL with pgvector.
	VectorPgvector VectorBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorMemory, VectorPgvector:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Timeout bounds a single embedding call.
	Timeout time.Duration

	// RateLimit is the number of embedding calls allowed per second.
	// Zero disables rate limiting.
	RateLimit float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// RetrievalSettings holds query-time configuration.
type RetrievalSettings struct {
	// TopK is the default number of chunks returned.
	TopK int

	// MinSimilarity drops results scoring below it.
	// Values at or below -1 disable the filter.
	MinSimilarity float64
}

// FilterEnabled returns true if MinSimilarity excludes anything.
func (r RetrievalSettings) FilterEnabled() bool {
	return r.MinSimilarity > -1
}

// StorageSettings selects and locates the chunk store.
type StorageSettings struct {
	// Backend is the chunk store implementation.
	Backend StorageBackend

	// DataDir holds the SQLite database file.
	DataDir string

	// PostgresDSN is the connection string for the postgres backend
	// and the pgvector index.
	PostgresDSN string
}

// VectorIndexSettings holds vector index configuration.
type VectorIndexSettings struct {
	// Backend is the index implementation.
	Backend VectorBackend

	// Dimensions presets the index dimensionality.
	// Zero lets the first insert decide.
	Dimensions int
}

// LogSettings controls the process logger.
type LogSettings struct {
	// Level is one of debug, info, warn or error.
	Level string

	// Path enables a rotating log file when set.
	Path string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// Retrieval holds query-time settings.
	Retrieval RetrievalSettings

	// Chunking holds the default chunk configuration for ingestion.
	Chunking ChunkConfig

	// Pipeline holds the post-processor chain run over each document.
	Pipeline PipelineConfig

	// Storage holds chunk store settings.
	Storage StorageSettings

	// VectorIndex holds vector index settings.
	VectorIndex VectorIndexSettings

	// Log holds logger settings.
	Log LogSettings
}

// DefaultEmbeddingTimeout bounds an embedding call when settings do not.
const DefaultEmbeddingTimeout = 10 * time.Second

// DefaultAppSettings returns settings with sensible defaults.
// The embedding provider is left unconfigured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Timeout: DefaultEmbeddingTimeout,
		},
		Retrieval: RetrievalSettings{
			TopK:          DefaultTopK,
			MinSimilarity: -1,
		},
		Chunking: DefaultChunkConfig(),
		Pipeline: DefaultPipelineConfig(),
		Storage: StorageSettings{
			Backend: StorageSQLite,
		},
		VectorIndex: VectorIndexSettings{
			Backend: VectorMemory,
		},
		Log: LogSettings{
			Level: "info",
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// Post-processor names.
const (
	ProcessorChunker = "chunker"
	ProcessorTrim    = "trim"
)

// PipelineConfig holds post-processor pipeline configuration.
// Processors are configured through generic maps so new ones can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// WithChunking returns a copy whose chunker runs with cfg.
// The chunker is prepended when the list does not name it.
func (c PipelineConfig) WithChunking(cfg ChunkConfig) PipelineConfig {
	out := PipelineConfig{
		ProcessorConfigs: make(map[string]map[string]any, len(c.ProcessorConfigs)+1),
	}
	hasChunker := false
	for _, name := range c.Processors {
		if name == ProcessorChunker {
			hasChunker = true
		}
	}
	if !hasChunker {
		out.Processors = append(out.Processors, ProcessorChunker)
	}
	out.Processors = append(out.Processors, c.Processors...)
	for name, pc := range c.ProcessorConfigs {
		out.ProcessorConfigs[name] = pc
	}
	out.ProcessorConfigs[ProcessorChunker] = map[string]any{
		"chunk_size": cfg.ChunkSize,
		"overlap":    cfg.OverlapSize,
		"unit":       cfg.EffectiveUnit().String(),
	}
	return out
}

// DefaultPipelineConfig returns the default pipeline configuration:
// the chunker alone with default windows.
func DefaultPipelineConfig() PipelineConfig {
	cfg := DefaultChunkConfig()
	return PipelineConfig{
		Processors: []string{ProcessorChunker},
		ProcessorConfigs: map[string]map[string]any{
			ProcessorChunker: {
				"chunk_size": cfg.ChunkSize,
				"overlap":    cfg.OverlapSize,
				"unit":       cfg.Unit.String(),
			},
		},
	}
}
