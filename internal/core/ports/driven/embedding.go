package driven

import "context"

// EmbeddingService turns text into vectors. It only produces vectors;
// VectorIndex stores and searches them. The OpenAI and Ollama adapters
// both speak the OpenAI embeddings API.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector length, or zero until the first response
	// reveals it.
	Dimensions() int

	ModelName() string

	// Ping makes the cheapest request that proves the provider answers.
	Ping(ctx context.Context) error

	Close() error
}
