package driven

import "time"

// Recorder receives operational measurements from the core services.
// A nil Recorder is never passed to services; use a no-op implementation.
type Recorder interface {
	// ObserveRetrieval records one retrieve call with its latency and hit count.
	ObserveRetrieval(chatbotID string, elapsed time.Duration, hits int)

	// RetrievalFailOpen records a retrieve call that degraded to no context.
	RetrievalFailOpen(chatbotID string, reason string)

	// InconsistentChunk records an index entry with no chunk record.
	InconsistentChunk(chatbotID string)

	// ObserveIngestion records the outcome of one document ingestion.
	ObserveIngestion(chatbotID string, elapsed time.Duration, chunks, failed int)
}
