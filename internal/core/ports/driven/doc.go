// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ChunkStore: Document and chunk persistence (memory, SQLite, PostgreSQL)
//   - VectorIndex: Chatbot-scoped cosine similarity search
//   - EmbeddingService: Generates vector embeddings
//   - PipelineBuilder: Builds the chunking pipeline from configuration
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil or no-op - the application degrades gracefully:
//
//   - Recorder: Operational metrics (Prometheus)
//   - Tokenizer: Token-measured chunk windows. Without it, only char windows work.
//   - NormaliserRegistry: Text extraction for file ingestion from the CLI.
//   - EmbeddingProbe: Connectivity checks when settings change.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, postprocessor, or normaliser package
package driven
