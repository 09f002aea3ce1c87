// Package sqlite stores documents and chunks in a local SQLite file using
// the pure Go modernc.org/sqlite driver.
//
// Embeddings are kept as little-endian float32 blobs so the in-memory
// vector index can be rebuilt when the process starts. The schema is
// versioned by the numbered scripts in migrations/. WAL mode lets readers
// proceed while a write is in flight.
//
// The default location is ~/.ragkit/data/knowledge.db.
package sqlite
