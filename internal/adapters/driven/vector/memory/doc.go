// Package memory provides an exact, in-process cosine similarity index.
//
// Entries are partitioned by chatbot. Each partition has its own lock, so
// writers for one chatbot never block queries for another, and queries on the
// same chatbot run in parallel while observing either the state before or the
// state after a write.
//
// Queries scan the whole partition. Swap in the pgvector backend, or another
// driven.VectorIndex, when partitions outgrow a linear scan.
package memory
