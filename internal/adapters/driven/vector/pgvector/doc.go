// Package pgvector provides a driven.VectorIndex backed by PostgreSQL with
// the pgvector extension.
//
// Similarity is computed in the database as 1 - cosine distance and ordered
// by similarity, then by insertion sequence. The column is declared without a
// fixed dimension; the index enforces a single dimensionality itself, taken
// from the first stored row or the first insert.
package pgvector
