// Package postgres provides a PostgreSQL implementation of driven.ChunkStore.
//
// Queries are built with squirrel using dollar placeholders and executed
// through sqlx over the lib/pq driver. Embeddings are stored as real[] so the
// table does not depend on the pgvector extension; the searchable copy lives
// in the pgvector index.
package postgres
