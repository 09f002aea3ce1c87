// Package driving declares the use cases ragkit offers to its front ends:
// retrieval, ingestion, knowledge inspection and settings. The CLI depends
// only on these interfaces; internal/core/services implements them.
package driving
