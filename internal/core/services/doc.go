// Package services implements the driving port interfaces.
// Services contain the core retrieval and ingestion logic and
// orchestrate calls to driven ports (adapters).
//
// Services depend on port interfaces only; adapters are injected
// by the caller.
package services
