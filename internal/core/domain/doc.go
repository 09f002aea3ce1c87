// Package domain defines the core business entities for ragkit.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: The atomic unit of retrieval, owned by one document and one chatbot
//   - Document: An uploaded file or a single crawled page
//   - Chatbot: The tenant that scopes every index and retrieval operation
//   - RetrievalResult: A ranked, source-attributed chunk returned for a query
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
