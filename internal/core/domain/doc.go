// Package domain defines the core business entities for sercha-rag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested document and its processing status
//   - Chunk: A searchable unit within a document
//   - Evidence: A ranked piece of supporting material (internal chunk or web result)
//   - Conversation: The message history of one chat thread
//   - StreamEvent: One unit of the streamed answer sequence
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
