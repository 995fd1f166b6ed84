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
//   - DocumentStore: Documents, chunks and lexical chunk search
//   - ConversationStore: Conversation history
//   - Normaliser: Text extraction for one document type
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Completion provider. Without it the planner falls back to
//     keywords and answers fail with a generation error.
//   - WebEvidenceProvider: Web search and extract. Without it web evidence is empty.
//   - PageFetcher: Downloads web pages for URL ingestion.
//   - StatusNotifier: Receives document status changes.
//   - PromptStore: User-editable prompt templates.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
