// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The query path is Planner, RetrievalCoordinator and AnswerStreamer,
// tied together by ChatService. DocumentService owns ingestion.
//
// Services are pure Go with no CGO. Providers, stores and extractors
// arrive through the driven ports.
package services
