package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// StatusNotifier receives document status changes from the ingestion
// pipeline. This is an optional service; polling the document status is
// always available.
type StatusNotifier interface {
	// Notify publishes a status change. Failures are logged by the caller
	// and never affect ingestion.
	Notify(ctx context.Context, event domain.StatusEvent) error
}

// StatusSubscriber is implemented by notifiers that can fan status events
// out to in-process listeners.
type StatusSubscriber interface {
	// Subscribe returns events for one document and a func that releases
	// the subscription. The channel is closed on release.
	Subscribe(documentID string) (<-chan domain.StatusEvent, func())
}
