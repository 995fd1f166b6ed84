package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

type recordingNotifier struct {
	events []domain.StatusEvent
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, event domain.StatusEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func statusEvent(docID string, status domain.DocumentStatus) domain.StatusEvent {
	return domain.StatusEvent{DocumentID: docID, Status: status, Timestamp: time.Now()}
}

func TestBroker_DeliversToDocumentSubscribers(t *testing.T) {
	b := NewBroker()

	events, release := b.Subscribe("doc-1")
	defer release()
	other, releaseOther := b.Subscribe("doc-2")
	defer releaseOther()

	require.NoError(t, b.Notify(context.Background(), statusEvent("doc-1", domain.StatusProcessing)))
	require.NoError(t, b.Notify(context.Background(), statusEvent("doc-1", domain.StatusCompleted)))

	assert.Equal(t, domain.StatusProcessing, (<-events).Status)
	assert.Equal(t, domain.StatusCompleted, (<-events).Status)
	assert.Empty(t, other)
}

func TestBroker_ReleaseClosesAndRemoves(t *testing.T) {
	b := NewBroker()

	events, release := b.Subscribe("doc-1")
	assert.Equal(t, 1, b.Subscribers("doc-1"))

	release()
	release()

	_, open := <-events
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers("doc-1"))

	// Publishing after release is harmless.
	assert.NoError(t, b.Notify(context.Background(), statusEvent("doc-1", domain.StatusFailed)))
}

func TestBroker_FullSubscriberDropsEvents(t *testing.T) {
	b := NewBroker()
	b.buffer = 1

	events, release := b.Subscribe("doc-1")
	defer release()

	require.NoError(t, b.Notify(context.Background(), statusEvent("doc-1", domain.StatusProcessing)))
	require.NoError(t, b.Notify(context.Background(), statusEvent("doc-1", domain.StatusCompleted)))

	assert.Equal(t, domain.StatusProcessing, (<-events).Status)
	assert.Empty(t, events)
}

func TestBroker_ForwardsDownstream(t *testing.T) {
	ok := &recordingNotifier{}
	failing := &recordingNotifier{err: errors.New("broker down")}
	b := NewBroker(ok, failing)

	err := b.Notify(context.Background(), statusEvent("doc-1", domain.StatusCompleted))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")

	assert.Len(t, ok.events, 1)
	assert.Len(t, failing.events, 1)
}
