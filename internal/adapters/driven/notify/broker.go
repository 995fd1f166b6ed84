// Package notify provides StatusNotifier implementations: an in-process
// broker that fans document status events out to subscribers, and a Kafka
// publisher for consumers outside the process.
package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Broker implements the interfaces.
var (
	_ driven.StatusNotifier   = (*Broker)(nil)
	_ driven.StatusSubscriber = (*Broker)(nil)
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// Broker delivers status events to in-process subscribers and forwards
// them to any downstream notifiers.
//
// Delivery never blocks ingestion: a subscriber whose buffer is full misses
// the event.
type Broker struct {
	mu     sync.Mutex
	subs   map[string]map[*subscription]struct{}
	next   []driven.StatusNotifier
	buffer int
}

type subscription struct {
	ch   chan domain.StatusEvent
	once sync.Once
}

// NewBroker creates a broker that also forwards every event to next.
func NewBroker(next ...driven.StatusNotifier) *Broker {
	return &Broker{
		subs:   make(map[string]map[*subscription]struct{}),
		next:   next,
		buffer: DefaultBuffer,
	}
}

// Subscribe returns events for one document. The release func removes the
// subscription and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe(documentID string) (<-chan domain.StatusEvent, func()) {
	sub := &subscription{ch: make(chan domain.StatusEvent, b.buffer)}

	b.mu.Lock()
	if b.subs[documentID] == nil {
		b.subs[documentID] = make(map[*subscription]struct{})
	}
	b.subs[documentID][sub] = struct{}{}
	b.mu.Unlock()

	release := func() {
		sub.once.Do(func() {
			b.mu.Lock()
			delete(b.subs[documentID], sub)
			if len(b.subs[documentID]) == 0 {
				delete(b.subs, documentID)
			}
			close(sub.ch)
			b.mu.Unlock()
		})
	}
	return sub.ch, release
}

// Notify delivers the event to subscribers of its document and forwards it
// downstream. Downstream failures are joined into the returned error.
func (b *Broker) Notify(ctx context.Context, event domain.StatusEvent) error {
	b.mu.Lock()
	for sub := range b.subs[event.DocumentID] {
		select {
		case sub.ch <- event:
		default:
			logger.Debug("Status subscriber for %s is full, dropping %s", event.DocumentID, event.Status)
		}
	}
	b.mu.Unlock()

	var errs []error
	for _, n := range b.next {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribers returns the number of active subscriptions for a document.
func (b *Broker) Subscribers(documentID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[documentID])
}
