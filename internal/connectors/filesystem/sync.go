package filesystem

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// DefaultWorkers is the number of concurrent uploads during the initial scan.
const DefaultWorkers = 4

// DefaultQuietPeriod is how long watch events are collected before they are
// applied. Editors often write a file several times in quick succession.
const DefaultQuietPeriod = 500 * time.Millisecond

// Syncer mirrors a watched directory into the document store. Documents are
// matched to files by name, relative to the watched root.
type Syncer struct {
	docs    driving.DocumentService
	conn    *Connector
	workers int
	quiet   time.Duration

	mu     sync.Mutex
	byName map[string]domain.Document
}

// SyncOption configures a Syncer.
type SyncOption func(*Syncer)

// WithWorkers sets the number of concurrent uploads during the initial scan.
func WithWorkers(n int) SyncOption {
	return func(s *Syncer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithQuietPeriod sets the debounce window for watch events.
func WithQuietPeriod(d time.Duration) SyncOption {
	return func(s *Syncer) {
		if d > 0 {
			s.quiet = d
		}
	}
}

// NewSyncer creates a syncer feeding docs from conn.
func NewSyncer(docs driving.DocumentService, conn *Connector, opts ...SyncOption) *Syncer {
	s := &Syncer{
		docs:    docs,
		conn:    conn,
		workers: DefaultWorkers,
		quiet:   DefaultQuietPeriod,
		byName:  make(map[string]domain.Document),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs an initial scan and then applies changes until ctx is done.
// Watching starts before the scan so that no change falls in between.
func (s *Syncer) Run(ctx context.Context) error {
	changes, err := s.conn.Watch(ctx)
	if err != nil {
		return err
	}
	if err := s.Scan(ctx); err != nil {
		s.conn.Close() //nolint:errcheck
		return err
	}
	logger.Info("Watching %s", s.conn.Root())

	pending := make(map[string]Change)
	var order []string
	timer := time.NewTimer(s.quiet)
	timer.Stop()

	flush := func() {
		for _, name := range order {
			if err := s.apply(ctx, pending[name]); err != nil {
				logger.Warn("Sync %s: %v", name, err)
			}
		}
		pending = make(map[string]Change)
		order = nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				flush()
				return nil
			}
			if _, seen := pending[change.Name]; !seen {
				order = append(order, change.Name)
			}
			pending[change.Name] = change
			timer.Reset(s.quiet)
		case <-timer.C:
			flush()
		}
	}
}

// Scan uploads every file that is new or has changed since its document was
// last updated.
func (s *Syncer) Scan(ctx context.Context) error {
	existing, err := s.docs.List(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	s.mu.Lock()
	for _, doc := range existing {
		if doc.Source != "" {
			continue
		}
		if cur, ok := s.byName[doc.Name]; !ok || doc.UpdatedAt.After(cur.UpdatedAt) {
			s.byName[doc.Name] = doc
		}
	}
	s.mu.Unlock()

	files, err := s.conn.FullSync(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	uploaded := 0
	var countMu sync.Mutex
	for _, change := range files {
		if s.current(change) {
			continue
		}
		g.Go(func() error {
			if err := s.apply(gctx, change); err != nil {
				logger.Warn("Sync %s: %v", change.Name, err)
				return nil
			}
			countMu.Lock()
			uploaded++
			countMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Scanned %s: %d files, %d uploaded", s.conn.Root(), len(files), uploaded)
	return nil
}

// current reports whether the stored document is at least as new as the file.
func (s *Syncer) current(change Change) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.byName[change.Name]
	if !ok || doc.Status == domain.StatusFailed {
		return false
	}
	return !change.ModTime.After(doc.UpdatedAt)
}

// apply replaces or removes the document for one change.
func (s *Syncer) apply(ctx context.Context, change Change) error {
	s.mu.Lock()
	old, exists := s.byName[change.Name]
	s.mu.Unlock()

	if exists {
		if err := s.docs.Delete(ctx, old.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete %s: %w", old.ID, err)
		}
		s.mu.Lock()
		delete(s.byName, change.Name)
		s.mu.Unlock()
	}

	if change.Type == ChangeDeleted {
		if exists {
			logger.Info("Removed %s", change.Name)
		}
		return nil
	}

	doc, err := s.docs.Upload(ctx, change.Name, change.Content)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	s.mu.Lock()
	s.byName[change.Name] = *doc
	s.mu.Unlock()
	logger.Info("Queued %s as %s", change.Name, doc.ID)
	return nil
}

// Tracked returns the document ID currently mapped to name.
func (s *Syncer) Tracked(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.byName[name]
	return doc.ID, ok
}
