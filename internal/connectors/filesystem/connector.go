// Package filesystem watches a local directory and turns file changes into
// document uploads and deletions.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("connector closed")

// ChangeType classifies a file change.
type ChangeType int

// File change kinds.
const (
	ChangeCreated ChangeType = iota
	ChangeUpdated
	ChangeDeleted
)

// String returns the string representation.
func (t ChangeType) String() string {
	switch t {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is one file event. Content is empty for deletions.
type Change struct {
	Type ChangeType

	// Path is the absolute file path.
	Path string

	// Name is the path relative to the watched root, with forward slashes.
	// It becomes the document name.
	Name string

	Content []byte
	ModTime time.Time
}

// Connector reads supported documents from a directory tree.
type Connector struct {
	rootPath string
	maxBytes int64

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// New creates a connector rooted at rootPath. Files larger than maxBytes are
// skipped; zero means no limit.
func New(rootPath string, maxBytes int64) *Connector {
	return &Connector{rootPath: rootPath, maxBytes: maxBytes}
}

// Root returns the watched directory.
func (c *Connector) Root() string {
	return c.rootPath
}

// Validate checks that the root exists and is a directory.
func (c *Connector) Validate() error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", c.rootPath)
	}
	return nil
}

// FullSync returns a created change for every supported file under the root.
func (c *Connector) FullSync(ctx context.Context) ([]Change, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var changes []Change
	err := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Walk %s: %v", path, err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel := c.relative(path)
		if d.IsDir() {
			if path != c.rootPath && isHidden(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !c.wanted(rel) {
			return nil
		}

		change, err := c.read(path, ChangeCreated)
		if err != nil {
			logger.Warn("Read %s: %v", path, err)
			return nil
		}
		if change != nil {
			changes = append(changes, *change)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// Watch streams changes under the root until ctx is cancelled, then closes
// the channel. New subdirectories are watched as they appear.
func (c *Connector) Watch(ctx context.Context) (<-chan Change, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	c.watcher = watcher
	c.mu.Unlock()

	if err := c.addTree(watcher, c.rootPath); err != nil {
		watcher.Close() //nolint:errcheck
		return nil, err
	}

	out := make(chan Change, 64)
	go func() {
		defer close(out)
		defer watcher.Close() //nolint:errcheck

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Create) {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !isHidden(c.relative(ev.Name)) {
						if err := c.addTree(watcher, ev.Name); err != nil {
							logger.Warn("Watch %s: %v", ev.Name, err)
						}
						continue
					}
				}
				change := c.handleFsEvent(ev)
				if change == nil {
					continue
				}
				select {
				case out <- *change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watcher error: %v", err)
			}
		}
	}()

	return out, nil
}

// Close stops any running watch. Watch fails afterwards.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.watcher != nil {
		err := c.watcher.Close()
		c.watcher = nil
		return err
	}
	return nil
}

func (c *Connector) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.rootPath && isHidden(c.relative(path)) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// handleFsEvent converts a raw event into a change, or nil when the event
// is irrelevant.
func (c *Connector) handleFsEvent(ev fsnotify.Event) *Change {
	rel := c.relative(ev.Name)
	if !c.wanted(rel) {
		return nil
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return &Change{Type: ChangeDeleted, Path: ev.Name, Name: rel}
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		kind := ChangeUpdated
		if ev.Has(fsnotify.Create) {
			kind = ChangeCreated
		}
		change, err := c.read(ev.Name, kind)
		if err != nil {
			logger.Debug("Read %s: %v", ev.Name, err)
			return nil
		}
		return change
	default:
		return nil
	}
}

// read loads a regular file. It returns nil for directories and files over
// the size limit.
func (c *Connector) read(path string, kind ChangeType) (*Change, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, nil
	}
	if c.maxBytes > 0 && info.Size() > c.maxBytes {
		logger.Warn("Skip %s: %d bytes exceeds limit", path, info.Size())
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Change{
		Type:    kind,
		Path:    path,
		Name:    c.relative(path),
		Content: content,
		ModTime: info.ModTime(),
	}, nil
}

// wanted reports whether a file is a visible, supported document.
func (c *Connector) wanted(rel string) bool {
	if rel == "" || isHidden(rel) {
		return false
	}
	_, ok := domain.DocumentTypeFromFilename(rel)
	return ok
}

func (c *Connector) relative(path string) string {
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	if rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// isHidden reports whether any element of path starts with a dot. The
// elements "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
