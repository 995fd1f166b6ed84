// Package postprocessors builds the chunker used by the ingestion pipeline
// from user configuration.
package postprocessors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// BuilderFunc creates a Chunker from generic config.
// Config is a map of splitter-specific settings parsed from user config.
type BuilderFunc func(cfg map[string]any) (driven.Chunker, error)

// Registry maps splitter names to their builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]BuilderFunc
}

// NewRegistry creates a new, empty splitter registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// Register adds a builder. A later registration replaces an earlier one.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = builder
}

// Build creates a chunker by name with the given config.
func (r *Registry) Build(name string, cfg map[string]any) (driven.Chunker, error) {
	r.mu.RLock()
	builder, ok := r.builders[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown splitter %q", domain.ErrInvalidInput, name)
	}
	return builder(cfg)
}

// FromSettings builds the chunker selected by the ingestion settings.
func (r *Registry) FromSettings(s domain.IngestionSettings) (driven.Chunker, error) {
	name := s.Splitter
	if name == "" {
		name = domain.SplitterRecursive
	}
	return r.Build(name, map[string]any{
		"chunk_size": s.ChunkSize,
		"overlap":    s.ChunkOverlap,
	})
}

// Has returns true if a splitter with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered splitter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
