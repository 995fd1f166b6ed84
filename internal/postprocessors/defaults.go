package postprocessors

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
)

// RegisterDefaults registers the built-in splitters with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(domain.SplitterRecursive, buildRecursive)
	r.Register(domain.SplitterFixed, buildFixed)
}

// NewDefaultRegistry returns a registry with the built-in splitters.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// buildRecursive creates the recursive splitter.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 1000)
//   - overlap (int): Overlapping characters between chunks (default: 200)
func buildRecursive(cfg map[string]any) (driven.Chunker, error) {
	return chunker.New(options(cfg)...), nil
}

// buildFixed creates a splitter that ignores text structure and cuts
// character windows.
func buildFixed(cfg map[string]any) (driven.Chunker, error) {
	opts := append(options(cfg), chunker.WithSeparators(""))
	return chunker.New(opts...), nil
}

func options(cfg map[string]any) []chunker.Option {
	var opts []chunker.Option
	if cfg == nil {
		return opts
	}
	if size, ok := getIntFromConfig(cfg, "chunk_size"); ok && size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap"); ok && overlap >= 0 {
		opts = append(opts, chunker.WithOverlap(overlap))
	}
	return opts
}

// getIntFromConfig extracts an int from a generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	switch v := cfg[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
