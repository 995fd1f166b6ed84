package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// DefaultDirName is the directory under the user's home holding config,
// prompts and data.
const DefaultDirName = ".sercha-rag"

const configFileName = "config.toml"

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings as dotted keys ("llm.provider") in memory and
// persists them as TOML tables ([llm] provider = ...).
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	values   map[string]any
}

// NewConfigStore opens config.toml inside configDir, creating the directory
// when needed. An empty configDir resolves to ~/.sercha-rag.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		configDir = filepath.Join(home, DefaultDirName)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, configFileName),
		values:   make(map[string]any),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the raw value stored under key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.values[key]
	return val, ok
}

// GetString returns key as a string, or "" when absent or not a string.
func (s *ConfigStore) GetString(key string) string {
	str, _ := lookup[string](s, key)
	return str
}

// GetInt returns key as an int. TOML decodes integers as int64 and a value
// written as 3.0 still reads as 3.
func (s *ConfigStore) GetInt(key string) int {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// GetBool returns key as a bool.
func (s *ConfigStore) GetBool(key string) bool {
	b, _ := lookup[bool](s, key)
	return b
}

// GetStringSlice returns key as a list of strings; non-string items are dropped.
func (s *ConfigStore) GetStringSlice(key string) []string {
	val, ok := s.Get(key)
	if !ok {
		return nil
	}
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Set stores value under key and writes the file.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return s.write()
}

// Save writes the current values to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write()
}

// Load replaces the in-memory values with the file contents. A missing file
// leaves the store empty.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		s.values = make(map[string]any)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.filePath, err)
	}

	var tables map[string]any
	if err := toml.Unmarshal(data, &tables); err != nil {
		return fmt.Errorf("parse %s: %w", s.filePath, err)
	}
	s.values = flatten(tables, "", make(map[string]any))
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// write replaces the file through a temp file in the same directory so a
// crash never leaves a truncated config. Caller holds mu.
func (s *ConfigStore) write() error {
	data, err := toml.Marshal(nest(s.values))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), configFileName+".*")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp.Name(), s.filePath)
}

func lookup[T any](s *ConfigStore, key string) (T, bool) {
	var zero T
	val, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := val.(T)
	return typed, ok
}

// flatten turns {"llm": {"model": "x"}} into {"llm.model": "x"}.
func flatten(tables map[string]any, prefix string, out map[string]any) map[string]any {
	for key, value := range tables {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flatten(nested, key, out)
			continue
		}
		out[key] = value
	}
	return out
}

// nest is the inverse of flatten. Keys are visited in sorted order so a
// scalar and a table under the same prefix resolve the same way every time:
// the table wins and the scalar is dropped.
func nest(values map[string]any) map[string]any {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := make(map[string]any)
	for _, key := range keys {
		parts := strings.Split(key, ".")
		table := root
		for _, part := range parts[:len(parts)-1] {
			next, ok := table[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				table[part] = next
			}
			table = next
		}
		leaf := parts[len(parts)-1]
		if _, isTable := table[leaf].(map[string]any); isTable {
			continue
		}
		table[leaf] = values[key]
	}
	return root
}
