// Package hashstore persists content fingerprints between builds. It is the
// only cross-build state of the generator.
package hashstore

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Keys for rendered page units. Asset entries use their logical relative path
// as the key directly.
const (
	IndexKey         = "html:index"
	pageKeyFormat    = "html:page:%d"
	articleKeyFormat = "html:article:%s"
)

// PageKey returns the store key for paginated page n (pages start at 2).
func PageKey(n int) string { return fmt.Sprintf(pageKeyFormat, n) }

// ArticleKey returns the store key for an article page.
func ArticleKey(slug string) string { return fmt.Sprintf(articleKeyFormat, slug) }

// Store is a mutable mapping from unit key to its last-known fingerprint,
// loaded once at build start and persisted once at build end. Safe for
// concurrent use by the parallel asset/render stages.
type Store struct {
	mu      sync.RWMutex
	path    string
	entries map[string]string
}

// Load reads the store from path. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	s := &Store{path: path, entries: map[string]string{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read hash store: %w", err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, fmt.Errorf("failed to parse hash store %s: %w", path, err)
	}
	return s, nil
}

// Get returns the stored fingerprint for key and whether it exists.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

// Set records the fingerprint for key.
func (s *Store) Set(key, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = hash
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Save persists the store to its backing file, creating parent directories as
// needed. Called once, after all concurrent mutation is done.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.entries, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal hash store: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create hash store directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write hash store: %w", err)
	}
	return nil
}

// HashBytes returns the short content fingerprint used across the build:
// the first 8 hex chars of the md5 digest.
func HashBytes(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])[:8]
}

// HashString fingerprints a string.
func HashString(s string) string { return HashBytes([]byte(s)) }

// HashFile fingerprints a file's contents.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return HashBytes(data), nil
}
