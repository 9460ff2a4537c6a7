// Package memory provides in-memory repository implementations.
// Documents are kept as JSON strings in a key/value Store, the same shape the sqlite
// adapter persists, so both adapters round-trip records identically.
package memory

import (
	"sort"
	"strings"
	"sync"
)

// Store is a thread-safe string key/value map.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// String returns the value for key, or "" when unset.
func (s *Store) String(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

// SetString stores value under key.
func (s *Store) SetString(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// RemoveValue deletes key.
func (s *Store) RemoveValue(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Keys returns the sorted keys starting with prefix.
func (s *Store) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
