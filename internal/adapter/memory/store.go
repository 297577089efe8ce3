// Package memory keeps the last published value of every field in memory.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/weather-bom-service/internal/domain"
)

// Entry is one published value. Value holds a float64 or a string.
type Entry struct {
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a last-write-wins domain.Publisher safe for concurrent readers.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry
	writes  uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]Entry)}
}

func (s *Store) PublishNumber(name string, value float64) {
	s.put(name, value)
}

func (s *Store) PublishText(name string, value string) {
	s.put(name, value)
}

func (s *Store) put(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = Entry{Value: value, UpdatedAt: domain.Clock().Now().UTC()}
	s.writes++
}

// Number returns a published numeric value.
func (s *Store) Number(name string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[name].Value.(float64)
	return v, ok
}

// Text returns a published string value.
func (s *Store) Text(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[name].Value.(string)
	return v, ok
}

// Snapshot copies every published value.
func (s *Store) Snapshot() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Names lists published field names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.entries))
	for k := range s.entries {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Writes counts every publish call, including overwrites.
func (s *Store) Writes() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
