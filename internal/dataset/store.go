package dataset

import (
	"sync"

	"github.com/a-delannoy/yaani/internal/source"
)

// Store is the per-run memoization cache: one evaluated collection per
// dataset name. The executor guarantees each entry is written exactly
// once; consumers only read entries of datasets that already completed.
type Store struct {
	mu      sync.RWMutex
	results map[string][]source.Record
}

// NewStore returns an empty result store.
func NewStore() *Store {
	return &Store{results: make(map[string][]source.Record)}
}

// Set records a dataset's evaluated collection.
func (s *Store) Set(name string, records []source.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[name] = records
}

// Get returns the evaluated collection of a dataset.
func (s *Store) Get(name string) ([]source.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.results[name]
	return records, ok
}
