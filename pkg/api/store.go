// pkg/api/store.go
package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/si0411/tourextract/internal/tour"
)

// Store holds the dataset served by the API. Reloads swap the whole
// dataset; a failed reload keeps serving the previous one.
type Store struct {
	path string

	mu       sync.RWMutex
	ds       *tour.Dataset
	loadedAt time.Time
	lastErr  error
}

// NewStore creates a store for the dataset file at path. Nothing is read
// until Load.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the dataset file.
func (s *Store) Path() string { return s.path }

// Load reads the dataset file.
func (s *Store) Load() error {
	ds, err := tour.LoadDataset(s.path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = fmt.Errorf("failed to load %s: %w", s.path, err)
		return s.lastErr
	}
	s.ds = ds
	s.loadedAt = time.Now()
	s.lastErr = nil
	return nil
}

// Dataset returns the current dataset, or nil before the first
// successful load.
func (s *Store) Dataset() *tour.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds
}

// Status reports when the dataset was loaded and the last reload error.
func (s *Store) Status() (loadedAt time.Time, lastErr error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt, s.lastErr
}
