package dataset

import (
	"sync"
	"time"
)

// Store holds the currently served dataset.
//
// Swap replaces the whole dataset; readers never observe a partial update.
// Callers must treat the Dataset returned by Load as read-only.
//
// Thread Safety: All methods are safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	data     Dataset
	runID    string
	loadedAt time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: Dataset{}}
}

// Load returns the current dataset and the ID of the import run that produced it.
func (s *Store) Load() (Dataset, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data, s.runID
}

// Swap installs a new dataset produced by the given run.
func (s *Store) Swap(d Dataset, runID string) {
	if d == nil {
		d = Dataset{}
	}
	s.mu.Lock()
	s.data = d
	s.runID = runID
	s.loadedAt = time.Now().UTC()
	s.mu.Unlock()
}

// LoadedAt returns when the current dataset was installed (zero if never).
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}
