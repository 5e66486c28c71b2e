package inmemstate

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/schoolnotes/gradesync/storage/state"
)

var errSetFailed = errors.New("state write failed")

// Store is the in-memory test double for state.Store.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]byte

	FailSet bool // force Set errors
}

var _ state.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{entries: make(map[string][]byte)}
}

func (s *Store) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	if !ok {
		return nil, state.ErrNotFound
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, nil
}

func (s *Store) Set(key string, value []byte) error {
	if s.FailSet {
		return errSetFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	s.entries[key] = cp
	return nil
}
