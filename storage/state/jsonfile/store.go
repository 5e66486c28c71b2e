package jsonfilestate

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/schoolnotes/gradesync/storage/state"
)

// Store keeps each state entry as its own JSON document under dir. Writes go
// through a temp file plus rename so a crash mid-write leaves the previous
// document intact.
type Store struct {
	mu  sync.Mutex
	dir string
}

var _ state.Store = (*Store)(nil)

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating state dir")
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, state.ErrNotFound
		}
		return nil, errors.Wrapf(err, "reading state entry %q", key)
	}
	return data, nil
}

func (s *Store) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*")
	if err != nil {
		return errors.Wrapf(err, "creating temp file for %q", key)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "writing state entry %q", key)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "closing state entry %q", key)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return errors.Wrapf(err, "committing state entry %q", key)
	}
	committed = true
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
