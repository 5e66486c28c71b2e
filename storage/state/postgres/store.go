package pgstate

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/schoolnotes/gradesync/storage/state"
)

// Store persists state entries in the app_state table.
type Store struct {
	db *sqlx.DB
}

var _ state.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

func (s *Store) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.Get(&value, "SELECT value FROM app_state WHERE key = $1", key)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, state.ErrNotFound
		}
		return nil, errors.Wrapf(err, "reading state entry %q", key)
	}
	return value, nil
}

func (s *Store) Set(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO app_state (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	return errors.Wrapf(err, "writing state entry %q", key)
}
