package state

import "github.com/pkg/errors"

// Storage keys, kept byte-compatible with the mobile client's entries so a
// migrated data directory keeps working.
const (
	KeyCompletion = "assignmentInfo"
	KeyNotified   = "notifiedAssignments"
	KeySession    = "sessionSnapshot"
	KeySettings   = "settings"
)

var ErrNotFound = errors.New("state entry not found")

// Store is durable key-value persistence for the sync engine's state
// entries. Set must be atomic per key: a crashed write may lose the update
// but never corrupt the previous value.
type Store interface {
	Get(key string) ([]byte, error) // ErrNotFound when the key was never set
	Set(key string, value []byte) error
}
