package grades

import (
	"encoding/json"
	"sort"

	"github.com/pkg/errors"

	"github.com/schoolnotes/gradesync/core/portal"
	"github.com/schoolnotes/gradesync/storage/state"
)

// CompletionLedger maps a score ID to the user's completion flag.
// Absent means not yet classified.
type CompletionLedger map[int]bool

// Seed classifies freshly loaded assignments: anything graded is complete
// (a score means the work came in), and "Not Turned In" rows default to
// incomplete unless the user already toggled them. Everything else is left
// to explicit user toggles.
func (l CompletionLedger) Seed(assignments []portal.Assignment) (changed bool) {
	for _, a := range assignments {
		if a.Graded() {
			if done, ok := l[a.ScoreID]; !ok || !done {
				l[a.ScoreID] = true
				changed = true
			}
		} else if a.NotTurnedIn() {
			if _, ok := l[a.ScoreID]; !ok {
				l[a.ScoreID] = false
				changed = true
			}
		}
	}
	return changed
}

func (l CompletionLedger) Set(scoreID int, done bool) {
	l[scoreID] = done
}

// NotifiedSet is the dedup ledger: score IDs that already triggered a
// notification. It only ever grows; there is no eviction, matching the
// account-lifetime scope of score IDs.
type NotifiedSet map[int]struct{}

func (s NotifiedSet) Contains(scoreID int) bool {
	_, ok := s[scoreID]
	return ok
}

func (s NotifiedSet) Add(scoreID int) {
	s[scoreID] = struct{}{}
}

// Persistence. The completion ledger encodes as a JSON object, the notified
// set as a sorted JSON array, both byte-compatible with the mobile client.

func loadCompletion(store state.Store) (CompletionLedger, error) {
	data, err := store.Get(state.KeyCompletion)
	if err != nil {
		if errors.Cause(err) == state.ErrNotFound {
			return CompletionLedger{}, nil
		}
		return nil, errors.Wrap(err, "loading completion ledger")
	}
	ledger := CompletionLedger{}
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, errors.Wrap(err, "decoding completion ledger")
	}
	return ledger, nil
}

func saveCompletion(store state.Store, ledger CompletionLedger) error {
	data, err := json.Marshal(ledger)
	if err != nil {
		return errors.Wrap(err, "encoding completion ledger")
	}
	return errors.Wrap(store.Set(state.KeyCompletion, data), "saving completion ledger")
}

func loadNotified(store state.Store) (NotifiedSet, error) {
	data, err := store.Get(state.KeyNotified)
	if err != nil {
		if errors.Cause(err) == state.ErrNotFound {
			return NotifiedSet{}, nil
		}
		return nil, errors.Wrap(err, "loading notified ledger")
	}
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, errors.Wrap(err, "decoding notified ledger")
	}
	set := make(NotifiedSet, len(ids))
	for _, id := range ids {
		set.Add(id)
	}
	return set, nil
}

func saveNotified(store state.Store, set NotifiedSet) error {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	data, err := json.Marshal(ids)
	if err != nil {
		return errors.Wrap(err, "encoding notified ledger")
	}
	return errors.Wrap(store.Set(state.KeyNotified, data), "saving notified ledger")
}

func loadSession(store state.Store) (portal.Snapshot, error) {
	var snap portal.Snapshot
	data, err := store.Get(state.KeySession)
	if err != nil {
		return snap, errors.Wrap(err, "loading session snapshot")
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return portal.Snapshot{}, errors.Wrap(err, "decoding session snapshot")
	}
	return snap, nil
}

func saveSession(store state.Store, snap portal.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encoding session snapshot")
	}
	return errors.Wrap(store.Set(state.KeySession, data), "saving session snapshot")
}
