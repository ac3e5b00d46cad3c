package probemap

import (
	"fmt"
)

// EntryOf is a key-value pair, used by BatchUpsert and Snapshot.
type EntryOf[K comparable, V any] struct {
	Key   K
	Value V
}

// Snapshot copies the live entries of the current table. Like Range it is
// not a consistent view under concurrent writes.
//
// Every entry's stored hash is checked against the hash of its key. A
// mismatch means the table no longer finds that key, for instance because
// the key hasher is not deterministic, and Snapshot fails with an error
// wrapping ErrConcurrentModification.
func (m *LinearMapOf[K, V]) Snapshot() ([]EntryOf[K, V], error) {
	table := m.table.Load()
	if table == nil {
		return nil, nil
	}
	entries := make([]EntryOf[K, V], 0, table.sumSize())
	for i := range table.slots {
		e := table.slots[i].Load()
		if e == nil || e.state != slotOccupied {
			continue
		}
		if hash := m.keyHash(e.key, m.seed); hash != e.hash {
			return nil, fmt.Errorf("%w: slot %d holds key %v with hash %#x, want %#x",
				ErrConcurrentModification, i, e.key, e.hash, hash)
		}
		entries = append(entries, EntryOf[K, V]{Key: e.key, Value: e.value})
	}
	return entries, nil
}
