package probemap

// Probe runs start at hash&mask and step by one slot, wrapping past the
// last slot back to slot zero. A run ends at the first empty slot: inserts
// never skip an empty slot and removals leave tombstones, so a key can not
// live behind one. Every scan visits at most capacity slots.

// locate returns the index and entry of the occupied slot holding key, or
// -1 and nil if the run ends first. It takes no locks.
func (t *linearTable[K, V]) locate(hash uintptr, key *K) (int, *linearEntry[K, V]) {
	mask := t.mask
	idx := hash & mask
	for n := uintptr(0); n <= mask; n++ {
		e := t.slots[idx].Load()
		if e == nil {
			return -1, nil
		}
		if e.state == slotOccupied && e.hash == hash && e.key == *key {
			return int(idx), e
		}
		idx = (idx + 1) & mask
	}
	return -1, nil
}

// reserve returns the slot an operation on key must use, together with
// the entry it holds. A live duplicate is returned as is. Otherwise it is
// the first tombstone of the run, or the empty slot ending the run. The
// scan always runs up to that empty slot before reusing a tombstone, so no
// live duplicate can hide further down. It returns -1 only if the table
// has neither an empty slot nor a tombstone.
//
// The caller must hold the group lock of the key's home slot.
func (t *linearTable[K, V]) reserve(hash uintptr, key *K) (int, *linearEntry[K, V]) {
	mask := t.mask
	idx := hash & mask
	reuse, reuseEntry := -1, (*linearEntry[K, V])(nil)
	for n := uintptr(0); n <= mask; n++ {
		e := t.slots[idx].Load()
		if e == nil {
			if reuse >= 0 {
				return reuse, reuseEntry
			}
			return int(idx), nil
		}
		switch {
		case e.state == slotTombstone:
			if reuse < 0 {
				reuse, reuseEntry = int(idx), e
			}
		case e.hash == hash && e.key == *key:
			return int(idx), e
		}
		idx = (idx + 1) & mask
	}
	return reuse, reuseEntry
}

// removeAt replaces the occupied entry at idx with a tombstone keeping its
// hash. The caller must hold the group lock of the key's home slot.
func (t *linearTable[K, V]) removeAt(idx int, e *linearEntry[K, V]) {
	t.slots[idx].Store(newTombstone[K, V](e.hash))
	t.addSize(e.hash&t.mask, -1)
}

// place claims the first empty slot of the entry's run. It is used while
// migrating into a table no mutator can see yet, where the only competitors
// are other migrating goroutines and every key is unique.
func (t *linearTable[K, V]) place(e *linearEntry[K, V]) bool {
	mask := t.mask
	idx := e.hash & mask
	for n := uintptr(0); n <= mask; n++ {
		if t.slots[idx].Load() == nil && t.slots[idx].CompareAndSwap(nil, e) {
			return true
		}
		idx = (idx + 1) & mask
	}
	return false
}

// claim publishes e at idx, the slot returned by reserve for a key with no
// live entry. Claiming an empty slot takes load factor budget, reusing a
// tombstone does not. When another key wins the slot first the run is
// scanned again. It reports false when the table must grow first.
//
// The caller must hold the group lock of the key's home slot.
func (t *linearTable[K, V]) claim(idx int, cur, e *linearEntry[K, V]) bool {
	for {
		if cur == nil && (idx < 0 || !t.takeBudget()) {
			return false
		}
		if t.slots[idx].CompareAndSwap(cur, e) {
			t.addSize(e.hash&t.mask, 1)
			return true
		}
		if cur == nil {
			t.releaseBudget()
		}
		idx, cur = t.reserve(e.hash, &e.key)
	}
}
