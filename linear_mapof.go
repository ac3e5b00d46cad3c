package probemap

import (
	"fmt"
	"iter"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"strings"
	"sync/atomic"
)

// LinearMapOf is a concurrent hash map resolving collisions by linear
// probing over a single power-of-two slot array.
//
// Design:
//   - Every slot holds an atomic pointer to an immutable entry. Readers
//     never lock and always see hash, key and value of the same write.
//   - Writers lock the group of 8 slots owning the key's home slot, so all
//     writes of one key are serialized. Free slots are claimed with CAS,
//     because the run of a key may cross into slots of other groups.
//   - Removal leaves a tombstone. Tombstones are reused by later inserts of
//     the same run and dropped when the table grows.
//   - Growth doubles the table online. The old table is frozen, then copied
//     in parallel by every goroutine that runs into the resize, and finally
//     replaced in one atomic store.
//
// Notes:
//   - The zero value is ready to use with the default configuration.
//   - A LinearMapOf must not be copied after first use.
type LinearMapOf[K comparable, V any] struct {
	_            noCopy
	table        atomic.Pointer[linearTable[K, V]]
	resizeState  atomic.Pointer[linearResizeState[K, V]]
	totalGrowths atomic.Uint32
	seed         uintptr
	keyHash      hashFunc[K]
	valEqual     equalFunc[V]
	isNilKey     func(key *K) bool
	loadFactor   float64
	maxCapacity  int
	minTableLen  int
	logger       *slog.Logger
}

// NewLinearMapOf creates a new LinearMapOf instance. Invalid options
// panic with an error wrapping ErrInvalidArgument.
//
// Options:
//   - WithCapacity: initial number of slots
//   - WithPresize: room for a number of entries without growing
//   - WithLoadFactor: growth threshold
//   - WithMaxCapacity: growth ceiling
//   - WithLogger: resize and clear events
func NewLinearMapOf[K comparable, V any](options ...func(*MapConfig)) *LinearMapOf[K, V] {
	return NewLinearMapOfWithHasher[K, V](nil, nil, options...)
}

// NewLinearMapOfWithHasher creates a new LinearMapOf instance with a
// custom key hasher and value equality. Nil arguments keep the defaults.
func NewLinearMapOfWithHasher[K comparable, V any](
	keyHash func(key K, seed uintptr) uintptr,
	valEqual func(val, val2 V) bool,
	options ...func(*MapConfig),
) *LinearMapOf[K, V] {
	m := &LinearMapOf[K, V]{}
	m.Init(keyHash, valEqual, options...)
	return m
}

// Init the LinearMapOf, allows custom key hasher (keyHash)
// and value equality (valEqual) functions for compare-and-swap operations
//
// Parameters:
//   - keyHash: nil uses the built-in hasher
//   - valEqual: nil uses the built-in comparison, but if the value is not of a comparable type,
//     using the Compare series of functions will cause a panic
//
// Notes:
//   - This function is not thread-safe and can only be used before the LinearMapOf is utilized.
//   - If this function is not called, LinearMapOf will use the default configuration.
func (m *LinearMapOf[K, V]) Init(
	keyHash func(key K, seed uintptr) uintptr,
	valEqual func(val, val2 V) bool,
	options ...func(*MapConfig),
) {
	if _, err := m.init(keyHash, valEqual, options...); err != nil {
		panic(err)
	}
}

func (m *LinearMapOf[K, V]) init(
	keyHash hashFunc[K],
	valEqual equalFunc[V],
	options ...func(*MapConfig),
) (*linearTable[K, V], error) {
	c := newMapConfig(options...)
	if err := c.validate(); err != nil {
		return nil, err
	}

	m.seed = uintptr(rand.Uint64())
	m.keyHash = defaultHasher[K]()
	if keyHash != nil {
		m.keyHash = keyHash
	}
	m.valEqual = defaultValEqual[V]()
	if valEqual != nil {
		m.valEqual = valEqual
	}
	m.isNilKey = nilKeyCheck[K]()
	m.loadFactor = c.loadFactor
	m.maxCapacity = c.maxCapacity
	m.minTableLen = c.tableLen()
	m.logger = c.logger

	table := newLinearTable[K, V](m.minTableLen, m.loadFactor, runtime.GOMAXPROCS(0))
	m.table.Store(table)
	return table, nil
}

// initSlow may be called concurrently by multiple goroutines, so it requires
// synchronization with a "lock" mechanism.
func (m *LinearMapOf[K, V]) initSlow() *linearTable[K, V] {
	rs := m.resizeState.Load()
	if rs != nil {
		rs.wg.Wait()
		// Now the table should be initialized
		return m.table.Load()
	}

	rs = new(linearResizeState[K, V])
	rs.wg.Add(1)

	if !m.resizeState.CompareAndSwap(nil, rs) {
		// Another goroutine is initializing, wait for it to complete
		if rs = m.resizeState.Load(); rs != nil {
			rs.wg.Wait()
		}
		return m.table.Load()
	}

	// Although the table is always changed when resizeState is not nil,
	// it might have been changed before that.
	table := m.table.Load()
	if table == nil {
		// the default configuration is always valid
		table, _ = m.init(nil, nil)
	}
	m.resizeState.Store(nil)
	rs.wg.Done()
	return table
}

func (m *LinearMapOf[K, V]) checkKey(key *K) error {
	return checkKeyWith(m.isNilKey, key)
}

func checkKeyWith[K comparable](isNilKey func(key *K) bool, key *K) error {
	if isNilKey != nil && isNilKey(key) {
		return fmt.Errorf("%w: nil key", ErrInvalidArgument)
	}
	return nil
}

func (m *LinearMapOf[K, V]) mustCheckKey(key *K) {
	if err := m.checkKey(key); err != nil {
		panic(err)
	}
}

func (m *LinearMapOf[K, V]) mustValEqual() equalFunc[V] {
	if m.valEqual == nil {
		panic(fmt.Errorf("%w: value type is not comparable and no equality was configured",
			ErrUnsupportedOperation))
	}
	return m.valEqual
}

// Load retrieves a value for a key, compatible with `sync.Map`.
// It never blocks, also not during a resize.
func (m *LinearMapOf[K, V]) Load(key K) (value V, ok bool) {
	table := m.table.Load()
	if table == nil {
		// not initialized yet, the predicate is derived from K alone
		if err := checkKeyWith(nilKeyCheck[K](), &key); err != nil {
			panic(err)
		}
		return
	}
	m.mustCheckKey(&key)
	if _, e := table.locate(m.keyHash(key, m.seed), &key); e != nil {
		return e.value, true
	}
	return
}

// HasKey to check if the key exist
func (m *LinearMapOf[K, V]) HasKey(key K) bool {
	_, ok := m.Load(key)
	return ok
}

type ComputeOp int

const (
	// CancelOp signals to Process to not do anything as a result
	// of executing the lambda. If the entry was not present in
	// the map, nothing happens, and if it was present, the
	// returned value is ignored.
	CancelOp ComputeOp = iota
	// UpdateOp signals to Process to update the entry to the
	// value returned by the lambda, creating it if necessary.
	UpdateOp
	// DeleteOp signals to Process to always delete the entry
	// from the map.
	DeleteOp
)

func (op ComputeOp) String() string {
	switch op {
	case CancelOp:
		return "cancel"
	case UpdateOp:
		return "update"
	case DeleteOp:
		return "delete"
	default:
		return fmt.Sprintf("ComputeOp(%d)", int(op))
	}
}

// process is the single write path of the map. fn runs while the key's
// slot group is locked and may run again if the table must grow before
// its result can be committed.
func (m *LinearMapOf[K, V]) process(
	key K,
	fn func(old V, loaded bool) (V, ComputeOp, V, bool),
) (V, bool, error) {
	table := m.table.Load()
	if table == nil {
		table = m.initSlow()
	}
	if err := m.checkKey(&key); err != nil {
		return *new(V), false, err
	}
	hash := m.keyHash(key, m.seed)

	for {
		// If a resize is in progress, help finish it
		if rs := m.resizeState.Load(); rs != nil {
			m.helpCopyAndWait(rs)
			table = m.table.Load()
			continue
		}

		g := table.group(hash & table.mask)
		g.lock()

		// The table may have been swapped while waiting for the lock
		if newTable := m.table.Load(); table != newTable {
			g.unlock()
			table = newTable
			continue
		}

		idx, cur := table.reserve(hash, &key)
		loaded := cur != nil && cur.state == slotOccupied
		var oldValue V
		if loaded {
			oldValue = cur.value
		}
		newValue, op, value, status := fn(oldValue, loaded)

		switch op {
		case UpdateOp:
			e := &linearEntry[K, V]{hash: hash, key: key, value: newValue, state: slotOccupied}
			if loaded {
				table.slots[idx].Store(e)
				g.unlock()
				return value, status, nil
			}
			if table.claim(idx, cur, e) {
				g.unlock()
				return value, status, nil
			}
			g.unlock()
			if err := m.grow(table); err != nil {
				return *new(V), false, err
			}
			table = m.table.Load()
		case DeleteOp:
			if loaded {
				table.removeAt(idx, cur)
			}
			g.unlock()
			return value, status, nil
		default:
			g.unlock()
			return value, status, nil
		}
	}
}

// Process applies a compute-style update to the map entry for the given key.
// The function fn receives the current value (if any) and whether the key exists,
// and returns the new value, operation type, result value, and status.
//
// Operation types:
//   - CancelOp: no change is made
//   - UpdateOp: upsert the new value
//   - DeleteOp: delete the key if present
//
// This operation is performed under a slot group lock for consistency.
// fn must not call back into the map, and it may be called more than once
// when an insert has to wait for the table to grow.
func (m *LinearMapOf[K, V]) Process(
	key K,
	fn func(old V, loaded bool) (V, ComputeOp, V, bool),
) (V, bool) {
	value, status, err := m.process(key, fn)
	if err != nil {
		panic(err)
	}
	return value, status
}

// Store sets the value for a key, compatible with `sync.Map`.
func (m *LinearMapOf[K, V]) Store(key K, value V) {
	m.Swap(key, value)
}

// Swap stores a key-value pair and returns the previous value if any,
// compatible with `sync.Map`.
//
// It panics with an error wrapping ErrResourceExhausted when the table
// would have to grow past its maximum capacity, see TryStore.
func (m *LinearMapOf[K, V]) Swap(key K, value V) (previous V, loaded bool) {
	previous, loaded, err := m.TryStore(key, value)
	if err != nil {
		panic(err)
	}
	return previous, loaded
}

// TryStore is Swap reporting failures as errors: ErrInvalidArgument for a
// nil key and ErrResourceExhausted when the table can not grow.
func (m *LinearMapOf[K, V]) TryStore(key K, value V) (previous V, loaded bool, err error) {
	return m.process(key, func(old V, loaded bool) (V, ComputeOp, V, bool) {
		return value, UpdateOp, old, loaded
	})
}

// LoadOrStore returns the existing value for the key if present.
// Otherwise, it stores and returns the given value.
// The loaded result is true if the value was loaded, false if stored.
//
// Compatible with `sync.Map`.
func (m *LinearMapOf[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	if actual, loaded = m.Load(key); loaded {
		return actual, loaded
	}
	return m.Process(key, func(old V, loaded bool) (V, ComputeOp, V, bool) {
		if loaded {
			return old, CancelOp, old, true
		}
		return value, UpdateOp, value, false
	})
}

// Replace stores value only if the key is present and returns the
// replaced value.
func (m *LinearMapOf[K, V]) Replace(key K, value V) (previous V, replaced bool) {
	if _, ok := m.Load(key); !ok {
		return
	}
	return m.Process(key, func(old V, loaded bool) (V, ComputeOp, V, bool) {
		if !loaded {
			return old, CancelOp, old, false
		}
		return value, UpdateOp, old, true
	})
}

// CompareAndSwap atomically replaces an existing value with a new value
// if the existing value matches the expected value, compatible with `sync.Map`.
//
// It panics with ErrUnsupportedOperation if V is not comparable and no
// value equality was configured.
func (m *LinearMapOf[K, V]) CompareAndSwap(key K, old V, new V) (swapped bool) {
	equal := m.mustValEqual()
	if v, ok := m.Load(key); !ok || !equal(v, old) {
		return false
	}
	_, swapped = m.Process(key, func(cur V, loaded bool) (V, ComputeOp, V, bool) {
		if !loaded || !equal(cur, old) {
			return cur, CancelOp, cur, false
		}
		return new, UpdateOp, new, true
	})
	return swapped
}

// CompareAndDelete atomically deletes an existing entry
// if its value matches the expected value, compatible with `sync.Map`.
func (m *LinearMapOf[K, V]) CompareAndDelete(key K, old V) (deleted bool) {
	equal := m.mustValEqual()
	if v, ok := m.Load(key); !ok || !equal(v, old) {
		return false
	}
	_, deleted = m.Process(key, func(cur V, loaded bool) (V, ComputeOp, V, bool) {
		if !loaded || !equal(cur, old) {
			return cur, CancelOp, cur, false
		}
		return cur, DeleteOp, cur, true
	})
	return deleted
}

// LoadAndDelete retrieves the value for a key and deletes it from the map.
// Compatible with `sync.Map`.
func (m *LinearMapOf[K, V]) LoadAndDelete(key K) (value V, loaded bool) {
	if _, ok := m.Load(key); !ok {
		return
	}
	return m.Process(key, func(old V, loaded bool) (V, ComputeOp, V, bool) {
		return old, DeleteOp, old, loaded
	})
}

// Delete deletes the value for a key, compatible with `sync.Map`.
func (m *LinearMapOf[K, V]) Delete(key K) {
	m.LoadAndDelete(key)
}

// ContainsValue reports whether some key maps to value. It scans every
// slot of the table, O(capacity).
func (m *LinearMapOf[K, V]) ContainsValue(value V) bool {
	equal := m.mustValEqual()
	found := false
	m.Range(func(_ K, v V) bool {
		found = equal(v, value)
		return !found
	})
	return found
}

// Clear compatible with `sync.Map`
// Entries stored concurrently with Clear may or may not survive it.
func (m *LinearMapOf[K, V]) Clear() {
	for {
		table := m.table.Load()
		if table == nil {
			return
		}
		ok, rs, _ := m.tryResize(table, clearHint)
		if ok {
			return
		}
		if rs != nil {
			m.helpCopyAndWait(rs)
		}
	}
}

// Range calls yield sequentially for each key and value present in the map.
// If yield returns false, range stops the iteration.
//
// Notes:
//   - The iteration directly traverses the slot array.
//     The data is not guaranteed to be real-time but provides eventual consistency.
//     In extreme cases, the same value may be traversed twice
//     (if it gets deleted and re-added later during iteration).
//   - Compatible with `sync.Map`.
func (m *LinearMapOf[K, V]) Range(yield func(key K, value V) bool) {
	table := m.table.Load()
	if table == nil {
		return
	}
	for i := range table.slots {
		if e := table.slots[i].Load(); e != nil && e.state == slotOccupied {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

// All compatible with `sync.Map`.
func (m *LinearMapOf[K, V]) All() iter.Seq2[K, V] {
	return m.Range
}

// Keys is the iterator version for iterating over all keys.
func (m *LinearMapOf[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		m.Range(func(key K, _ V) bool {
			return yield(key)
		})
	}
}

// Values is the iterator version for iterating over all values.
func (m *LinearMapOf[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		m.Range(func(_ K, value V) bool {
			return yield(value)
		})
	}
}

// Size returns the number of key-value pairs in the map.
// This is an O(1) operation.
//
// Compatible with `xsync.MapOf`.
func (m *LinearMapOf[K, V]) Size() int {
	table := m.table.Load()
	if table == nil {
		return 0
	}
	return table.sumSize()
}

// IsZero checks zero values, faster than Size().
func (m *LinearMapOf[K, V]) IsZero() bool {
	table := m.table.Load()
	if table == nil {
		return true
	}
	return table.isZero()
}

// Capacity returns the number of slots of the current table.
func (m *LinearMapOf[K, V]) Capacity() int {
	table := m.table.Load()
	if table == nil {
		return 0
	}
	return table.capacity()
}

// ToMap collect all entries and return a map[K]V
func (m *LinearMapOf[K, V]) ToMap() map[K]V {
	a := make(map[K]V, m.Size())
	m.Range(func(key K, value V) bool {
		a[key] = value
		return true
	})
	return a
}

// ToMapWithLimit collect up to limit entries into a map[K]V, limit < 0 is no limit
func (m *LinearMapOf[K, V]) ToMapWithLimit(limit int) map[K]V {
	if limit == 0 {
		return map[K]V{}
	}
	if limit < 0 {
		limit = math.MaxInt
	}
	a := make(map[K]V, min(m.Size(), limit))
	m.Range(func(key K, value V) bool {
		a[key] = value
		limit--
		return limit > 0
	})
	return a
}

// String implement the formatting output interface fmt.Stringer
func (m *LinearMapOf[K, V]) String() string {
	const limit = 1024
	return strings.Replace(fmt.Sprint(m.ToMapWithLimit(limit)), "map[", "LinearMapOf[", 1)
}

// FromMap imports key-value pairs from a standard Go map.
// Each pair is stored on its own, the import as a whole is not atomic.
func (m *LinearMapOf[K, V]) FromMap(source map[K]V) {
	for k, v := range source {
		m.Store(k, v)
	}
}

// BatchUpsert batch updates or inserts multiple key-value pairs, returning previous values
//
// Parameters:
//   - entries: slice of key-value pairs to upsert
//
// Returns:
//   - previous: slice of previous values for each key
//   - loaded: slice of booleans indicating whether each key existed before
func (m *LinearMapOf[K, V]) BatchUpsert(entries []EntryOf[K, V]) (previous []V, loaded []bool) {
	previous = make([]V, len(entries))
	loaded = make([]bool, len(entries))
	for i := range entries {
		previous[i], loaded[i] = m.Swap(entries[i].Key, entries[i].Value)
	}
	return previous, loaded
}

// noCopy may be added to structs which must not be copied
// after the first use. See go vet's copylocks check.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
