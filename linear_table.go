package probemap

import (
	"sync/atomic"
	"unsafe"
)

const (
	// minSlotsPerGoroutine defines the minimum table size required to trigger parallel migration.
	// Smaller tables are copied by a single goroutine.
	minSlotsPerGoroutine = 256
)

type slotState uint8

const (
	slotEmpty slotState = iota
	slotOccupied
	slotTombstone
)

func (s slotState) String() string {
	switch s {
	case slotOccupied:
		return "occupied"
	case slotTombstone:
		return "tombstone"
	default:
		return "empty"
	}
}

// linearEntry is the immutable content of an occupied or tombstoned slot.
// Empty slots hold no entry. Publishing a new entry is the only way a slot
// changes, so readers always observe hash, key and value together.
type linearEntry[K comparable, V any] struct {
	hash  uintptr
	key   K
	value V
	state slotState
}

func newTombstone[K comparable, V any](hash uintptr) *linearEntry[K, V] {
	return &linearEntry[K, V]{hash: hash, state: slotTombstone}
}

// counterStripe represents a striped counter to reduce contention.
type counterStripe struct {
	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(struct {
		c uintptr
	}{})%CacheLineSize) % CacheLineSize]byte
	c uintptr // Counter value, accessed atomically
}

// linearTable is one slot array together with its locks and counters.
// A table is replaced wholesale on growth and never resized in place.
type linearTable[K comparable, V any] struct {
	slots  []atomic.Pointer[linearEntry[K, V]]
	mask   uintptr
	groups []slotGroup
	// striped counter for number of occupied slots
	size []counterStripe
	// number of occupied plus tombstoned slots, the load factor budget
	used atomic.Int64
	// inserts into empty slots keep used below growThreshold
	growThreshold int64
	// number of chunks and chunks size for migration
	chunks    int
	chunkSize int
}

func newLinearTable[K comparable, V any](tableLen int, loadFactor float64, cpus int) *linearTable[K, V] {
	chunkSize, chunks := calcParallelism(tableLen, minSlotsPerGoroutine, cpus)
	return &linearTable[K, V]{
		slots:         make([]atomic.Pointer[linearEntry[K, V]], tableLen),
		mask:          uintptr(tableLen - 1),
		groups:        make([]slotGroup, max(1, tableLen>>groupShift)),
		size:          make([]counterStripe, calcSizeLen(tableLen, cpus)),
		growThreshold: int64(float64(tableLen) * loadFactor),
		chunks:        chunks,
		chunkSize:     chunkSize,
	}
}

// calcParallelism calculates the number of goroutines for parallel processing.
//
// Parameters:
//   - items: Number of items to process.
//   - threshold: Minimum threshold to enable parallel processing.
//   - number of available CPU cores
//
// Returns:
//   - chunks: Suggested degree of parallelism (number of goroutines).
//   - chunkSize: Number of items processed per goroutine
func calcParallelism(items, threshold, cpus int) (chunkSize, chunks int) {
	if items <= threshold {
		return items, 1
	}
	chunks = min(items/threshold, cpus)
	chunkSize = (items + chunks - 1) / chunks
	return chunkSize, chunks
}

// calcSizeLen computes the size count for the table
// return value must be a power of 2
func calcSizeLen(tableLen, cpus int) int {
	return nextPowOf2(min(cpus, tableLen>>10))
}

func (t *linearTable[K, V]) capacity() int {
	return len(t.slots)
}

// group returns the lock owning the home slot idx.
func (t *linearTable[K, V]) group(idx uintptr) *slotGroup {
	return &t.groups[(idx>>groupShift)&uintptr(len(t.groups)-1)]
}

// addSize atomically adds delta to the size counter for the given slot index.
func (t *linearTable[K, V]) addSize(idx uintptr, delta int) {
	cidx := uintptr(len(t.size)-1) & idx
	atomic.AddUintptr(&t.size[cidx].c, uintptr(delta))
}

// sumSize calculates the total number of entries in the table by summing all counter stripes.
func (t *linearTable[K, V]) sumSize() int {
	var sum uintptr
	for i := range t.size {
		sum += atomic.LoadUintptr(&t.size[i].c)
	}
	return int(sum)
}

// isZero checks if the table is empty by verifying the sum of counter stripes is zero.
// Single stripes may wrap below zero when inserts and removals land on different stripes.
func (t *linearTable[K, V]) isZero() bool {
	return t.sumSize() == 0
}

// takeBudget reserves room for one more non-empty slot. It fails when the
// insert would bring the table to its grow threshold.
func (t *linearTable[K, V]) takeBudget() bool {
	if t.used.Add(1) >= t.growThreshold {
		t.used.Add(-1)
		return false
	}
	return true
}

func (t *linearTable[K, V]) releaseBudget() {
	t.used.Add(-1)
}

// freeze acquires every group lock in index order. Mutators finish their
// in-flight operation first; once frozen, nothing writes to the table.
func (t *linearTable[K, V]) freeze() {
	for i := range t.groups {
		t.groups[i].lock()
	}
}

func (t *linearTable[K, V]) unfreeze() {
	for i := range t.groups {
		t.groups[i].unlock()
	}
}
