package probemap

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

type resizeHint int

const (
	growHint  resizeHint = 0
	clearHint resizeHint = 1
)

func (h resizeHint) String() string {
	if h == clearHint {
		return "clear"
	}
	return "grow"
}

// linearResizeState represents the current state of a resizing operation.
// Installing one in LinearMapOf.resizeState is what elects the coordinator.
type linearResizeState[K comparable, V any] struct {
	wg        sync.WaitGroup
	table     *linearTable[K, V]
	newTable  atomic.Pointer[linearTable[K, V]]
	process   atomic.Int32
	completed atomic.Int32
	dropped   atomic.Int64 // tombstones not carried over
}

// grow makes sure table is no longer the current table, either by growing
// it or by waiting for the resize already in progress.
func (m *LinearMapOf[K, V]) grow(table *linearTable[K, V]) error {
	_, rs, err := m.tryResize(table, growHint)
	if err != nil {
		return err
	}
	if rs != nil {
		m.helpCopyAndWait(rs)
	}
	return nil
}

// tryResize starts a resize of table and reports whether this call carried
// it out. If another resize is running it returns that resize for the
// caller to help with.
func (m *LinearMapOf[K, V]) tryResize(
	table *linearTable[K, V],
	hint resizeHint,
) (bool, *linearResizeState[K, V], error) {
	rs := m.resizeState.Load()
	if rs != nil {
		return false, rs, nil
	}

	rs = new(linearResizeState[K, V])
	rs.wg.Add(1)
	rs.table = table

	// Try to set resizeState, if successful it means we've acquired the "lock"
	if !m.resizeState.CompareAndSwap(nil, rs) {
		return false, m.resizeState.Load(), nil
	}

	// The table may have been swapped before we got the "lock".
	if m.table.Load() != table {
		m.resizeState.Store(nil)
		rs.wg.Done()
		return false, nil, nil
	}

	newTableLen := m.minTableLen
	if hint == growHint {
		// At the maximum capacity the table is rebuilt at the same size, which
		// only makes room when tombstones are dropped.
		newTableLen = table.capacity()
		if newTableLen < m.maxCapacity {
			newTableLen <<= 1
		} else if live := int64(table.sumSize()); live+1 >= table.growThreshold {
			m.resizeState.Store(nil)
			rs.wg.Done()
			m.logger.Warn("probemap: table can not grow",
				"capacity", newTableLen,
				"max_capacity", m.maxCapacity,
				"live", live)
			return false, nil, fmt.Errorf("%w: capacity %d reached the maximum %d",
				ErrResourceExhausted, newTableLen, m.maxCapacity)
		}
	}

	newTable := newLinearTable[K, V](newTableLen, m.loadFactor, runtime.GOMAXPROCS(0))
	table.freeze()

	if hint == clearHint {
		m.table.Store(newTable)
		m.resizeState.Store(nil)
		table.unfreeze()
		rs.wg.Done()
		m.logger.Debug("probemap: table cleared", "capacity", newTableLen)
		return true, nil, nil
	}

	rs.newTable.Store(newTable)
	m.helpCopyAndWait(rs)
	return true, nil, nil
}

// helpCopyAndWait migrates chunks of the frozen table until none is left,
// then waits for the cutover.
func (m *LinearMapOf[K, V]) helpCopyAndWait(rs *linearResizeState[K, V]) {
	newTable := rs.newTable.Load()
	if newTable == nil {
		// the coordinator is still freezing the table
		rs.wg.Wait()
		return
	}
	table := rs.table
	tableLen := table.capacity()
	chunks := int32(table.chunks)
	chunkSize := table.chunkSize
	for {
		process := rs.process.Add(1)
		if process > chunks {
			// wait copying completed
			rs.wg.Wait()
			return
		}
		process--
		start := int(process) * chunkSize
		end := min(start+chunkSize, tableLen)
		rs.dropped.Add(int64(copyLinearSlots(table, start, end, newTable)))
		if rs.completed.Add(1) == chunks {
			// copying completed
			m.table.Store(newTable)
			m.totalGrowths.Add(1)
			m.resizeState.Store(nil)
			table.unfreeze()
			rs.wg.Done()
			m.logger.Debug("probemap: table grew",
				"old_capacity", tableLen,
				"new_capacity", newTable.capacity(),
				"live", newTable.sumSize(),
				"dropped_tombstones", rs.dropped.Load())
			return
		}
	}
}

// copyLinearSlots re-inserts the occupied slots in [start, end) of a frozen
// table into destTable and returns the number of dropped tombstones.
// Entries are immutable, so the same entry pointers are reused.
func copyLinearSlots[K comparable, V any](
	table *linearTable[K, V],
	start, end int,
	destTable *linearTable[K, V],
) (dropped int) {
	copied := 0
	for i := start; i < end; i++ {
		e := table.slots[i].Load()
		if e == nil {
			continue
		}
		if e.state == slotTombstone {
			dropped++
			continue
		}
		if !destTable.place(e) {
			// the destination is twice as large as a table that was never full
			panic("probemap: no free slot while migrating")
		}
		destTable.addSize(e.hash&destTable.mask, 1)
		copied++
	}
	if copied != 0 {
		destTable.used.Add(int64(copied))
	}
	return dropped
}
