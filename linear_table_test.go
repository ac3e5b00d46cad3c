package probemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntry(hash uintptr, key string) *linearEntry[string, int] {
	return &linearEntry[string, int]{hash: hash, key: key, value: len(key), state: slotOccupied}
}

func TestLinearTable_Layout(t *testing.T) {
	t.Logf("CacheLineSize : %d", CacheLineSize)

	table := newLinearTable[string, int](4, 0.75, 8)
	assert.Equal(t, 4, table.capacity())
	assert.Equal(t, uintptr(3), table.mask)
	assert.Len(t, table.groups, 1)
	assert.Len(t, table.size, 1)
	assert.Equal(t, int64(3), table.growThreshold)

	table = newLinearTable[string, int](1<<16, 0.75, 8)
	assert.Len(t, table.groups, 1<<13)
	assert.Len(t, table.size, 8)
	assert.Equal(t, 8, table.chunks)
	assert.Equal(t, 1<<13, table.chunkSize)
}

func TestLinearTable_Budget(t *testing.T) {
	table := newLinearTable[string, int](4, 0.75, 1)
	assert.True(t, table.takeBudget())
	assert.True(t, table.takeBudget())
	assert.False(t, table.takeBudget(), "a third slot reaches the threshold")
	assert.Equal(t, int64(2), table.used.Load())
	table.releaseBudget()
	assert.True(t, table.takeBudget())
}

func TestLinearTable_LocateAndReserve(t *testing.T) {
	table := newLinearTable[string, int](8, 0.75, 1)
	a, b, c := newTestEntry(6, "a"), newTestEntry(6, "b"), newTestEntry(7, "c")
	require.True(t, table.place(a))
	require.True(t, table.place(b))
	require.True(t, table.place(c))

	// the run 6, 7, 0 wraps past the end
	for idx, e := range map[int]*linearEntry[string, int]{6: a, 7: b, 0: c} {
		assert.Same(t, e, table.slots[idx].Load())
	}

	key := "c"
	idx, e := table.locate(7, &key)
	assert.Equal(t, 0, idx)
	assert.Same(t, c, e)

	key = "d"
	idx, e = table.locate(6, &key)
	assert.Equal(t, -1, idx)
	assert.Nil(t, e)

	idx, e = table.reserve(6, &key)
	assert.Equal(t, 1, idx, "first empty slot after the run")
	assert.Nil(t, e)

	table.removeAt(7, b)
	key = "c"
	idx, e = table.locate(7, &key)
	assert.Equal(t, 0, idx, "tombstones do not end a run")
	assert.Same(t, c, e)

	// c is found behind the tombstone, it must not be reinserted
	idx, e = table.reserve(7, &key)
	assert.Equal(t, 0, idx)
	assert.Same(t, c, e)

	key = "d"
	idx, e = table.reserve(6, &key)
	assert.Equal(t, 7, idx, "the tombstone is reused")
	require.NotNil(t, e)
	assert.Equal(t, slotTombstone, e.state)
	assert.Equal(t, uintptr(6), e.hash, "tombstones keep the hash")
}

func TestLinearTable_Claim(t *testing.T) {
	table := newLinearTable[string, int](8, 0.75, 1)
	key := "a"
	idx, cur := table.reserve(2, &key)
	require.True(t, table.claim(idx, cur, newTestEntry(2, key)))
	assert.Equal(t, 1, table.sumSize())
	assert.Equal(t, int64(1), table.used.Load())

	// another key took the reserved slot, claim moves on
	key = "b"
	idx, cur = table.reserve(2, &key)
	require.Equal(t, 3, idx)
	table.slots[3].Store(newTestEntry(3, "x"))
	require.True(t, table.claim(idx, cur, newTestEntry(2, key)))
	assert.Equal(t, "b", table.slots[4].Load().key)
	assert.Equal(t, int64(2), table.used.Load())

	// reusing a tombstone takes no budget
	table.removeAt(2, table.slots[2].Load())
	key = "c"
	idx, cur = table.reserve(2, &key)
	require.Equal(t, 2, idx)
	require.True(t, table.claim(idx, cur, newTestEntry(2, key)))
	assert.Equal(t, int64(2), table.used.Load())

	// the budget is exhausted at used 5 of threshold 6
	table.used.Store(5)
	key = "d"
	idx, cur = table.reserve(2, &key)
	assert.False(t, table.claim(idx, cur, newTestEntry(2, key)))
	assert.Equal(t, int64(5), table.used.Load())
}

func TestLinearTable_FreezeUnfreeze(t *testing.T) {
	table := newLinearTable[string, int](64, 0.75, 1)
	table.freeze()
	for i := range table.groups {
		assert.True(t, table.groups[i].locked())
		assert.False(t, table.groups[i].tryLock())
	}
	table.unfreeze()
	for i := range table.groups {
		assert.False(t, table.groups[i].locked())
	}
	g := table.group(9)
	assert.Same(t, &table.groups[1], g)
	g.lock()
	assert.False(t, g.tryLock())
	g.unlock()
	assert.True(t, g.tryLock())
	g.unlock()
}

func TestCopyLinearSlots(t *testing.T) {
	table := newLinearTable[string, int](8, 0.75, 1)
	for i, k := range []string{"a", "b", "c", "d"} {
		require.True(t, table.place(newTestEntry(uintptr(i*3), k)))
	}
	table.removeAt(3, table.slots[3].Load())

	dest := newLinearTable[string, int](16, 0.75, 1)
	dropped := copyLinearSlots(table, 0, table.capacity(), dest)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 3, dest.sumSize())
	assert.Equal(t, int64(3), dest.used.Load())
	for _, k := range []string{"a", "c", "d"} {
		found := false
		for i := range dest.slots {
			if e := dest.slots[i].Load(); e != nil && e.key == k {
				found = true
			}
		}
		assert.True(t, found, "key %q", k)
	}
}

func TestCalcParallelism(t *testing.T) {
	chunkSize, chunks := calcParallelism(100, minSlotsPerGoroutine, 8)
	assert.Equal(t, 100, chunkSize)
	assert.Equal(t, 1, chunks)

	chunkSize, chunks = calcParallelism(4096, minSlotsPerGoroutine, 4)
	assert.Equal(t, 1024, chunkSize)
	assert.Equal(t, 4, chunks)
}

func TestSlotState_String(t *testing.T) {
	assert.Equal(t, "empty", slotEmpty.String())
	assert.Equal(t, "occupied", slotOccupied.String())
	assert.Equal(t, "tombstone", slotTombstone.String())
	assert.Equal(t, "grow", growHint.String())
	assert.Equal(t, "clear", clearHint.String())
	assert.Equal(t, "update", UpdateOp.String())
	assert.Equal(t, "ComputeOp(7)", ComputeOp(7).String())
}
