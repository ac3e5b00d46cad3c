package probemap

import (
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"
)

const (
	// groupShift sets the number of consecutive home slots sharing one
	// lock word: 1<<groupShift.
	groupShift = 3

	// maxSpins is the number of yielding spins before a waiter sleeps.
	maxSpins = 16
)

// slotGroup guards every key whose home slot falls into its range.
// Replace Mutex with a spinlock to keep one lock word per cache line.
type slotGroup struct {
	state uint32

	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(uint32(0))%CacheLineSize) % CacheLineSize]byte
}

func (g *slotGroup) lock() {
	if atomic.CompareAndSwapUint32(&g.state, 0, 1) {
		return
	}
	g.slowLock()
}

func (g *slotGroup) slowLock() {
	spins := 0
	for !g.tryLock() {
		delay(&spins)
	}
}

func (g *slotGroup) tryLock() bool {
	return atomic.LoadUint32(&g.state) == 0 &&
		atomic.CompareAndSwapUint32(&g.state, 0, 1)
}

// unlock releases the group. The lock has no owner, the resize
// coordinator releases groups frozen by another goroutine.
func (g *slotGroup) unlock() {
	atomic.StoreUint32(&g.state, 0)
}

func (g *slotGroup) locked() bool {
	return atomic.LoadUint32(&g.state) != 0
}

func delay(spins *int) {
	const yieldSleep = 500 * time.Microsecond
	if *spins < maxSpins {
		runtime.Gosched()
		*spins++
	} else {
		// time.Sleep with non-zero duration (Millisecond level) works effectively
		// as backoff under high concurrency.
		time.Sleep(yieldSleep)
		*spins = 0
	}
}
