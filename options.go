package probemap

import (
	"fmt"
	"log/slog"
	"math/bits"
)

const (
	// defaultCapacity is the number of slots of a new table.
	defaultCapacity = 64
	// defaultLoadFactor is the fraction of occupied plus tombstoned slots
	// that triggers a table growth before the next insert.
	defaultLoadFactor = 0.75
	// defaultMaxCapacity bounds table growth. Tables never grow past it.
	defaultMaxCapacity = 1 << (bits.UintSize - 4)
)

// MapConfig defines configurable LinearMapOf options.
type MapConfig struct {
	capacity    int
	sizeHint    int
	loadFactor  float64
	maxCapacity int
	logger      *slog.Logger
}

// WithCapacity configures the initial number of slots. The capacity must
// be a positive power of two, otherwise NewLinearMapOf panics with an
// error wrapping ErrInvalidArgument.
func WithCapacity(capacity int) func(*MapConfig) {
	return func(c *MapConfig) {
		c.capacity = capacity
	}
}

// WithPresize configures new LinearMapOf instance with capacity enough
// to hold sizeHint entries without growing. If sizeHint is zero or
// negative, the value is ignored.
func WithPresize(sizeHint int) func(*MapConfig) {
	return func(c *MapConfig) {
		c.sizeHint = sizeHint
	}
}

// WithLoadFactor configures the growth threshold, a fraction in (0, 1) of
// the capacity. Tombstones count towards it.
func WithLoadFactor(loadFactor float64) func(*MapConfig) {
	return func(c *MapConfig) {
		c.loadFactor = loadFactor
	}
}

// WithMaxCapacity limits the number of slots the table may grow to.
// Inserts that would need a larger table fail with ErrResourceExhausted.
func WithMaxCapacity(maxCapacity int) func(*MapConfig) {
	return func(c *MapConfig) {
		c.maxCapacity = maxCapacity
	}
}

// WithLogger sets the logger used for resize and clear events.
// By default nothing is logged.
func WithLogger(logger *slog.Logger) func(*MapConfig) {
	return func(c *MapConfig) {
		c.logger = logger
	}
}

func newMapConfig(options ...func(*MapConfig)) *MapConfig {
	c := &MapConfig{
		capacity:    defaultCapacity,
		loadFactor:  defaultLoadFactor,
		maxCapacity: defaultMaxCapacity,
	}
	for _, o := range options {
		o(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

func (c *MapConfig) validate() error {
	if !isPowOf2(c.capacity) {
		return fmt.Errorf("%w: capacity %d is not a positive power of two", ErrInvalidArgument, c.capacity)
	}
	if !(c.loadFactor > 0 && c.loadFactor < 1) {
		return fmt.Errorf("%w: load factor %v is not in range (0, 1)", ErrInvalidArgument, c.loadFactor)
	}
	if !isPowOf2(c.maxCapacity) {
		return fmt.Errorf("%w: max capacity %d is not a positive power of two", ErrInvalidArgument, c.maxCapacity)
	}
	if c.maxCapacity < c.capacity {
		return fmt.Errorf("%w: max capacity %d is below capacity %d", ErrInvalidArgument, c.maxCapacity, c.capacity)
	}
	return nil
}

// tableLen returns the initial capacity, taking the size hint into account.
func (c *MapConfig) tableLen() int {
	tableLen := c.capacity
	if c.sizeHint > 0 {
		// the grow threshold must stay above the hint
		tableLen = max(tableLen, nextPowOf2(int(float64(c.sizeHint+1)/c.loadFactor)+1))
	}
	return min(tableLen, c.maxCapacity)
}

func isPowOf2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// nextPowOf2 calculates the smallest power of 2 that is greater than or equal to n.
func nextPowOf2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
