package probemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapConfig_Defaults(t *testing.T) {
	c := newMapConfig()
	require.NoError(t, c.validate())
	assert.Equal(t, defaultCapacity, c.capacity)
	assert.Equal(t, defaultLoadFactor, c.loadFactor)
	assert.Equal(t, defaultMaxCapacity, c.maxCapacity)
	assert.NotNil(t, c.logger)
	assert.Equal(t, defaultCapacity, c.tableLen())
}

func TestMapConfig_TableLen(t *testing.T) {
	tests := []struct {
		name    string
		options []func(*MapConfig)
		want    int
	}{
		{"capacity", []func(*MapConfig){WithCapacity(8)}, 8},
		{"presize below capacity", []func(*MapConfig){WithPresize(10)}, 64},
		{"presize", []func(*MapConfig){WithPresize(100)}, 256},
		{"presize at half load", []func(*MapConfig){WithPresize(100), WithLoadFactor(0.5)}, 256},
		{"presize capped", []func(*MapConfig){WithPresize(1000), WithMaxCapacity(128)}, 128},
		{"negative presize", []func(*MapConfig){WithCapacity(4), WithPresize(-1)}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newMapConfig(tt.options...)
			require.NoError(t, c.validate())
			assert.Equal(t, tt.want, c.tableLen())
		})
	}
}

func TestMapConfig_Validate(t *testing.T) {
	for name, options := range map[string][]func(*MapConfig){
		"capacity not a power of two": {WithCapacity(12)},
		"negative capacity":           {WithCapacity(-4)},
		"load factor above one":       {WithLoadFactor(1.5)},
		"negative load factor":        {WithLoadFactor(-0.5)},
		"max capacity below capacity": {WithCapacity(64), WithMaxCapacity(32)},
		"max capacity not a power":    {WithMaxCapacity(100)},
	} {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, newMapConfig(options...).validate(), ErrInvalidArgument)
		})
	}
}

func TestNextPowOf2(t *testing.T) {
	for n, want := range map[int]int{-1: 1, 0: 1, 1: 1, 2: 2, 3: 4, 64: 64, 65: 128, 1000: 1024} {
		assert.Equal(t, want, nextPowOf2(n), "n=%d", n)
	}
	assert.True(t, isPowOf2(1))
	assert.True(t, isPowOf2(1024))
	assert.False(t, isPowOf2(0))
	assert.False(t, isPowOf2(6))
}
