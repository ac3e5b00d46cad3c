package probemap

import (
	"testing"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
)

type userID int

func TestDefaultHasher_Deterministic(t *testing.T) {
	const seed = 0x1234
	hs := defaultHasher[string]()
	assert.Equal(t, hs("probe", seed), hs("probe", seed))
	assert.NotEqual(t, hs("probe", seed), hs("probe", seed+1))
	assert.Equal(t, StringHasher()("probe", seed), hs("probe", seed))

	hi := defaultHasher[int]()
	assert.Equal(t, IntegerHasher[int]()(42, seed), hi(42, seed))

	hu := defaultHasher[userID]()
	assert.Equal(t, hu(7, seed), hu(7, seed))

	hk := defaultHasher[structKey]()
	k := structKey{Service: 1, Instance: 2}
	assert.Equal(t, hk(k, seed), hk(k, seed))
}

func TestStringHasher_SeedsDigest(t *testing.T) {
	hs := StringHasher()
	for _, seed := range []uintptr{0, 1, 0x9e3779b9} {
		d := xxhash.NewWithSeed(uint64(seed))
		_, _ = d.WriteString("service-1")
		assert.Equal(t, uintptr(d.Sum64()), hs("service-1", seed), "seed %#x", seed)
	}

	// an xor applied after hashing would leave the difference between two
	// keys the same under every seed
	const s1, s2 = 0x1234, 0x5678
	assert.NotEqual(t,
		hs("a", s1)^hs("a", s2),
		hs("b", s1)^hs("b", s2),
	)
}

func TestIntegerHasher_SpreadsSequentialKeys(t *testing.T) {
	const mask = 63
	hs := IntegerHasher[uint32]()
	hashes := make(map[uintptr]struct{})
	homes := make(map[uintptr]struct{})
	for i := range uint32(64) {
		h := hs(i, 0)
		hashes[h] = struct{}{}
		homes[h&mask] = struct{}{}
	}
	assert.Len(t, hashes, 64)
	assert.Greater(t, len(homes), 16)
}

func TestDefaultValEqual(t *testing.T) {
	eq := defaultValEqual[int]()
	if assert.NotNil(t, eq) {
		assert.True(t, eq(1, 1))
		assert.False(t, eq(1, 2))
	}
	assert.Nil(t, defaultValEqual[[]int]())
	assert.Nil(t, defaultValEqual[map[string]int]())
}

func TestNilKeyCheck(t *testing.T) {
	assert.Nil(t, nilKeyCheck[int]())
	assert.Nil(t, nilKeyCheck[string]())

	isNilPtr := nilKeyCheck[*int]()
	var p *int
	assert.True(t, isNilPtr(&p))
	p = new(int)
	assert.False(t, isNilPtr(&p))

	isNilAny := nilKeyCheck[any]()
	var a any
	assert.True(t, isNilAny(&a))
	a = 0
	assert.False(t, isNilAny(&a))

	isNilChan := nilKeyCheck[chan int]()
	var c chan int
	assert.True(t, isNilChan(&c))

	isNilUnsafe := nilKeyCheck[unsafe.Pointer]()
	var u unsafe.Pointer
	assert.True(t, isNilUnsafe(&u))
}
