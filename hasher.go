package probemap

import (
	"hash/maphash"
	"reflect"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/constraints"
)

// hashPrime is the 64-bit Golden Ratio mixing constant.
const hashPrime = 0x9E3779B185EBCA87

type (
	hashFunc[K comparable] func(key K, seed uintptr) uintptr
	equalFunc[V any]       func(val, val2 V) bool
)

// comparableSeed seeds the fallback hasher for key types without a fast path.
var comparableSeed = maphash.MakeSeed()

// IntegerHasher returns a key hasher for integer keys, usable with
// NewLinearMapOfWithHasher. Sequential keys are spread over the whole
// table instead of forming one long probe run.
func IntegerHasher[K constraints.Integer]() func(key K, seed uintptr) uintptr {
	return func(key K, seed uintptr) uintptr {
		return mixInteger(uint64(key), seed)
	}
}

// StringHasher returns the xxhash based key hasher used by default for
// string keys. The seed enters the digest state, so keys colliding under
// one seed are spread apart under another.
func StringHasher() func(key string, seed uintptr) uintptr {
	return func(key string, seed uintptr) uintptr {
		var d xxhash.Digest
		d.ResetWithSeed(uint64(seed))
		_, _ = d.WriteString(key)
		return uintptr(d.Sum64())
	}
}

func mixInteger(v uint64, seed uintptr) uintptr {
	h := (v ^ uint64(seed)) * hashPrime
	return uintptr(h ^ h>>32)
}

// defaultHasher picks a hasher by the key's dynamic type. Named types and
// composite keys fall back to maphash.Comparable.
func defaultHasher[K comparable]() hashFunc[K] {
	switch any(*new(K)).(type) {
	case string:
		hs := StringHasher()
		return func(key K, seed uintptr) uintptr {
			return hs(*(*string)(unsafe.Pointer(&key)), seed)
		}
	case int:
		return integerKeyHasher[K, int]()
	case int8:
		return integerKeyHasher[K, int8]()
	case int16:
		return integerKeyHasher[K, int16]()
	case int32:
		return integerKeyHasher[K, int32]()
	case int64:
		return integerKeyHasher[K, int64]()
	case uint:
		return integerKeyHasher[K, uint]()
	case uint8:
		return integerKeyHasher[K, uint8]()
	case uint16:
		return integerKeyHasher[K, uint16]()
	case uint32:
		return integerKeyHasher[K, uint32]()
	case uint64:
		return integerKeyHasher[K, uint64]()
	case uintptr:
		return integerKeyHasher[K, uintptr]()
	default:
		return func(key K, seed uintptr) uintptr {
			return uintptr(maphash.Comparable(comparableSeed, key)) ^ seed
		}
	}
}

func integerKeyHasher[K comparable, I constraints.Integer]() hashFunc[K] {
	hs := IntegerHasher[I]()
	return func(key K, seed uintptr) uintptr {
		return hs(*(*I)(unsafe.Pointer(&key)), seed)
	}
}

// defaultValEqual returns == for comparable value types and nil otherwise.
func defaultValEqual[V any]() equalFunc[V] {
	if !reflect.TypeFor[V]().Comparable() {
		return nil
	}
	return func(val, val2 V) bool {
		return any(val) == any(val2)
	}
}

// nilKeyCheck returns a predicate reporting nil keys, or nil when the key
// type cannot hold nil.
func nilKeyCheck[K comparable]() func(key *K) bool {
	switch reflect.TypeFor[K]().Kind() {
	case reflect.Interface:
		return func(key *K) bool {
			return any(*key) == nil
		}
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return func(key *K) bool {
			return reflect.ValueOf(key).Elem().IsNil()
		}
	default:
		return nil
	}
}
