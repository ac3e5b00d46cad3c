package probemap

import (
	"fmt"
	"iter"
)

// LinearMapView is a read-only view of a LinearMapOf. It reflects later
// writes to the map. Its mutators always fail with ErrUnsupportedOperation.
type LinearMapView[K comparable, V any] struct {
	m *LinearMapOf[K, V]
}

// ReadOnly returns a read-only view of the map.
func (m *LinearMapOf[K, V]) ReadOnly() *LinearMapView[K, V] {
	return &LinearMapView[K, V]{m: m}
}

// Load returns the value stored for key, see LinearMapOf.Load.
func (v *LinearMapView[K, V]) Load(key K) (value V, ok bool) {
	return v.m.Load(key)
}

// HasKey reports whether key is present.
func (v *LinearMapView[K, V]) HasKey(key K) bool {
	return v.m.HasKey(key)
}

// ContainsValue reports whether some key maps to value.
func (v *LinearMapView[K, V]) ContainsValue(value V) bool {
	return v.m.ContainsValue(value)
}

// Size returns the number of live entries.
func (v *LinearMapView[K, V]) Size() int {
	return v.m.Size()
}

// IsZero reports whether the map holds no entries.
func (v *LinearMapView[K, V]) IsZero() bool {
	return v.m.IsZero()
}

// Range calls yield for each entry until it returns false.
func (v *LinearMapView[K, V]) Range(yield func(K, V) bool) {
	v.m.Range(yield)
}

// All returns an iterator over the entries.
func (v *LinearMapView[K, V]) All() iter.Seq2[K, V] {
	return v.m.All()
}

// Keys returns an iterator over the keys.
func (v *LinearMapView[K, V]) Keys() iter.Seq[K] {
	return v.m.Keys()
}

// Values returns an iterator over the values.
func (v *LinearMapView[K, V]) Values() iter.Seq[V] {
	return v.m.Values()
}

// ToMap copies the entries into a new Go map.
func (v *LinearMapView[K, V]) ToMap() map[K]V {
	return v.m.ToMap()
}

// String formats the entries like a Go map.
func (v *LinearMapView[K, V]) String() string {
	return v.m.String()
}

// Snapshot returns a copy of the live entries, see LinearMapOf.Snapshot.
func (v *LinearMapView[K, V]) Snapshot() ([]EntryOf[K, V], error) {
	return v.m.Snapshot()
}

// Store always returns an error wrapping ErrUnsupportedOperation.
func (v *LinearMapView[K, V]) Store(key K, value V) error {
	return fmt.Errorf("%w: store on a read-only view", ErrUnsupportedOperation)
}

// Delete always returns an error wrapping ErrUnsupportedOperation.
func (v *LinearMapView[K, V]) Delete(key K) error {
	return fmt.Errorf("%w: delete on a read-only view", ErrUnsupportedOperation)
}

// Clear always returns an error wrapping ErrUnsupportedOperation.
func (v *LinearMapView[K, V]) Clear() error {
	return fmt.Errorf("%w: clear on a read-only view", ErrUnsupportedOperation)
}
