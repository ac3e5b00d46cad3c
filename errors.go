package probemap

import "errors"

var (
	// ErrInvalidArgument is reported for nil keys and invalid configuration.
	ErrInvalidArgument = errors.New("probemap: invalid argument")

	// ErrUnsupportedOperation is reported by operations a map profile
	// knowingly does not implement, such as mutators of a read-only view,
	// or value comparisons when no value equality is available.
	ErrUnsupportedOperation = errors.New("probemap: unsupported operation")

	// ErrConcurrentModification is only reported by Snapshot, when the
	// internal bookkeeping is inconsistent enough that not even a
	// best-effort snapshot can be produced.
	ErrConcurrentModification = errors.New("probemap: concurrent modification observed")

	// ErrResourceExhausted is reported when the table would have to grow
	// past its maximum capacity. The insert that needed the growth fails.
	ErrResourceExhausted = errors.New("probemap: resource exhausted")
)
