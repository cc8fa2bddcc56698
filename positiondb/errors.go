package positiondb

import "errors"

// Sentinel errors covering the ways a build or a query can fail.
var (
	// ErrInvalidInput is returned for malformed Params (K or TableBits
	// out of range, TableBits >= 2*K).
	ErrInvalidInput = errors.New("positiondb: invalid input")

	// ErrUnsupported is returned when a Stream cannot Rewind, which
	// Build requires for its second pass.
	ErrUnsupported = errors.New("positiondb: unsupported operation")

	// ErrCorruptInternalState is returned when a build invariant is
	// violated: after the fill pass, a bucket's fill cursor has not
	// reached the bucket's end offset.
	ErrCorruptInternalState = errors.New("positiondb: corrupt internal state")

	// ErrCorruptArchive is returned when ReadDBFrom encounters a
	// malformed on-disk mirror.
	ErrCorruptArchive = errors.New("positiondb: corrupt archive")
)
