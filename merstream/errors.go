package merstream

import (
	"errors"
	"fmt"
)

// Sentinel errors covering the ways a MerStreamFile can fail to build,
// load, or seek.
var (
	// ErrCorruptArchive is returned when the magic fails to match or a
	// short read occurs inside the header.
	ErrCorruptArchive = errors.New("merstream: corrupt archive")

	// ErrOutOfRange is returned when SeekToMer targets a mer index
	// outside [0, numMers).
	ErrOutOfRange = errors.New("merstream: mer index out of range")

	// ErrUnsupported is returned by a SequenceSource's Rewind when it
	// cannot honor the request (e.g. reading from a pipe), and by any
	// Reader method called after a prior ErrCorruptArchive.
	ErrUnsupported = errors.New("merstream: unsupported operation")

	// errInvalidated marks a Reader as unusable after ErrCorruptArchive
	// has been observed once: once the archive is known corrupt, every
	// later call returns ErrUnsupported (wrapped as errInvalidated) rather
	// than retrying.
	errInvalidated = fmt.Errorf("merstream: reader invalidated by a prior corrupt-archive error: %w", ErrUnsupported)
)
