package bitio

import "errors"

// Sentinel errors for bit-level I/O failures. Callers should use
// errors.Is against these values; underlying causes (I/O failures) are
// wrapped with github.com/pkg/errors by the higher-level packages that
// embed a bitio.Writer/Reader.
var (
	// ErrInvalidWidth is returned when a bit width outside [1, 64] is
	// requested of PutBits/GetBits.
	ErrInvalidWidth = errors.New("bitio: width must be in [1, 64]")

	// ErrUnexpectedEnd is returned when a read runs past the end of the
	// available bit stream.
	ErrUnexpectedEnd = errors.New("bitio: unexpected end of bit stream")

	// ErrOutOfRange is returned when Seek targets a bit offset beyond the
	// stream's known length.
	ErrOutOfRange = errors.New("bitio: seek offset out of range")
)
