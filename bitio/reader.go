package bitio

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Reader provides random-read access to a packed word stream of known
// bit length, matching whatever a Writer with the same word layout
// produced.
type Reader struct {
	words     []uint64
	totalBits uint64
	bitPos    uint64
}

// NewReader wraps an in-memory word slice holding totalBits valid bits
// (the trailing bits of the final word beyond totalBits are ignored).
func NewReader(words []uint64, totalBits uint64) *Reader {
	return &Reader{words: words, totalBits: totalBits}
}

// ReadAllWords reads every big-endian 64-bit word from r and returns a
// Reader over them holding totalBits valid bits. Used when the packed
// region is small enough, or important enough for random access, to load
// in full (merstream's payload and block-index regions, positiondb's
// on-disk mirror).
func ReadAllWords(r io.Reader, totalBits uint64) (*Reader, error) {
	numWords := WordsNeeded(totalBits)
	buf := make([]byte, 8*numWords)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "bitio.ReadAllWords: storage error")
	}
	words := make([]uint64, numWords)
	for i := range words {
		words[i] = binary.BigEndian.Uint64(buf[i*8:])
	}
	return NewReader(words, totalBits), nil
}

// GetBits reads width bits starting at the current position and advances
// the position by width bits.
func (r *Reader) GetBits(width uint) (uint64, error) {
	if width == 0 || width > 64 {
		return 0, errors.Wrapf(ErrInvalidWidth, "bitio.Reader.GetBits width=%d", width)
	}
	if r.bitPos+uint64(width) > r.totalBits {
		return 0, ErrUnexpectedEnd
	}
	v := GetBitsAt(r.words, r.bitPos, width)
	r.bitPos += uint64(width)
	return v, nil
}

// GetNumber decodes a value written by Writer.PutNumber.
func (r *Reader) GetNumber() (uint64, error) {
	zeros := 0
	for {
		bit, err := r.GetBits(1)
		if err != nil {
			return 0, err
		}
		if bit == 1 {
			break
		}
		zeros++
		if zeros > 63 {
			return 0, errors.New("bitio: corrupt self-delimiting number (too many leading zeros)")
		}
	}
	if zeros == 0 {
		return 0, nil // v1 == 1, value == 0
	}
	rest, err := r.GetBits(uint(zeros))
	if err != nil {
		return 0, err
	}
	v1 := (uint64(1) << uint(zeros)) | rest
	return v1 - 1, nil
}

// TellBitOffset returns the reader's current bit position.
func (r *Reader) TellBitOffset() uint64 {
	return r.bitPos
}

// Seek positions the reader so the next read starts at bitOffset.
func (r *Reader) Seek(bitOffset uint64) error {
	if bitOffset > r.totalBits {
		return ErrOutOfRange
	}
	r.bitPos = bitOffset
	return nil
}
