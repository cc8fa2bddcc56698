package bitio

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// flushWords bounds how much of the in-progress word buffer Writer keeps
// resident before pushing completed words out to the sink. Chosen to keep
// a single flush a reasonably sized write without making every PutBits
// call touch the sink.
const flushWords = 4096

// Writer packs variable-width unsigned integers into an append-only
// stream of 64-bit words. If constructed with a non-nil sink, completed
// words are written out under flush pressure; Finish must be called to
// push the final (possibly partial, zero-padded) word.
//
// A Writer created with NewMemWriter has no sink and never flushes;
// Words returns the accumulated buffer directly. This is the mode
// positiondb and merstream use for structures that live entirely in
// memory.
type Writer struct {
	sink         io.Writer
	buf          []uint64
	bitPos       uint64
	flushedWords uint64
}

// NewWriter returns a Writer that flushes completed words to sink.
func NewWriter(sink io.Writer) *Writer {
	return &Writer{sink: sink}
}

// NewMemWriter returns a Writer with no backing sink; all words stay
// resident in Words.
func NewMemWriter() *Writer {
	return &Writer{}
}

func (w *Writer) localBitPos() uint64 {
	return w.bitPos - w.flushedWords*64
}

func (w *Writer) ensureLocalWords(n int) {
	for len(w.buf) < n {
		w.buf = append(w.buf, 0)
	}
}

// PutBits appends the low width bits of value to the stream.
func (w *Writer) PutBits(value uint64, width uint) error {
	if width == 0 || width > 64 {
		return errors.Wrapf(ErrInvalidWidth, "bitio.Writer.PutBits width=%d", width)
	}
	local := w.localBitPos()
	neededWords := int((local + uint64(width) + 63) / 64)
	w.ensureLocalWords(neededWords)
	PutBitsAt(w.buf, local, width, value)
	w.bitPos += uint64(width)

	if w.sink != nil && len(w.buf) > flushWords {
		return w.Flush()
	}
	return nil
}

// PutNumber appends value using a self-delimiting Elias-gamma code: the
// bit length of value+1, encoded in unary via leading zero bits
// terminated by a 1, followed by the remaining bits of value+1. The code
// is prefix-free and needs no external context to decode.
func (w *Writer) PutNumber(value uint64) error {
	v1 := value + 1
	bits := bitLength(v1)
	for i := 0; i < bits-1; i++ {
		if err := w.PutBits(0, 1); err != nil {
			return err
		}
	}
	return w.PutBits(v1, uint(bits))
}

func bitLength(v uint64) int {
	n := 0
	for v > 0 {
		n++
		v >>= 1
	}
	if n == 0 {
		n = 1
	}
	return n
}

// TellBitOffset returns the number of bits written so far.
func (w *Writer) TellBitOffset() uint64 {
	return w.bitPos
}

// Flush pushes all completed words (every word but the one currently
// being filled) to the sink. It is a no-op for a sinkless Writer.
func (w *Writer) Flush() error {
	if w.sink == nil || len(w.buf) <= 1 {
		return nil
	}
	toWrite := w.buf[:len(w.buf)-1]
	if err := writeWords(w.sink, toWrite); err != nil {
		return err
	}
	w.flushedWords += uint64(len(toWrite))
	remainder := w.buf[len(w.buf)-1]
	w.buf = []uint64{remainder}
	return nil
}

// Finish flushes every remaining word, including the final partial word
// (its unused trailing bits are zero-filled). After Finish the Writer
// must not be used for further writes.
func (w *Writer) Finish() error {
	if w.sink == nil {
		return nil
	}
	if err := writeWords(w.sink, w.buf); err != nil {
		return err
	}
	w.flushedWords += uint64(len(w.buf))
	w.buf = nil
	return nil
}

// Words returns the full word buffer accumulated so far. It is only
// meaningful for a sinkless (NewMemWriter) Writer; a Writer with a sink
// may have already flushed earlier words out.
func (w *Writer) Words() []uint64 {
	return w.buf
}

// WriteWords writes words to w as big-endian 64-bit values, the same
// wire format Writer's sink receives. Exposed so callers that build an
// archive from several independently-accumulated in-memory Writers (as
// merstream does for its block index and payload regions) can compose
// the final file themselves.
func WriteWords(w io.Writer, words []uint64) error {
	return writeWords(w, words)
}

func writeWords(sink io.Writer, words []uint64) error {
	buf := make([]byte, 8*len(words))
	for i, word := range words {
		binary.BigEndian.PutUint64(buf[i*8:], word)
	}
	if _, err := sink.Write(buf); err != nil {
		return errors.Wrap(err, "bitio.Writer: storage error")
	}
	return nil
}
