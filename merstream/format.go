package merstream

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// magic identifies a MerStreamFile on disk.
var magic = [16]byte{'m', 'e', 'r', 'S', 't', 'r', 'e', 'a', 'm', '1', ' ', ' ', ' ', ' ', ' ', ' '}

// header is the fixed-size MerStreamFile prologue: the 16-byte magic, a
// duplicated merSize (kept for word alignment), four counts, three
// region byte-sizes, and three region bit-offsets. Every field is a
// fixed-width 4- or 8-byte quantity, so the struct is naturally a
// multiple of 64 bits (104 bytes = 13 words) without extra padding
// logic.
type header struct {
	MerSize       uint32
	merSizeDup    uint32
	NumMers       uint64
	NumBlocks     uint64
	NumDefs       uint64
	DefLength     uint64
	BlockRegion   uint64 // bytes
	StreamRegion  uint64 // bytes
	DeflineRegion uint64 // bytes
	BlockStart    uint64 // bit offset, from start of file
	StreamStart   uint64 // bit offset, from start of file
	DeflineStart  uint64 // bit offset, from start of file
}

const headerSize = 16 + 4 + 4 + 8*4 + 8*3 + 8*3 // == 104 bytes

func writeHeader(w io.Writer, h header) error {
	if _, err := w.Write(magic[:]); err != nil {
		return errors.Wrap(err, "merstream: write magic")
	}
	fields := []interface{}{
		h.MerSize, h.MerSize, // duplicated field, see header doc comment
		h.NumMers, h.NumBlocks, h.NumDefs, h.DefLength,
		h.BlockRegion, h.StreamRegion, h.DeflineRegion,
		h.BlockStart, h.StreamStart, h.DeflineStart,
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.BigEndian, f); err != nil {
			return errors.Wrap(err, "merstream: write header field")
		}
	}
	return nil
}

func readHeader(r io.Reader) (header, error) {
	var got [16]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return header{}, errors.Wrap(ErrCorruptArchive, "merstream: short read in magic")
	}
	if got != magic {
		return header{}, errors.Wrap(ErrCorruptArchive, "merstream: bad magic")
	}
	var h header
	fields := []interface{}{
		&h.MerSize, &h.merSizeDup,
		&h.NumMers, &h.NumBlocks, &h.NumDefs, &h.DefLength,
		&h.BlockRegion, &h.StreamRegion, &h.DeflineRegion,
		&h.BlockStart, &h.StreamStart, &h.DeflineStart,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.BigEndian, f); err != nil {
			return header{}, errors.Wrap(ErrCorruptArchive, "merstream: short read in header")
		}
	}
	return h, nil
}
