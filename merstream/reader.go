package merstream

import (
	"bytes"
	"encoding/binary"
	"io"
	"io/ioutil"
	"sort"

	"github.com/grailbio/kmerchain/bitio"
	"github.com/grailbio/kmerchain/kmer"
	"github.com/pkg/errors"
)

type blockInfo struct {
	length   uint64
	sequence uint32
	start    uint64

	cumStart  uint64 // mer index of this block's first mer
	bitStart  uint64 // bit offset, within payload, of this block's first code
}

// Reader replays a MerStreamFile sequentially, or after a binary-search
// seek.
type Reader struct {
	k   uint8
	h   header
	err error // sticky: set once to ErrCorruptArchive; every later op returns errInvalidated

	blocks []blockInfo
	payload *bitio.Reader
	seqToDefline map[uint32]string

	curBlock     int
	posInBlock   uint64
	merIdx       uint64
	curBits      uint64
	needFullRead bool
}

// NewReader parses a complete MerStreamFile from r.
func NewReader(r io.Reader) (*Reader, error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	rd := &Reader{k: uint8(h.MerSize), h: h, needFullRead: true}

	if h.NumBlocks == 0 {
		rd.seqToDefline = map[uint32]string{}
		rd.payload = bitio.NewReader(nil, 0)
		return rd, nil
	}

	blockReader, err := bitio.ReadAllWords(r, 8*h.BlockRegion)
	if err != nil {
		return nil, errors.Wrap(ErrCorruptArchive, err.Error())
	}
	blocks := make([]blockInfo, h.NumBlocks)
	var cum, bitCum uint64
	k := uint64(h.MerSize)
	for i := range blocks {
		length, err := blockReader.GetNumber()
		if err != nil {
			return nil, errors.Wrap(ErrCorruptArchive, "merstream: short read in block index")
		}
		seq, err := blockReader.GetNumber()
		if err != nil {
			return nil, errors.Wrap(ErrCorruptArchive, "merstream: short read in block index")
		}
		start, err := blockReader.GetNumber()
		if err != nil {
			return nil, errors.Wrap(ErrCorruptArchive, "merstream: short read in block index")
		}
		blocks[i] = blockInfo{length: length, sequence: uint32(seq), start: start, cumStart: cum, bitStart: bitCum}
		cum += length
		bitCum += 2 * (k + length - 1)
	}
	if cum != h.NumMers {
		return nil, errors.Wrapf(ErrCorruptArchive, "merstream: block lengths sum to %d, header says %d", cum, h.NumMers)
	}

	payload, err := bitio.ReadAllWords(r, 8*h.StreamRegion)
	if err != nil {
		return nil, errors.Wrap(ErrCorruptArchive, err.Error())
	}

	deflineBytes, err := ioutil.ReadAll(io.LimitReader(r, int64(h.DeflineRegion)))
	if err != nil || uint64(len(deflineBytes)) != h.DeflineRegion {
		return nil, errors.Wrap(ErrCorruptArchive, "merstream: short read in defline table")
	}
	deflineTable, err := parseDeflines(deflineBytes, h.NumDefs)
	if err != nil {
		return nil, err
	}

	seqToDefline := map[uint32]string{}
	lastDeflineSeq := ^uint32(0)
	cursor := 0
	for _, blk := range blocks {
		if blk.sequence == lastDeflineSeq {
			continue
		}
		if cursor >= len(deflineTable) {
			return nil, errors.Wrap(ErrCorruptArchive, "merstream: more distinct sequences than deflines")
		}
		seqToDefline[blk.sequence] = deflineTable[cursor]
		cursor++
		lastDeflineSeq = blk.sequence
	}

	rd.blocks = blocks
	rd.payload = payload
	rd.seqToDefline = seqToDefline
	return rd, nil
}

func parseDeflines(buf []byte, numDefs uint64) ([]string, error) {
	out := make([]string, 0, numDefs)
	r := bytes.NewReader(buf)
	for i := uint64(0); i < numDefs; i++ {
		var l uint32
		if err := binary.Read(r, binary.BigEndian, &l); err != nil {
			return nil, errors.Wrap(ErrCorruptArchive, "merstream: short read in defline length")
		}
		if l == 0 {
			return nil, errors.Wrap(ErrCorruptArchive, "merstream: zero-length defline record")
		}
		raw := make([]byte, l)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, errors.Wrap(ErrCorruptArchive, "merstream: short read in defline body")
		}
		// raw is NUL-terminated, as written by appendDefline.
		out = append(out, string(raw[:l-1]))
	}
	return out, nil
}

// NumMers returns the total number of k-mers recorded in the archive.
func (r *Reader) NumMers() uint64 { return r.h.NumMers }

// Next returns the next record in block order, or ok=false once the
// stream is exhausted.
func (r *Reader) Next() (MerRecord, bool, error) {
	if r.err != nil {
		return MerRecord{}, false, errInvalidated
	}
	if r.merIdx >= r.h.NumMers {
		return MerRecord{}, false, nil
	}
	blk := &r.blocks[r.curBlock]

	var bits uint64
	var err error
	if r.needFullRead {
		bits, err = r.payload.GetBits(2 * uint(r.k))
		r.needFullRead = false
	} else {
		var code uint64
		code, err = r.payload.GetBits(2)
		width := 2 * uint(r.k)
		var mask uint64
		if width >= 64 {
			mask = ^uint64(0)
		} else {
			mask = (uint64(1) << width) - 1
		}
		bits = ((r.curBits << 2) | code) & mask
	}
	if err != nil {
		r.err = ErrCorruptArchive
		return MerRecord{}, false, errors.Wrap(ErrCorruptArchive, "merstream: short read in payload")
	}
	r.curBits = bits

	fwd, err := kmer.FromBits(bits, r.k, kmer.TwoBit)
	if err != nil {
		r.err = ErrCorruptArchive
		return MerRecord{}, false, errors.Wrap(ErrCorruptArchive, err.Error())
	}
	rec := MerRecord{
		KmerForward:   fwd,
		KmerReverse:   fwd.ReverseComplement(),
		BasePosition:  blk.start + r.posInBlock,
		SequenceIndex: blk.sequence,
		DeflineRef:    r.seqToDefline[blk.sequence],
	}

	r.posInBlock++
	r.merIdx++
	if r.posInBlock >= blk.length {
		r.curBlock++
		r.posInBlock = 0
		r.needFullRead = true
	}
	return rec, true, nil
}

// SeekToMer positions the reader so the next call to Next returns the
// n-th k-mer overall (0-indexed), via binary search over cumulative
// block lengths followed by a direct bit-level seek into the payload.
func (r *Reader) SeekToMer(n uint64) error {
	if r.err != nil {
		return errInvalidated
	}
	if n >= r.h.NumMers {
		return ErrOutOfRange
	}
	i := sort.Search(len(r.blocks), func(i int) bool {
		return r.blocks[i].cumStart+r.blocks[i].length > n
	})
	blk := &r.blocks[i]
	offset := n - blk.cumStart
	bitPos := blk.bitStart + 2*offset
	if err := r.payload.Seek(bitPos); err != nil {
		return errors.Wrap(ErrCorruptArchive, "merstream: seek target outside payload")
	}
	r.curBlock = i
	r.posInBlock = offset
	r.merIdx = n
	r.needFullRead = true
	return nil
}
