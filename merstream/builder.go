package merstream

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/grailbio/base/log"
	"github.com/grailbio/kmerchain/bitio"
	"github.com/grailbio/kmerchain/kmer"
	"github.com/pkg/errors"
)

// Stats summarizes a completed build: the totals Builder.Build reports
// through its verbose logging and returns to the caller.
type Stats struct {
	NumMers   uint64
	NumBlocks uint64
	NumDefs   uint64
	DefLength uint64
}

// Builder materializes a MerStreamFile from a SequenceSource in a
// single pass, coalescing runs of consecutive same-sequence k-mers into
// blocks and recording a new defline only when the sequence index
// changes.
type Builder struct {
	K uint8

	// Verbose, when true, makes Build report per-phase progress at
	// log.Debug level.
	Verbose bool
}

// NewBuilder returns a Builder for k-mers of the given width.
func NewBuilder(k uint8) *Builder {
	return &Builder{K: k}
}

func (b *Builder) logf(format string, args ...interface{}) {
	if !b.Verbose || !log.At(log.Debug) {
		return
	}
	log.Debug.Printf(format, args...)
}

// Build consumes src to completion and writes a complete MerStreamFile
// to out.
func (b *Builder) Build(src SequenceSource, out io.Writer) (Stats, error) {
	if b.K == 0 || b.K > kmer.MaxK {
		return Stats{}, errors.Wrapf(kmer.ErrInvalidK, "merstream.Builder.Build: k=%d", b.K)
	}
	k := uint(b.K)

	first, ok := src.NextMer()
	if !ok {
		b.logf("merstream: empty source, writing empty archive")
		return Stats{}, writeHeader(out, header{MerSize: uint32(b.K)})
	}

	blocks := bitio.NewMemWriter()
	stream := bitio.NewMemWriter()
	var deflines bytes.Buffer

	var numMers, numBlocks, numDefs, defLength uint64
	lastDeflineSeq := ^uint32(0)

	appendDefline := func(rec MerRecord) error {
		if rec.SequenceIndex == lastDeflineSeq {
			return nil
		}
		lastDeflineSeq = rec.SequenceIndex
		l := uint32(len(rec.DeflineRef)) + 1 // +1 for the trailing NUL
		if err := binary.Write(&deflines, binary.BigEndian, l); err != nil {
			return errors.Wrap(err, "merstream: write defline length")
		}
		deflines.WriteString(rec.DeflineRef)
		deflines.WriteByte(0)
		numDefs++
		defLength += uint64(l)
		return nil
	}

	if err := appendDefline(first); err != nil {
		return Stats{}, err
	}

	firstBits := first.KmerForward.Bits()
	if err := stream.PutBits(firstBits, 2*k); err != nil {
		return Stats{}, err
	}

	lastMerPos := first.BasePosition
	lastSeq := first.SequenceIndex
	blockStart := first.BasePosition
	blockLen := uint64(1)
	numMers = 1

	closeBlock := func() error {
		if err := blocks.PutNumber(blockLen); err != nil {
			return err
		}
		if err := blocks.PutNumber(uint64(lastSeq)); err != nil {
			return err
		}
		if err := blocks.PutNumber(blockStart); err != nil {
			return err
		}
		numBlocks++
		return nil
	}

	for {
		rec, ok := src.NextMer()
		if !ok {
			break
		}
		if err := appendDefline(rec); err != nil {
			return Stats{}, err
		}

		if rec.SequenceIndex == lastSeq && rec.BasePosition == lastMerPos+1 {
			code := uint64(rec.KmerForward.Bits() & 0x3)
			if err := stream.PutBits(code, 2); err != nil {
				return Stats{}, err
			}
			blockLen++
			lastMerPos = rec.BasePosition
		} else {
			if err := closeBlock(); err != nil {
				return Stats{}, err
			}
			if err := stream.PutBits(rec.KmerForward.Bits(), 2*k); err != nil {
				return Stats{}, err
			}
			blockStart = rec.BasePosition
			lastSeq = rec.SequenceIndex
			lastMerPos = rec.BasePosition
			blockLen = 1
		}
		numMers++
	}
	if err := closeBlock(); err != nil {
		return Stats{}, err
	}

	b.logf("merstream: %d mers, %d blocks, %d deflines", numMers, numBlocks, numDefs)

	blockWords := blocks.Words()
	streamWords := stream.Words()
	deflineBytes := deflines.Bytes()

	h := header{
		MerSize:       uint32(b.K),
		NumMers:       numMers,
		NumBlocks:     numBlocks,
		NumDefs:       numDefs,
		DefLength:     defLength,
		BlockRegion:   uint64(8 * len(blockWords)),
		StreamRegion:  uint64(8 * len(streamWords)),
		DeflineRegion: uint64(len(deflineBytes)),
	}
	h.BlockStart = 8 * headerSize
	h.StreamStart = h.BlockStart + 8*h.BlockRegion
	h.DeflineStart = h.StreamStart + 8*h.StreamRegion

	if err := writeHeader(out, h); err != nil {
		return Stats{}, err
	}
	if err := bitio.WriteWords(out, blockWords); err != nil {
		return Stats{}, err
	}
	if err := bitio.WriteWords(out, streamWords); err != nil {
		return Stats{}, err
	}
	if _, err := out.Write(deflineBytes); err != nil {
		return Stats{}, errors.Wrap(err, "merstream: write deflines")
	}

	return Stats{NumMers: numMers, NumBlocks: numBlocks, NumDefs: numDefs, DefLength: defLength}, nil
}
