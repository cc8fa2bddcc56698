package positiondb

import "github.com/grailbio/kmerchain/kmer"

// Position identifies a base offset within the logical concatenation of
// all input sequences (the global base stream).
type Position uint64

// Params fixes the shape of a PositionDB at build time.
type Params struct {
	// K is the k-mer width in bases.
	K uint8
	// Skip, when non-zero, samples every (Skip+1)-th k-mer position from
	// the stream rather than every position. A Stream implementation is
	// responsible for actually skipping; Params.Skip is recorded for
	// Stats and for round-tripping through the on-disk mirror.
	Skip uint8
	// TableBits sizes the hash table at 2^TableBits entries. The
	// remaining 2*K-TableBits bits of each canonical k-mer form its
	// check value.
	TableBits uint8
}

func (p Params) validate() error {
	if p.K == 0 || p.K > kmer.MaxK {
		return ErrInvalidInput
	}
	if p.TableBits == 0 || uint(p.TableBits) >= 2*uint(p.K) {
		return ErrInvalidInput
	}
	return nil
}

func (p Params) chkWidth() uint {
	return 2*uint(p.K) - uint(p.TableBits)
}

// PositionSet is every recorded occurrence of one k-mer, in build
// (insertion) order.
type PositionSet []Position

// Stream supplies the (k-mer, position) pairs Build consumes. Build
// walks it twice (count, then fill), so Rewind must actually restart
// iteration from the first pair; a single-pass source returns
// ErrUnsupported from Rewind and cannot be used to Build a DB.
type Stream interface {
	// Next returns the next (k-mer, position) pair, or ok=false once
	// exhausted. The k-mer need not already be canonicalized; Build
	// canonicalizes internally.
	Next() (m kmer.Kmer, pos Position, ok bool)
	// Rewind restarts iteration from the first pair.
	Rewind() error
}
