package positiondb

import (
	"encoding/binary"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/kmerchain/kmer"
)

// ExistDB is a read-only k-mer membership predicate, used by Build in
// two modes: as a mask (reject a k-mer if Exists is true) or as an
// only-filter (accept a k-mer only if Exists is true). It is built once
// from a Stream and is safe for concurrent reads.
//
// Membership is tracked with a SeaHash-keyed set rather than the
// original's bit-sliced check-value table: a 64-bit hash of the
// canonical k-mer's packed bits is enough to make collisions
// astronomically unlikely at the k-mer counts this index is sized for,
// and it avoids tying the filter's width to a specific table size.
type ExistDB struct {
	set map[uint64]struct{}
}

// NewExistDB consumes stream to completion (a single pass; stream need
// not support Rewind) and returns an ExistDB recording every k-mer seen.
// If canonicalize is true, each k-mer is folded to its canonical form
// before hashing, so a mask/only check is strand-agnostic.
func NewExistDB(stream Stream, canonicalize bool) (*ExistDB, error) {
	set := make(map[uint64]struct{})
	for {
		m, _, ok := stream.Next()
		if !ok {
			break
		}
		if canonicalize {
			m = m.Canonical()
		}
		set[hashKmer(m)] = struct{}{}
	}
	return &ExistDB{set: set}, nil
}

// Exists reports whether m (as given, not canonicalized) was present in
// the stream ExistDB was built from.
func (e *ExistDB) Exists(m kmer.Kmer) bool {
	_, ok := e.set[hashKmer(m)]
	return ok
}

// Len returns the number of distinct k-mers recorded.
func (e *ExistDB) Len() int { return len(e.set) }

func hashKmer(m kmer.Kmer) uint64 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], m.Bits())
	return seahash.Sum64(buf[:])
}
