package positiondb

import (
	"sort"

	"github.com/grailbio/kmerchain/kmer"
)

// Lookup returns every recorded occurrence of m, in build order, and
// whether m was found at all.
func (db *DB) Lookup(m kmer.Kmer) (PositionSet, bool) {
	cm := m.Canonical()
	bits := cm.Bits()
	h := hashOf(bits, db.params.TableBits)
	c := checkOf(bits, db.params.TableBits)

	bucket := db.buckets[db.hashTable[h]:db.hashTable[h+1]]
	idx := sort.Search(len(bucket), func(i int) bool { return bucket[i].check >= c })
	if idx >= len(bucket) || bucket[idx].check != c {
		return nil, false
	}
	e := bucket[idx]
	if e.tag {
		return PositionSet{Position(e.payload)}, true
	}
	count := db.positions[e.payload]
	out := make(PositionSet, count)
	for i := uint64(0); i < count; i++ {
		out[i] = Position(db.positions[e.payload+1+i])
	}
	return out, true
}

// StreamPositions invokes fn once per recorded occurrence of m, in
// build order, and returns whether m was found at all.
func (db *DB) StreamPositions(m kmer.Kmer, fn func(Position)) bool {
	set, ok := db.Lookup(m)
	if !ok {
		return false
	}
	for _, p := range set {
		fn(p)
	}
	return true
}
