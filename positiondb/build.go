package positiondb

import (
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/kmerchain/kmer"
	"github.com/pkg/errors"
)

// Opt configures an optional Build knob.
type Opt func(*buildOpts)

type buildOpts struct {
	verbose bool
}

// Verbose enables progress logging at log.Debug level during Build.
func Verbose() Opt {
	return func(o *buildOpts) {
		o.verbose = true
	}
}

func (o *buildOpts) logf(format string, args ...interface{}) {
	if !o.verbose || !log.At(log.Debug) {
		return
	}
	log.Debug.Printf(format, args...)
}

// fillEntry is one (check, position) pair captured during the fill
// pass, before sort-and-pack groups runs of identical check values.
type fillEntry struct {
	check uint64
	pos   Position
}

// bucketEntry is one sort-and-pack output record: a check value plus
// either a lone position (tag true) or a pointer into the position
// list (tag false), mirroring the two entry kinds in the logical
// model's bucket array.
type bucketEntry struct {
	check   uint64
	tag     bool
	payload uint64
}

// Stats reports the counters a verbose PositionDB build tracks: total
// k-mers seen, how many distinct check/hash combinations resulted, how
// many were singletons, how many entries (including multiplicities)
// were stored, and the largest per-k-mer occurrence count observed.
type Stats struct {
	NumberOfMers      uint64
	NumberOfPositions uint64
	NumberOfDistinct  uint64
	NumberOfUnique    uint64
	NumberOfEntries   uint64
	MaximumEntries    uint64
}

// DB is a built, queryable PositionDB.
type DB struct {
	params Params
	stats  Stats

	posWidth uint

	hashTable []uint64 // len 2^TableBits+1, start offsets into buckets
	buckets   []bucketEntry
	positions []uint64 // runs: [count, pos0, pos1, ..., pos_{count-1}], ...
}

// Params returns the Params this DB was built with.
func (db *DB) Params() Params { return db.params }

// Stats returns the build-time counters.
func (db *DB) Stats() Stats { return db.stats }

func hashOf(bits uint64, tableBits uint8) uint64 {
	return bits & ((uint64(1) << tableBits) - 1)
}

func checkOf(bits uint64, tableBits uint8) uint64 {
	return bits >> tableBits
}

func bitLength(v uint64) uint {
	n := uint(0)
	for v > 0 {
		n++
		v >>= 1
	}
	return n
}

func passesFilter(bits uint64, mask, only *ExistDB, k uint8) bool {
	if mask == nil && only == nil {
		return true
	}
	m, err := kmer.FromBits(bits, k, kmer.TwoBit)
	if err != nil {
		return false
	}
	if mask != nil && mask.Exists(m) {
		return false
	}
	if only != nil && !only.Exists(m) {
		return false
	}
	return true
}

// Build consumes stream to completion in two rewound passes (count,
// then fill) plus an in-memory sort-and-pack pass, and returns a
// queryable PositionDB.
//
// mask and only are each optional (nil disables the corresponding
// filter): mask rejects a k-mer if it is present, only accepts a
// k-mer only if it is present.
func Build(stream Stream, params Params, mask, only *ExistDB, opts ...Opt) (*DB, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	var o buildOpts
	for _, opt := range opts {
		opt(&o)
	}

	if err := stream.Rewind(); err != nil {
		return nil, errors.Wrap(ErrUnsupported, "positiondb.Build: initial rewind failed")
	}

	numBuckets := uint64(1) << params.TableBits
	bucketSizes := make([]uint64, numBuckets)
	var numMers uint64
	var maxPos Position

	for {
		m, pos, ok := stream.Next()
		if !ok {
			break
		}
		cm := m.Canonical()
		if !passesFilter(cm.Bits(), mask, only, params.K) {
			continue
		}
		h := hashOf(cm.Bits(), params.TableBits)
		bucketSizes[h]++
		numMers++
		if pos > maxPos {
			maxPos = pos
		}
	}
	posWidth := bitLength(uint64(maxPos) + 1)
	if posWidth == 0 {
		posWidth = 1
	}
	o.logf("positiondb: found %d mers", numMers)

	bucketStart := make([]uint64, numBuckets+1)
	for h := uint64(0); h < numBuckets; h++ {
		bucketStart[h+1] = bucketStart[h] + bucketSizes[h]
	}
	total := bucketStart[numBuckets]

	cursor := make([]uint64, numBuckets)
	copy(cursor, bucketStart[:numBuckets])

	if err := stream.Rewind(); err != nil {
		return nil, errors.Wrap(ErrUnsupported, "positiondb.Build: fill-pass rewind failed")
	}
	entries := make([]fillEntry, total)
	for {
		m, pos, ok := stream.Next()
		if !ok {
			break
		}
		cm := m.Canonical()
		bits := cm.Bits()
		if !passesFilter(bits, mask, only, params.K) {
			continue
		}
		h := hashOf(bits, params.TableBits)
		c := checkOf(bits, params.TableBits)
		entries[cursor[h]] = fillEntry{check: c, pos: pos}
		cursor[h]++
	}
	for h := uint64(0); h < numBuckets; h++ {
		if cursor[h] != bucketStart[h+1] {
			return nil, errors.Wrap(ErrCorruptInternalState, "positiondb.Build: bucket fill cursor did not reach its end offset")
		}
	}

	packed := make([]bucketEntry, 0, total)
	positions := make([]uint64, 0)
	hashTable := make([]uint64, numBuckets+1)
	var stats Stats
	stats.NumberOfMers = numMers

	for h := uint64(0); h < numBuckets; h++ {
		bucket := entries[bucketStart[h]:bucketStart[h+1]]
		// Stable so a run of equal check values keeps pass-2 insertion order.
		sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].check < bucket[j].check })
		hashTable[h] = uint64(len(packed))

		i := 0
		for i < len(bucket) {
			c := bucket[i].check
			j := i + 1
			for j < len(bucket) && bucket[j].check == c {
				j++
			}
			runLen := uint64(j - i)
			stats.NumberOfDistinct++
			stats.NumberOfEntries += runLen
			if runLen > stats.MaximumEntries {
				stats.MaximumEntries = runLen
			}
			if runLen == 1 {
				stats.NumberOfUnique++
				packed = append(packed, bucketEntry{check: c, tag: true, payload: uint64(bucket[i].pos)})
			} else {
				ptr := uint64(len(positions))
				positions = append(positions, runLen)
				for _, e := range bucket[i:j] {
					positions = append(positions, uint64(e.pos))
				}
				stats.NumberOfPositions += runLen
				packed = append(packed, bucketEntry{check: c, tag: false, payload: ptr})
			}
			i = j
		}
	}
	hashTable[numBuckets] = uint64(len(packed))

	o.logf("positiondb: %d distinct mers, %d unique, %d total entries", stats.NumberOfDistinct, stats.NumberOfUnique, stats.NumberOfEntries)

	return &DB{
		params:    params,
		stats:     stats,
		posWidth:  posWidth,
		hashTable: hashTable,
		buckets:   packed,
		positions: positions,
	}, nil
}
