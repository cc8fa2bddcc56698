package kmercount

// Compression selects the codec used for a Store's data-file runs.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionSnappy
)

// Config configures a Store at Open time.
type Config struct {
	// MemoryBudget bounds how much memory ConfigureCounting may commit
	// to in-memory bucket structures, in bytes.
	MemoryBudget int64
	// ExpectedKmers estimates the total number of k-mer occurrences
	// the store will see before its first Merge; used only to size
	// ConfigureCounting's plan, never enforced.
	ExpectedKmers uint64
	// SegmentSize is the size, in bytes, of one in-memory segment
	// before it is sorted and flushed as a run. Zero selects
	// DefaultSegmentSize.
	SegmentSize int
	// Compression selects the codec applied to each data file's run
	// bytes.
	Compression Compression
}

// DefaultSegmentSize is used when Config.SegmentSize is zero.
const DefaultSegmentSize = 1 << 20 // 1MiB of pending entries per bucket

// entrySize is the packed size, in bytes, of one (suffix, count) pair
// in a flushed run: an 8-byte suffix and a 4-byte count.
const entrySize = 12

// structMemPerPrefix estimates the resident overhead of one bucket's
// bookkeeping struct.
const structMemPerPrefix = 96

// pointerMemPerSegment estimates the overhead of one segment's backing
// slice header and its entry in a bucket's segment list.
const pointerMemPerSegment = 24

// lowBitsPerSimpleEntry is the width, in bits, of one count in the
// dense Simple-mode table.
const lowBitsPerSimpleEntry = 16

// minWp is the smallest prefix width ConfigureCounting will consider;
// below this the number of output files is too small to bound
// per-file work (mirrors the "wp >= 10" constraint).
const minWp = 10

// maxWp bounds the search from above; prefixes this wide already imply
// millions of output files, far past any useful partitioning.
const maxWp = 24

// Plan is the outcome of ConfigureCounting: how a Store should
// partition and size its in-memory structures.
type Plan struct {
	Wp          uint8
	FileCount   uint64
	SegmentSize int
	MemoryUsed  int64
}

// ConfigureCounting picks the widest prefix width wp (and so the
// largest, best-distributed file count) whose struct and pointer
// overhead plus expected data memory fits within memoryBudget,
// searching from maxWp down to minWp. Searching from wide to narrow,
// rather than taking the narrowest wp that merely fits, favors more
// files with smaller per-file sort buckets.
func ConfigureCounting(memoryBudget int64, expectedKmers uint64) (Plan, error) {
	segSize := DefaultSegmentSize
	kmersPerSeg := uint64(segSize / entrySize)
	if kmersPerSeg == 0 {
		kmersPerSeg = 1
	}

	for wp := uint8(maxWp); wp >= minWp; wp-- {
		nPrefix := uint64(1) << wp
		kmersPerPrefix := expectedKmers/nPrefix + 1
		segsPerPrefix := kmersPerPrefix/kmersPerSeg + 1

		structMem := int64(nPrefix)*structMemPerPrefix + int64(nPrefix*segsPerPrefix)*pointerMemPerSegment
		// A bucket holds at most one segment of pending entries before
		// flushing it as a run.
		resident := kmersPerPrefix
		if resident > kmersPerSeg {
			resident = kmersPerSeg
		}
		dataMem := int64(nPrefix * resident * entrySize)
		total := structMem + dataMem

		if total <= memoryBudget {
			return Plan{Wp: wp, FileCount: nPrefix, SegmentSize: segSize, MemoryUsed: total}, nil
		}
	}
	return Plan{}, ErrInsufficientMemory
}

// ChooseEncoding decides between Simple mode (a dense 4^k-entry count
// table) and Complex mode (ConfigureCounting's partitioned buckets),
// following the size rule: Simple is used whenever its table fits
// entirely within memoryBudget.
func ChooseEncoding(k uint8, memoryBudget int64) bool {
	if k > 31 {
		return false
	}
	if memoryBudget <= 0 {
		return false
	}
	entries := uint64(1) << (2 * uint(k))
	// Compared as an entry count so 4^k * lowBitsPerSimpleEntry cannot
	// overflow at large k.
	return entries <= uint64(memoryBudget)/(lowBitsPerSimpleEntry/8)
}
