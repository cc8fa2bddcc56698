package merstream

import "github.com/grailbio/kmerchain/kmer"

// MerRecord is one k-mer observation yielded by a SequenceSource or
// replayed from a MerStreamFile: the k-mer in both orientations, its
// base offset in the global base stream, the index of the sequence it
// came from, and that sequence's defline.
type MerRecord struct {
	KmerForward   kmer.Kmer
	KmerReverse   kmer.Kmer
	BasePosition  uint64
	SequenceIndex uint32
	DeflineRef    string
}

// SequenceSource is the external collaborator that lazily yields k-mers
// with their stream position; the core only consumes it, never produces
// one. Implementations are expected to be pulled in from outside this
// module (FASTA/FASTQ parsing is explicitly out of scope).
type SequenceSource interface {
	// NextMer returns the next record, or ok=false once the source is
	// exhausted.
	NextMer() (rec MerRecord, ok bool)

	// Rewind resets the source to its first record. Implementations that
	// cannot support this (e.g. a single-pass pipe) return
	// ErrUnsupported.
	Rewind() error
}
