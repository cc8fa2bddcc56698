// Package kmercount implements KmerCountStore: a versioned, on-disk
// k-mer counter that partitions k-mers by a leading prefix into
// per-prefix run files, accumulates unsummed occurrences in memory
// until a segment fills, and reconciles everything into one sorted,
// summed run per file on Merge.
package kmercount
