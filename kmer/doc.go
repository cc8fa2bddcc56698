// Package kmer implements the invertible two-bit (and three-bit, N-aware)
// encoding of fixed-length nucleotide sequences used throughout the
// k-mer position database and the local-overlap chainer.
package kmer
