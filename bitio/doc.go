// Package bitio provides append-only and random-read access to streams of
// variable-width unsigned integers backed by whole 64-bit words.
//
// It is the Go analogue of the kmer toolkit's bitPackedFile: callers pack
// values of 1 to 64 bits with Writer.PutBits, or self-delimiting values of
// arbitrary magnitude with Writer.PutNumber, and later recover them with the
// matching Reader calls. All I/O happens in whole 64-bit words; unused
// trailing bits of the final word are zero-filled.
package bitio
