// Package merstream implements MerStreamFile: a compact, seekable,
// delta-encoded archive of a k-mer stream plus its defline table and
// block index, built from a SequenceSource in one pass and later read
// back either sequentially or via binary-search seek.
package merstream
