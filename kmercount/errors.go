package kmercount

import "errors"

// Sentinel errors covering the ways a Store can fail to open, insert
// into, or merge.
var (
	// ErrInvalidInput is returned for malformed Config or OpenMode.
	ErrInvalidInput = errors.New("kmercount: invalid input")

	// ErrInsufficientMemory is returned by ConfigureCounting when no wp
	// in range keeps its struct, pointer and pending-data estimate under
	// the memory budget.
	ErrInsufficientMemory = errors.New("kmercount: memory budget too small for any viable configuration")

	// ErrStorageError wraps underlying file I/O failures during a
	// flush or merge.
	ErrStorageError = errors.New("kmercount: storage error")

	// ErrCorruptInternalState is returned when a merge's k-way cursor
	// invariant is violated (a run's declared entry count disagrees
	// with what was actually read).
	ErrCorruptInternalState = errors.New("kmercount: corrupt internal state")

	// ErrReadOnly is returned by Insert/InsertKmer/FinishBatch/NextVersion
	// on a Store opened with ReadOnly.
	ErrReadOnly = errors.New("kmercount: store is read-only")
)
