package kmercount

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/grailbio/kmerchain/kmer"
	"github.com/pkg/errors"
)

// OpenMode selects how Open treats an existing store directory.
type OpenMode int

const (
	// CreateNew starts the store at version 0 by rewriting its VERSION
	// file; data files and finished markers already in the directory are
	// not removed.
	CreateNew OpenMode = iota
	// Append opens the store for further inserts, incrementing the
	// version.
	Append
	// ReadOnly opens the store's latest version for Merge/query only;
	// Insert and FinishBatch return ErrReadOnly.
	ReadOnly
)

const versionFileName = "VERSION"

// Store is a versioned, on-disk k-mer counter.
type Store struct {
	dir     string
	mode    OpenMode
	version uint32
	k       uint8
	cfg     Config

	useSimple bool
	plan      Plan

	buckets      map[uint64]*bucket
	simpleCounts []uint16

	finished bool
}

// Open opens or creates a k-mer count store rooted at dir.
func Open(dir string, mode OpenMode, k uint8, cfg Config) (*Store, error) {
	if k == 0 || k > kmer.MaxK {
		return nil, ErrInvalidInput
	}
	if mode != CreateNew && mode != Append && mode != ReadOnly {
		return nil, ErrInvalidInput
	}

	if mode != ReadOnly {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(ErrStorageError, err.Error())
		}
	}

	existing, err := readVersion(dir)
	if err != nil && mode == ReadOnly {
		return nil, err
	}

	var version uint32
	switch mode {
	case CreateNew:
		version = 0
	case Append:
		version = existing + 1
	case ReadOnly:
		version = existing
	}

	if mode != ReadOnly {
		if err := writeVersion(dir, version); err != nil {
			return nil, err
		}
	}

	budget := cfg.MemoryBudget
	if budget <= 0 {
		budget = 64 << 20
	}
	segSize := cfg.SegmentSize
	if segSize <= 0 {
		segSize = DefaultSegmentSize
	}
	cfg.MemoryBudget = budget
	cfg.SegmentSize = segSize

	s := &Store{dir: dir, mode: mode, version: version, k: k, cfg: cfg}
	s.useSimple = ChooseEncoding(k, budget)
	if s.useSimple {
		s.simpleCounts = make([]uint16, uint64(1)<<(2*uint(k)))
	} else {
		plan, err := ConfigureCounting(budget, cfg.ExpectedKmers)
		if err != nil {
			return nil, err
		}
		s.plan = plan
		s.buckets = make(map[uint64]*bucket)
	}

	if mode == ReadOnly {
		s.finished = s.isFinished()
	}
	return s, nil
}

func readVersion(dir string) (uint32, error) {
	b, err := ioutil.ReadFile(filepath.Join(dir, versionFileName))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(ErrStorageError, err.Error())
	}
	v, err := strconv.ParseUint(string(b), 10, 32)
	if err != nil {
		return 0, errors.Wrap(ErrStorageError, err.Error())
	}
	return uint32(v), nil
}

func writeVersion(dir string, version uint32) error {
	if err := ioutil.WriteFile(filepath.Join(dir, versionFileName), []byte(strconv.FormatUint(uint64(version), 10)), 0o644); err != nil {
		return errors.Wrap(ErrStorageError, err.Error())
	}
	return nil
}

func (s *Store) finishedMarkerPath() string {
	return filepath.Join(s.dir, fmt.Sprintf("version-%d.finished", s.version))
}

func (s *Store) isFinished() bool {
	_, err := os.Stat(s.finishedMarkerPath())
	return err == nil
}

// Version returns the store's current version number.
func (s *Store) Version() uint32 { return s.version }

// Finished reports whether FinishBatch has completed for this version.
func (s *Store) Finished() bool { return s.finished }

func (s *Store) bucketPath(prefix uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("bucket-%d.v%d.dat", prefix, s.version))
}

func (s *Store) bucketFor(prefix uint64) *bucket {
	b, ok := s.buckets[prefix]
	if !ok {
		b = &bucket{
			prefix:  prefix,
			path:    s.bucketPath(prefix),
			segSize: s.cfg.SegmentSize / entrySize,
			comp:    s.cfg.Compression,
		}
		if b.segSize <= 0 {
			b.segSize = 1
		}
		s.buckets[prefix] = b
	}
	return b
}

// Insert records one occurrence of (prefix, suffix) in Complex mode.
// It is an error to call Insert on a Store opened in Simple mode; use
// InsertKmer instead.
func (s *Store) Insert(prefix, suffix uint64) error {
	if s.mode == ReadOnly {
		return ErrReadOnly
	}
	if s.useSimple {
		return errors.Wrap(ErrInvalidInput, "kmercount: Insert called on a Simple-mode store")
	}
	return s.bucketFor(prefix).insert(suffix)
}

// InsertKmer records one occurrence of m, splitting its canonical
// packed bits into a prefix/suffix pair (Complex mode) or using them
// directly as a dense table index (Simple mode).
func (s *Store) InsertKmer(m kmer.Kmer) error {
	if s.mode == ReadOnly {
		return ErrReadOnly
	}
	bits := m.Canonical().Bits()
	if s.useSimple {
		if bits >= uint64(len(s.simpleCounts)) {
			return errors.Wrap(ErrInvalidInput, "kmercount: InsertKmer: index out of range for Simple table")
		}
		if s.simpleCounts[bits] < 1<<16-1 {
			s.simpleCounts[bits]++
		}
		return nil
	}
	width := 2 * uint(s.k)
	prefix := bits >> (width - uint(s.plan.Wp))
	suffixMask := (uint64(1) << (width - uint(s.plan.Wp))) - 1
	suffix := bits & suffixMask
	return s.bucketFor(prefix).insert(suffix)
}

// FinishBatch flushes every pending bucket segment to disk and marks
// the current version as complete. It is a no-op in Simple mode beyond
// marking completion, since Simple-mode counts are already resident.
func (s *Store) FinishBatch() error {
	if s.mode == ReadOnly {
		return ErrReadOnly
	}
	if !s.useSimple {
		for _, b := range s.buckets {
			if err := b.flush(); err != nil {
				return err
			}
		}
	}
	if err := ioutil.WriteFile(s.finishedMarkerPath(), nil, 0o644); err != nil {
		return errors.Wrap(ErrStorageError, err.Error())
	}
	s.finished = true
	return nil
}

// NextVersion finishes the current batch if not already finished, and
// returns a new Store opened in Append mode for the next version.
func (s *Store) NextVersion() (*Store, error) {
	if s.mode == ReadOnly {
		return nil, ErrReadOnly
	}
	if !s.finished {
		if err := s.FinishBatch(); err != nil {
			return nil, err
		}
	}
	return Open(s.dir, Append, s.k, s.cfg)
}

// Merge resolves every bucket's runs (Complex mode) or the dense table
// (Simple mode) into one sorted, summed result per prefix, rewriting
// each bucket's data file to hold exactly one run. If sink is non-nil,
// every merged (prefix, suffix, count) triple is also emitted to it
// between a single BeginBatch/EndBatch pair; sink.Finish is left to
// the caller, since a sink may be shared across several Merge calls.
func (s *Store) Merge(sink Sink) error {
	if sink != nil {
		sink.BeginBatch()
	}

	if s.useSimple {
		for idx, count := range s.simpleCounts {
			if count == 0 {
				continue
			}
			if sink != nil {
				sink.Emit(0, uint64(idx), uint32(count))
			}
		}
		if sink != nil {
			sink.EndBatch()
		}
		return nil
	}

	prefixes := make([]uint64, 0, len(s.buckets))
	for p := range s.buckets {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return prefixes[i] < prefixes[j] })

	for _, prefix := range prefixes {
		b := s.buckets[prefix]
		if err := b.flush(); err != nil {
			return err
		}
		runs, err := readAllRuns(b.path, b.comp)
		if err != nil {
			return err
		}
		merged := mergeRuns(runs)

		f, err := os.OpenFile(b.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return errors.Wrap(ErrStorageError, err.Error())
		}
		err = writeRun(f, merged, b.comp)
		f.Close()
		if err != nil {
			return err
		}

		if sink != nil {
			for _, e := range merged {
				sink.Emit(prefix, e.suffix, e.count)
			}
		}
	}

	if sink != nil {
		sink.EndBatch()
	}
	return nil
}
