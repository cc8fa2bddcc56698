package kmercount

import (
	"bytes"
	"encoding/binary"
	"io"
	"io/ioutil"
	"os"
	"sort"

	"github.com/pkg/errors"
)

type suffixCount struct {
	suffix uint64
	count  uint32
}

// bucket accumulates raw (unsummed) occurrences for one prefix in
// memory, flushing a sorted segment to its data file whenever the
// pending list crosses the configured segment size.
type bucket struct {
	prefix  uint64
	path    string
	segSize int
	comp    Compression
	pending []suffixCount
}

func (b *bucket) insert(suffix uint64) error {
	b.pending = append(b.pending, suffixCount{suffix: suffix, count: 1})
	if len(b.pending) >= b.segSize {
		return b.flush()
	}
	return nil
}

// flush sorts the pending segment by suffix and appends it as one run
// to the bucket's data file.
func (b *bucket) flush() error {
	if len(b.pending) == 0 {
		return nil
	}
	sort.Slice(b.pending, func(i, j int) bool { return b.pending[i].suffix < b.pending[j].suffix })

	f, err := os.OpenFile(b.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(ErrStorageError, err.Error())
	}
	defer f.Close()
	if err := writeRun(f, b.pending, b.comp); err != nil {
		return err
	}
	b.pending = b.pending[:0]
	return nil
}

// writeRun appends one length-prefixed, optionally compressed run
// block to w.
func writeRun(w io.Writer, entries []suffixCount, comp Compression) error {
	var raw bytes.Buffer
	if err := binary.Write(&raw, binary.BigEndian, uint64(len(entries))); err != nil {
		return errors.Wrap(ErrStorageError, err.Error())
	}
	for _, e := range entries {
		if err := binary.Write(&raw, binary.BigEndian, e.suffix); err != nil {
			return errors.Wrap(ErrStorageError, err.Error())
		}
		if err := binary.Write(&raw, binary.BigEndian, e.count); err != nil {
			return errors.Wrap(ErrStorageError, err.Error())
		}
	}

	var compressed bytes.Buffer
	cw, err := newCompressWriter(&compressed, comp)
	if err != nil {
		return err
	}
	if _, err := cw.Write(raw.Bytes()); err != nil {
		return errors.Wrap(ErrStorageError, err.Error())
	}
	if err := cw.Close(); err != nil {
		return errors.Wrap(ErrStorageError, err.Error())
	}

	if err := binary.Write(w, binary.BigEndian, uint32(compressed.Len())); err != nil {
		return errors.Wrap(ErrStorageError, err.Error())
	}
	if _, err := w.Write(compressed.Bytes()); err != nil {
		return errors.Wrap(ErrStorageError, err.Error())
	}
	return nil
}

// readRun reads one run block from r, or returns io.EOF if r is
// exhausted at a block boundary.
func readRun(r io.Reader, comp Compression) ([]suffixCount, error) {
	var blockLen uint32
	if err := binary.Read(r, binary.BigEndian, &blockLen); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(ErrCorruptInternalState, err.Error())
	}
	compressed := make([]byte, blockLen)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, errors.Wrap(ErrCorruptInternalState, err.Error())
	}

	cr, err := newCompressReader(bytes.NewReader(compressed), comp)
	if err != nil {
		return nil, err
	}
	raw, err := ioutil.ReadAll(cr)
	cr.Close()
	if err != nil {
		return nil, errors.Wrap(ErrCorruptInternalState, err.Error())
	}

	br := bytes.NewReader(raw)
	var n uint64
	if err := binary.Read(br, binary.BigEndian, &n); err != nil {
		return nil, errors.Wrap(ErrCorruptInternalState, err.Error())
	}
	entries := make([]suffixCount, n)
	for i := range entries {
		if err := binary.Read(br, binary.BigEndian, &entries[i].suffix); err != nil {
			return nil, errors.Wrap(ErrCorruptInternalState, err.Error())
		}
		if err := binary.Read(br, binary.BigEndian, &entries[i].count); err != nil {
			return nil, errors.Wrap(ErrCorruptInternalState, err.Error())
		}
	}
	return entries, nil
}

// readAllRuns reads every run in a bucket's data file. Missing files
// (a bucket that never flushed) are treated as empty.
func readAllRuns(path string, comp Compression) ([][]suffixCount, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(ErrStorageError, err.Error())
	}
	defer f.Close()

	var runs [][]suffixCount
	for {
		run, err := readRun(f, comp)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// mergeRuns performs a k-way merge of several suffix-sorted runs,
// summing counts of equal suffixes, and returns one sorted,
// deduplicated run.
func mergeRuns(runs [][]suffixCount) []suffixCount {
	idx := make([]int, len(runs))
	var out []suffixCount

	for {
		best := -1
		for i, run := range runs {
			if idx[i] >= len(run) {
				continue
			}
			if best == -1 || run[idx[i]].suffix < runs[best][idx[best]].suffix {
				best = i
			}
		}
		if best == -1 {
			break
		}
		suffix := runs[best][idx[best]].suffix
		var total uint32
		for i, run := range runs {
			for idx[i] < len(run) && run[idx[i]].suffix == suffix {
				total += run[idx[i]].count
				idx[i]++
			}
		}
		out = append(out, suffixCount{suffix: suffix, count: total})
	}
	return out
}
