package merstream

import (
	"bytes"
	"testing"

	"github.com/grailbio/kmerchain/kmer"
)

// sliceSource replays a fixed list of MerRecords, the simplest possible
// SequenceSource for tests.
type sliceSource struct {
	recs []MerRecord
	pos  int
}

func (s *sliceSource) NextMer() (MerRecord, bool) {
	if s.pos >= len(s.recs) {
		return MerRecord{}, false
	}
	rec := s.recs[s.pos]
	s.pos++
	return rec, true
}

func (s *sliceSource) Rewind() error {
	s.pos = 0
	return nil
}

// sourceFromSequence builds a sliceSource covering every k-mer of seq,
// all attributed to a single sequence index and defline.
func sourceFromSequence(seq string, k uint8, seqIndex uint32, defline string) *sliceSource {
	var recs []MerRecord
	for i := 0; i+int(k) <= len(seq); i++ {
		fwd, err := kmer.FromBases([]byte(seq[i:i+int(k)]), kmer.TwoBit)
		if err != nil {
			panic(err)
		}
		recs = append(recs, MerRecord{
			KmerForward:   fwd,
			KmerReverse:   fwd.ReverseComplement(),
			BasePosition:  uint64(i),
			SequenceIndex: seqIndex,
			DeflineRef:    defline,
		})
	}
	return &sliceSource{recs: recs}
}

func buildAndOpen(t *testing.T, src SequenceSource, k uint8) (*Reader, Stats) {
	t.Helper()
	var buf bytes.Buffer
	stats, err := NewBuilder(k).Build(src, &buf)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return r, stats
}

func TestRoundTripSingleBlock(t *testing.T) {
	seq := "ACGTACGTACGTACGT"
	k := uint8(4)
	src := sourceFromSequence(seq, k, 0, "seq0")
	r, stats := buildAndOpen(t, src, k)

	if stats.NumMers != 13 {
		t.Fatalf("got %d mers, want 13", stats.NumMers)
	}
	if stats.NumBlocks != 1 {
		t.Fatalf("got %d blocks, want 1", stats.NumBlocks)
	}
	if stats.NumDefs != 1 {
		t.Fatalf("got %d deflines, want 1", stats.NumDefs)
	}

	var got []string
	for {
		rec, ok, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		if rec.DeflineRef != "seq0" {
			t.Fatalf("got defline %q want %q", rec.DeflineRef, "seq0")
		}
		got = append(got, rec.KmerForward.String())
	}
	if len(got) != 13 {
		t.Fatalf("got %d records, want 13", len(got))
	}
	for i, s := range got {
		want := seq[i : i+int(k)]
		if s != want {
			t.Fatalf("record %d: got %q want %q", i, s, want)
		}
	}
}

func TestSeekToMer(t *testing.T) {
	seq := "ACGTACGTACGTACGT"
	k := uint8(4)
	src := sourceFromSequence(seq, k, 0, "seq0")
	r, _ := buildAndOpen(t, src, k)

	if err := r.SeekToMer(5); err != nil {
		t.Fatalf("SeekToMer: %v", err)
	}
	rec, ok, err := r.Next()
	if err != nil || !ok {
		t.Fatalf("Next after seek: ok=%v err=%v", ok, err)
	}
	want := seq[5:9]
	if got := rec.KmerForward.String(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if rec.BasePosition != 5 {
		t.Fatalf("got base position %d want 5", rec.BasePosition)
	}

	// Next() should continue normally after a seek.
	rec2, ok, err := r.Next()
	if err != nil || !ok {
		t.Fatalf("Next after seek+1: ok=%v err=%v", ok, err)
	}
	if got := rec2.KmerForward.String(); got != seq[6:10] {
		t.Fatalf("got %q want %q", got, seq[6:10])
	}
}

func TestSeekOutOfRange(t *testing.T) {
	seq := "ACGTACGT"
	k := uint8(4)
	src := sourceFromSequence(seq, k, 0, "seq0")
	r, stats := buildAndOpen(t, src, k)

	if err := r.SeekToMer(stats.NumMers); err != ErrOutOfRange {
		t.Fatalf("got %v want ErrOutOfRange", err)
	}
}

func TestEmptySource(t *testing.T) {
	r, stats := buildAndOpen(t, &sliceSource{}, 4)
	if stats.NumMers != 0 {
		t.Fatalf("got %d mers, want 0", stats.NumMers)
	}
	if _, ok, err := r.Next(); ok || err != nil {
		t.Fatalf("expected empty stream, got ok=%v err=%v", ok, err)
	}
}

func TestMultipleBlocksFromGap(t *testing.T) {
	k := uint8(3)
	recs := []MerRecord{
		{KmerForward: mustKmer("ACG", k), BasePosition: 0, SequenceIndex: 0, DeflineRef: "s0"},
		{KmerForward: mustKmer("CGT", k), BasePosition: 1, SequenceIndex: 0, DeflineRef: "s0"},
		// Gap: skips base position 2, forcing a new block.
		{KmerForward: mustKmer("TAC", k), BasePosition: 5, SequenceIndex: 0, DeflineRef: "s0"},
	}
	for i := range recs {
		recs[i].KmerReverse = recs[i].KmerForward.ReverseComplement()
	}
	r, stats := buildAndOpen(t, &sliceSource{recs: recs}, k)
	if stats.NumBlocks != 2 {
		t.Fatalf("got %d blocks, want 2", stats.NumBlocks)
	}
	if stats.NumMers != 3 {
		t.Fatalf("got %d mers, want 3", stats.NumMers)
	}

	var gotPositions []uint64
	for {
		rec, ok, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		gotPositions = append(gotPositions, rec.BasePosition)
	}
	want := []uint64{0, 1, 5}
	if len(gotPositions) != len(want) {
		t.Fatalf("got %v want %v", gotPositions, want)
	}
	for i := range want {
		if gotPositions[i] != want[i] {
			t.Fatalf("got %v want %v", gotPositions, want)
		}
	}
}

func TestMultipleSequencesDistinctDeflines(t *testing.T) {
	k := uint8(3)
	var recs []MerRecord
	for i, rec := range sourceFromSequence("ACGTA", k, 0, "first").recs {
		_ = i
		recs = append(recs, rec)
	}
	for _, rec := range sourceFromSequence("TTTAG", k, 1, "second").recs {
		recs = append(recs, rec)
	}
	r, stats := buildAndOpen(t, &sliceSource{recs: recs}, k)
	if stats.NumDefs != 2 {
		t.Fatalf("got %d deflines, want 2", stats.NumDefs)
	}

	seen := map[uint32]string{}
	for {
		rec, ok, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		seen[rec.SequenceIndex] = rec.DeflineRef
	}
	if seen[0] != "first" || seen[1] != "second" {
		t.Fatalf("got %v", seen)
	}
}

func mustKmer(s string, k uint8) kmer.Kmer {
	m, err := kmer.FromBases([]byte(s), kmer.TwoBit)
	if err != nil {
		panic(err)
	}
	if m.K() != k {
		panic("length mismatch")
	}
	return m
}

func TestKBoundaryMaxK(t *testing.T) {
	seq := make([]byte, kmer.MaxK+1)
	for i := range seq {
		seq[i] = "ACGT"[i%4]
	}
	src := sourceFromSequence(string(seq), kmer.MaxK, 0, "maxk")
	r, stats := buildAndOpen(t, src, kmer.MaxK)
	if stats.NumMers != 2 {
		t.Fatalf("got %d mers, want 2", stats.NumMers)
	}
	rec, ok, err := r.Next()
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	if rec.KmerForward.String() != string(seq[:kmer.MaxK]) {
		t.Fatalf("got %q want %q", rec.KmerForward.String(), string(seq[:kmer.MaxK]))
	}
}
