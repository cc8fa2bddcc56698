package chainer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptySegmentSetYieldsNoOverlap(t *testing.T) {
	ov, err := FindLocalOverlap(300, 300, false, nil, 5, 4.0)
	if err != nil {
		t.Fatalf("FindLocalOverlap: %v", err)
	}
	if ov != nil {
		t.Fatalf("expected nil overlap for an empty segment set, got %+v", ov)
	}
}

func TestSingleSegmentBelowMinAlignedColsYieldsNoOverlap(t *testing.T) {
	segs := []Segment{{ABegin: 0, AEnd: 10, BBegin: 0, BEnd: 10, ErrorRate: 0}}
	ov, err := FindLocalOverlap(300, 300, false, segs, 5, 4.0)
	if err != nil {
		t.Fatalf("FindLocalOverlap: %v", err)
	}
	if ov != nil {
		t.Fatalf("expected nil overlap for a segment shorter than MinAlignedCols, got %+v", ov)
	}
}

func TestSingleSegmentAtMinAlignedColsYieldsOneOverlap(t *testing.T) {
	segs := []Segment{{ABegin: 0, AEnd: 30, BBegin: 0, BEnd: 30, ErrorRate: 0}}
	ov, err := FindLocalOverlap(300, 300, false, segs, 5, 4.0)
	if err != nil {
		t.Fatalf("FindLocalOverlap: %v", err)
	}
	if ov == nil {
		t.Fatalf("expected a one-piece overlap")
	}
	if ov.NumPieces != 1 {
		t.Fatalf("NumPieces = %d, want 1", ov.NumPieces)
	}
}

func TestTrivialChain(t *testing.T) {
	segs := []Segment{
		{ABegin: 0, AEnd: 100, BBegin: 0, BEnd: 100, ErrorRate: 0.02},
		{ABegin: 120, AEnd: 220, BBegin: 120, BEnd: 220, ErrorRate: 0.02},
	}
	ov, err := FindLocalOverlap(300, 300, false, segs, 20, 4.0)
	if err != nil {
		t.Fatalf("FindLocalOverlap: %v", err)
	}
	if ov == nil {
		t.Fatalf("expected an overlap")
	}
	if ov.NumPieces != 2 {
		t.Fatalf("NumPieces = %d, want 2", ov.NumPieces)
	}
	if ov.IsComplement {
		t.Fatalf("expected IsComplement == false")
	}
	mid := ov.Chain[1]
	if mid.AGap != 20 || mid.BGap != 20 {
		t.Fatalf("gap between pieces = (%d,%d), want (20,20)", mid.AGap, mid.BGap)
	}
	if mid.Type != GapMinor {
		t.Fatalf("gap type = %v, want minor", mid.Type)
	}
}

func TestRepeatInsertion(t *testing.T) {
	segs := []Segment{
		{ABegin: 0, AEnd: 50, BBegin: 0, BEnd: 50, ErrorRate: 0.01},
		{ABegin: 53, AEnd: 103, BBegin: 40, BEnd: 90, ErrorRate: 0.01},
	}
	ov, err := FindLocalOverlap(200, 200, false, segs, 5, 4.0)
	if err != nil {
		t.Fatalf("FindLocalOverlap: %v", err)
	}
	if ov == nil {
		t.Fatalf("expected an overlap")
	}
	if ov.NumPieces != 2 {
		t.Fatalf("NumPieces = %d, want 2", ov.NumPieces)
	}
	gap := ov.Chain[1]
	if gap.BGap >= 0 {
		t.Fatalf("b_gap = %d, want negative", gap.BGap)
	}
	if gap.Type != GapRepeat {
		t.Fatalf("gap type = %v, want repeat", gap.Type)
	}
}

func TestComplementedOverlapRestoresOriginalCoordinates(t *testing.T) {
	const blen = 1000
	orig := []Segment{
		{ABegin: 0, AEnd: 100, BBegin: 800, BEnd: 900, ErrorRate: 0.01},
		{ABegin: 120, AEnd: 220, BBegin: 680, BEnd: 780, ErrorRate: 0.01},
	}
	segs := make([]Segment, len(orig))
	copy(segs, orig)

	ov, err := FindLocalOverlap(300, blen, true, segs, 5, 4.0)
	if err != nil {
		t.Fatalf("FindLocalOverlap: %v", err)
	}
	if ov == nil {
		t.Fatalf("expected an overlap")
	}
	if !ov.IsComplement {
		t.Fatalf("expected IsComplement == true")
	}
	if ov.NumPieces != 2 {
		t.Fatalf("NumPieces = %d, want 2", ov.NumPieces)
	}
	for i, piece := range ov.Chain[:ov.NumPieces] {
		if !piece.Reversed {
			t.Fatalf("piece %d: expected Reversed == true", i)
		}
		want := orig[i]
		got := piece.Piece
		if got.ABegin != want.ABegin || got.AEnd != want.AEnd || got.BBegin != want.BBegin || got.BEnd != want.BEnd {
			t.Fatalf("piece %d coordinates = %+v, want %+v", i, got, want)
		}
	}

	// The caller's input slice must be left untouched.
	for i, s := range segs {
		if s != orig[i] {
			t.Fatalf("input segment %d mutated: got %+v, want %+v", i, s, orig[i])
		}
	}
}

func TestNextBestWithoutPriorRunReturnsNil(t *testing.T) {
	c := NewChainer(300, 300, false, []Segment{{ABegin: 0, AEnd: 30, BBegin: 0, BEnd: 30}}, 5, 4.0)
	ov, err := c.NextBest()
	if err != nil {
		t.Fatalf("NextBest: %v", err)
	}
	if ov != nil {
		t.Fatalf("expected nil overlap before Run, got %+v", ov)
	}
}

func TestNextBestAfterRunSkipsConsumedEndpoint(t *testing.T) {
	segs := []Segment{
		{ABegin: 0, AEnd: 100, BBegin: 0, BEnd: 100, ErrorRate: 0.02},
		{ABegin: 120, AEnd: 220, BBegin: 120, BEnd: 220, ErrorRate: 0.02},
	}
	c := NewChainer(300, 300, false, segs, 5, 4.0)
	first, err := c.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if first == nil {
		t.Fatalf("expected a first overlap")
	}

	// The consumed endpoint (segment 1) is skipped; segment 0 on its own
	// still reaches MinAlignedCols and ends the next-best overlap.
	second, err := c.NextBest()
	if err != nil {
		t.Fatalf("NextBest: %v", err)
	}
	if second == nil || second.NumPieces != 1 {
		t.Fatalf("expected a one-piece next-best overlap ending at segment 0, got %+v", second)
	}
	if got := second.Chain[0].Piece; got.ABegin != segs[0].ABegin || got.AEnd != segs[0].AEnd || got.BBegin != segs[0].BBegin || got.BEnd != segs[0].BEnd {
		t.Fatalf("next-best piece = %+v, want segment 0 %+v", got, segs[0])
	}

	third, err := c.NextBest()
	if err != nil {
		t.Fatalf("NextBest: %v", err)
	}
	if third != nil {
		t.Fatalf("expected no further overlap once both chain endpoints are consumed, got %+v", third)
	}
}

func TestGapClassificationTable(t *testing.T) {
	cases := []struct {
		name       string
		a, b       int
		minor      int
		want       GapType
	}{
		{"boundary", 0, 0, 5, GapBoundary},
		{"minor", 2, 3, 5, GapMinor},
		{"repeat-small-a", 2, -5, 5, GapRepeat},
		{"indel-small-a", 2, 20, 5, GapIndel},
		{"disagree-small-a", 2, 7, 5, GapDisagree},
		{"repeat-negative-a", -2, 1, 5, GapRepeat},
		{"repeat-and-indel-negative-a", -2, 10, 5, GapRepeatAndIndel},
		{"indel-small-b", 20, 2, 5, GapIndel},
		{"disagree-small-b", 7, 2, 5, GapDisagree},
		{"repeat-and-indel-negative-b", 20, -2, 5, GapRepeatAndIndel},
		{"disagree-fallthrough", 20, 20, 5, GapDisagree},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyGap(tc.a, tc.b, tc.minor, 4.0)
			assert.Equalf(t, tc.want, got, "classifyGap(%d,%d,%d)", tc.a, tc.b, tc.minor)
		})
	}
}

func TestDedupSegmentsDropsRepeatedTuples(t *testing.T) {
	segs := []Segment{
		{ABegin: 0, AEnd: 50, BBegin: 0, BEnd: 50, Score: 1},
		{ABegin: 60, AEnd: 110, BBegin: 60, BEnd: 110, Score: 2},
		{ABegin: 0, AEnd: 50, BBegin: 0, BEnd: 50, Score: 99},
	}
	deduped := DedupSegments(segs)
	require.Len(t, deduped, 2)
	assert.Equal(t, 1, deduped[0].Score, "first occurrence's Score should be kept")
	assert.Equal(t, 2, deduped[1].Score)
}

func TestDedupSegmentsEmpty(t *testing.T) {
	deduped := DedupSegments(nil)
	assert.Empty(t, deduped)
}
