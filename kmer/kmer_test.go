package kmer

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	seq := "ACGTACGTTGCA"
	m, err := FromBases([]byte(seq), TwoBit)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.String(); got != seq {
		t.Fatalf("got %q want %q", got, seq)
	}
}

func TestInvalidSymbolTwoBit(t *testing.T) {
	if _, err := FromBases([]byte("ACGN"), TwoBit); err == nil {
		t.Fatal("expected error for N in two-bit encoding")
	}
}

func TestThreeBitAcceptsN(t *testing.T) {
	seq := "ACGNT"
	m, err := FromBases([]byte(seq), ThreeBit)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.String(); got != seq {
		t.Fatalf("got %q want %q", got, seq)
	}
}

func TestReverseComplementInvolution(t *testing.T) {
	for _, seq := range []string{"A", "AC", "ACGT", "GATTACA", "TTTTTTTTTTTTTTTTTTTTTTTTTTTTTTT"} {
		m, err := FromBases([]byte(seq), TwoBit)
		if err != nil {
			t.Fatal(err)
		}
		rc := m.ReverseComplement()
		back := rc.ReverseComplement()
		if !back.Equal(m) {
			t.Fatalf("reverse complement not an involution for %q", seq)
		}
	}
}

func TestReverseComplementValue(t *testing.T) {
	m, err := FromBases([]byte("ACGT"), TwoBit)
	if err != nil {
		t.Fatal(err)
	}
	rc := m.ReverseComplement()
	if got := rc.String(); got != "ACGT" {
		t.Fatalf("got %q want %q (ACGT is its own revcomp)", got, "ACGT")
	}
}

func TestCanonicalAgreesWithReverseComplement(t *testing.T) {
	m, err := FromBases([]byte("TTTTACGTG"), TwoBit)
	if err != nil {
		t.Fatal(err)
	}
	rc := m.ReverseComplement()
	if m.Canonical() != rc.Canonical() {
		t.Fatalf("canonical(m) must equal canonical(revcomp(m))")
	}
}

func TestCanonicalIdempotent(t *testing.T) {
	m, err := FromBases([]byte("GGCATTACA"), TwoBit)
	if err != nil {
		t.Fatal(err)
	}
	c := m.Canonical()
	if c.Canonical() != c {
		t.Fatalf("canonical(canonical(m)) must equal canonical(m)")
	}
}

func TestThreeBitNSelfComplement(t *testing.T) {
	m, err := FromBases([]byte("N"), ThreeBit)
	if err != nil {
		t.Fatal(err)
	}
	rc := m.ReverseComplement()
	if rc.String() != "N" {
		t.Fatalf("N must be its own complement, got %q", rc.String())
	}
}

func TestAppendSlidesWindow(t *testing.T) {
	m, err := FromBases([]byte("ACGT"), TwoBit)
	if err != nil {
		t.Fatal(err)
	}
	next, err := m.Append('A')
	if err != nil {
		t.Fatal(err)
	}
	if got := next.String(); got != "CGTA" {
		t.Fatalf("got %q want %q", got, "CGTA")
	}
}

func TestKBoundaries(t *testing.T) {
	if _, err := FromBases([]byte(""), TwoBit); err == nil {
		t.Fatal("expected error for k=0")
	}
	seq := make([]byte, MaxK)
	for i := range seq {
		seq[i] = "ACGT"[i%4]
	}
	m, err := FromBases(seq, TwoBit)
	if err != nil {
		t.Fatal(err)
	}
	if m.K() != MaxK {
		t.Fatalf("got k=%d want %d", m.K(), MaxK)
	}
	if got := m.String(); got != string(seq) {
		t.Fatalf("round trip failed at k=MaxK")
	}
}

func TestPackUnpackBase5(t *testing.T) {
	for a := uint8(0); a <= 4; a++ {
		for b := uint8(0); b <= 4; b++ {
			for c := uint8(0); c <= 4; c++ {
				packed, err := PackBase5([3]uint8{a, b, c})
				if err != nil {
					t.Fatal(err)
				}
				got := UnpackBase5(packed)
				if got != ([3]uint8{a, b, c}) {
					t.Fatalf("got %v want %v", got, [3]uint8{a, b, c})
				}
			}
		}
	}
}
