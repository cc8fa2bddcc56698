package kmer

import "github.com/pkg/errors"

// Encoding selects the alphabet a Kmer's packed bits are interpreted
// under.
type Encoding uint8

const (
	// TwoBit packs A/C/G/T only, two bits per base.
	TwoBit Encoding = iota
	// ThreeBit packs A/C/G/T/N, three bits per base.
	ThreeBit
)

func (e Encoding) bitsPerBase() uint {
	if e == ThreeBit {
		return 3
	}
	return 2
}

// MaxK is the largest k-mer width supported: at k=31 a two-bit encoding
// still fits in 62 bits of a uint64, leaving room for sign-safe
// arithmetic elsewhere in the toolkit.
const MaxK = 31

// Kmer is an immutable, fixed-width packed nucleotide sequence. Its size
// (K) is set at construction and never changes; ReverseComplement and
// Canonical are pure functions returning new values.
type Kmer struct {
	bases uint64
	k     uint8
	enc   Encoding
}

// K returns the k-mer's width in bases.
func (m Kmer) K() uint8 { return m.k }

// Encoding returns the k-mer's alphabet.
func (m Kmer) Encoding() Encoding { return m.enc }

// Bits returns the packed representation: 2 or 3 bits per base,
// depending on Encoding, with the first base occupying the
// highest-order bits.
func (m Kmer) Bits() uint64 { return m.bases }

// ErrInvalidK is returned when a k outside [1, MaxK] is requested.
var ErrInvalidK = errors.New("kmer: k must be in [1, MaxK]")

// FromBits constructs a Kmer directly from its packed representation,
// without validating that bits outside the packed width are clear. Used
// by callers (merstream's sliding-window reader, positiondb) that
// already maintain the packed form themselves.
func FromBits(bits uint64, k uint8, enc Encoding) (Kmer, error) {
	if k == 0 || k > MaxK {
		return Kmer{}, ErrInvalidK
	}
	width := enc.bitsPerBase() * uint(k)
	m := maskWidth(width)
	return Kmer{bases: bits & m, k: k, enc: enc}, nil
}

// FromBases encodes a literal byte sequence into a Kmer. k is taken from
// len(bases).
func FromBases(bases []byte, enc Encoding) (Kmer, error) {
	k := len(bases)
	if k == 0 || k > MaxK {
		return Kmer{}, ErrInvalidK
	}
	var packed uint64
	bpb := enc.bitsPerBase()
	for _, b := range bases {
		var code uint8
		var ok bool
		if enc == ThreeBit {
			code, ok = EncodeBase3(b)
		} else {
			code, ok = EncodeBase(b)
		}
		if !ok {
			return Kmer{}, errors.Wrapf(ErrInvalidSymbol, "kmer.FromBases: byte %q", b)
		}
		packed = (packed << bpb) | uint64(code)
	}
	return Kmer{bases: packed, k: uint8(k), enc: enc}, nil
}

func maskWidth(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// Append shifts the k-mer's sliding window forward by one base, dropping
// the oldest base and adding newBase at the end; this is the primitive
// update a SequenceSource-driven scan uses to avoid re-encoding the
// whole window at each position.
func (m Kmer) Append(newBase byte) (Kmer, error) {
	bpb := m.enc.bitsPerBase()
	var code uint8
	var ok bool
	if m.enc == ThreeBit {
		code, ok = EncodeBase3(newBase)
	} else {
		code, ok = EncodeBase(newBase)
	}
	if !ok {
		return Kmer{}, errors.Wrapf(ErrInvalidSymbol, "kmer.Kmer.Append: byte %q", newBase)
	}
	width := bpb * uint(m.k)
	next := ((m.bases << bpb) | uint64(code)) & maskWidth(width)
	return Kmer{bases: next, k: m.k, enc: m.enc}, nil
}

// ReverseComplement returns the reverse complement of m. It is an
// involution: m.ReverseComplement().ReverseComplement() == m.
func (m Kmer) ReverseComplement() Kmer {
	bpb := m.enc.bitsPerBase()
	baseMask := maskWidth(bpb)
	var rc uint64
	v := m.bases
	for i := 0; i < int(m.k); i++ {
		code := uint8(v & baseMask)
		var comp uint8
		if m.enc == ThreeBit {
			comp = complement3(code)
		} else {
			comp = complement2(code)
		}
		rc = (rc << bpb) | uint64(comp)
		v >>= bpb
	}
	return Kmer{bases: rc, k: m.k, enc: m.enc}
}

// Canonical returns the lexicographically smaller of m and its reverse
// complement, under unsigned comparison of the packed bits.
func (m Kmer) Canonical() Kmer {
	rc := m.ReverseComplement()
	if rc.bases < m.bases {
		return rc
	}
	return m
}

// String decodes the k-mer back into its literal base sequence.
func (m Kmer) String() string {
	bpb := m.enc.bitsPerBase()
	baseMask := uint8(maskWidth(bpb))
	out := make([]byte, m.k)
	v := m.bases
	for i := int(m.k) - 1; i >= 0; i-- {
		code := uint8(v) & baseMask
		if m.enc == ThreeBit {
			out[i] = DecodeBase3(code)
		} else {
			out[i] = DecodeBase(code)
		}
		v >>= bpb
	}
	return string(out)
}

// Equal reports whether two k-mers carry the same width, encoding, and
// packed bits.
func (m Kmer) Equal(o Kmer) bool {
	return m.k == o.k && m.enc == o.enc && m.bases == o.bases
}
