package chainer

import (
	"encoding/binary"

	farm "github.com/dgryski/go-farm"
)

// DedupSegments drops segments that repeat an exact (ABegin, AEnd,
// BBegin, BEnd) tuple already seen earlier in segs, preserving the
// order of first occurrence. Overlap search pipelines often feed a
// chainer a segment list assembled from several seed-extension passes
// that can rediscover the same ungapped alignment more than once;
// DedupSegments is a cheap pre-pass so the sweep's event lists don't
// carry duplicate candidates with identical keys.
func DedupSegments(segs []Segment) []Segment {
	seen := make(map[uint64]struct{}, len(segs))
	out := make([]Segment, 0, len(segs))
	var buf [32]byte
	for _, s := range segs {
		binary.LittleEndian.PutUint64(buf[0:8], uint64(s.ABegin))
		binary.LittleEndian.PutUint64(buf[8:16], uint64(s.AEnd))
		binary.LittleEndian.PutUint64(buf[16:24], uint64(s.BBegin))
		binary.LittleEndian.PutUint64(buf[24:32], uint64(s.BEnd))
		h := farm.Hash64(buf[:])
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, s)
	}
	return out
}
