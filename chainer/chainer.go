package chainer

import (
	"math"
	"sort"

	"github.com/grailbio/kmerchain/chainer/avlost"
)

const noStart = -1
const noSource = -1

// workingSegment is a Segment normalized for the sweep: B coordinates
// reflected for a complement search and reordered so bBegin <= bEnd,
// with reversed recording whether that reorder happened so the
// original orientation can be restored in the result.
type workingSegment struct {
	aBegin, aEnd int
	bBegin, bEnd int
	score        int
	errorRate    float64
	reversed     bool
}

type traceElem struct {
	value       int
	source      int
	start       int
	colsAligned int
}

type event struct {
	seg     int
	isBegin bool
}

// Chainer holds the sweep state for one segment set across repeated
// NextBest calls, replacing the source algorithm's process-global
// trace array.
type Chainer struct {
	alen, blen  int
	complement  bool
	minorThresh int
	gapThresh   float64

	origLen int
	segs    []workingSegment
	trace   []traceElem
	swept   bool
}

// NewChainer prepares a chaining run over segs. No sweep happens
// until Run is called.
func NewChainer(alen, blen int, complement bool, segs []Segment, minorThresh int, gapThresh float64) *Chainer {
	c := &Chainer{alen: alen, blen: blen, complement: complement, minorThresh: minorThresh, gapThresh: gapThresh}
	c.segs = make([]workingSegment, len(segs))
	for i, s := range segs {
		bb, be := s.BBegin, s.BEnd
		if complement {
			bb, be = blen-bb, blen-be
		}
		reversed := false
		if bb > be {
			bb, be = be, bb
			reversed = true
		}
		c.segs[i] = workingSegment{
			aBegin: s.ABegin, aEnd: s.AEnd,
			bBegin: bb, bEnd: be,
			score: s.Score, errorRate: s.ErrorRate,
			reversed: reversed,
		}
	}
	c.origLen = len(segs)
	return c
}

// FindLocalOverlap runs a one-shot chaining pass: equivalent to
// NewChainer(...).Run().
func FindLocalOverlap(alen, blen int, complement bool, segs []Segment, minorThresh int, gapThresh float64) (*LocalOverlap, error) {
	return NewChainer(alen, blen, complement, segs, minorThresh, gapThresh).Run()
}

// Run performs the event sweep and returns the best-scoring overlap,
// or (nil, nil) if the segment set is empty or no chain reaches
// MinAlignedCols.
func (c *Chainer) Run() (*LocalOverlap, error) {
	if c.origLen == 0 {
		return nil, nil
	}
	if err := c.sweep(); err != nil {
		return nil, err
	}
	c.swept = true
	return c.genOverlap()
}

// NextBest reconstructs the next-best overlap from the trace built by
// Run, without re-sweeping. It returns (nil, nil) if Run has not
// completed successfully.
func (c *Chainer) NextBest() (*LocalOverlap, error) {
	if !c.swept {
		return nil, nil
	}
	return c.genOverlap()
}

func buildEvents(segs []workingSegment) []event {
	events := make([]event, 0, 2*len(segs))
	for i := range segs {
		events = append(events, event{seg: i, isBegin: true}, event{seg: i, isBegin: false})
	}
	eventA := func(e event) int {
		if e.isBegin {
			return segs[e.seg].aBegin
		}
		return segs[e.seg].aEnd
	}
	eventB := func(e event) int {
		if e.isBegin {
			return segs[e.seg].bBegin
		}
		return segs[e.seg].bEnd
	}
	sort.Slice(events, func(i, j int) bool {
		ai, aj := eventA(events[i]), eventA(events[j])
		if ai != aj {
			return ai < aj
		}
		if events[i].isBegin != events[j].isBegin {
			return events[i].isBegin
		}
		return eventB(events[i]) < eventB(events[j])
	})
	return events
}

func (c *Chainer) sweep() error {
	c.trace = make([]traceElem, c.origLen)
	events := buildEvents(c.segs)

	elist := avlost.New()
	ilist := avlost.New()
	olist := avlost.New()

	for _, ev := range events {
		i := ev.seg
		ws := c.segs[i]
		ab, ae := ws.aBegin, ws.aEnd
		bb, be := ws.bBegin, ws.bEnd

		if ev.isBegin {
			best := ab + bb
			srce := noSource
			clen := elist.Len()

			p := elist.Rank(bb)
			if p > 0 {
				if cand, ok := elist.Select(p); ok {
					if altr := cand.Base + (ab + bb); altr < best {
						best, srce = altr, cand.Segment
					}
				}
			}
			for q := p + 1; q <= clen; q++ {
				cand, ok := elist.Select(q)
				if !ok {
					break
				}
				if cand.Start > be-MinUsable {
					break
				}
				if altr := cand.Base + 2*cand.Start + (ab - bb); altr < best {
					best, srce = altr, cand.Segment
				}
			}

			bdiag := bb - ab
			ldiag := bdiag + (ae - ab - MinUsable)
			if m, ok := ilist.MinPrefix(bdiag); ok {
				if altr := m.Base + bdiag; altr < best {
					best, srce = altr, m.Segment
				}
			}
			if m, ok := olist.MinRange(-ldiag, -bdiag); ok {
				if altr := m.Base - bdiag; altr < best {
					best, srce = altr, m.Segment
				}
			}

			c.trace[i].value = best
			c.trace[i].source = srce
			colsAligned := int((1 - ws.errorRate) * float64(minInt(ae-ab, be-bb)+1))
			if srce >= 0 {
				c.trace[i].start = c.trace[srce].start
				c.trace[i].colsAligned = colsAligned + c.trace[srce].colsAligned
			} else {
				c.trace[i].start = i
				c.trace[i].colsAligned = colsAligned
			}

			d := be - ae
			ilist.Insert(avlost.Candidate{Start: d, Segment: i, Base: best - d})
			olist.Insert(avlost.Candidate{Start: -d, Segment: i, Base: best + d})
		} else {
			best := c.trace[i].value
			clen := elist.Len()
			off := be + ae

			p := elist.Rank(be)
			var cand avlost.Candidate
			var haveCand bool
			if p != 0 {
				cand, haveCand = elist.Select(p)
			}
			if p == 0 || (haveCand && best < cand.Base+off) {
				p++
				for p <= clen {
					cur, ok := elist.Select(p)
					if !ok || cur.Base+off < best {
						break
					}
					elist.Delete(cur.Start, cur.Segment)
					clen--
				}
				p--
				if p > 0 {
					if cur, ok := elist.Select(p); ok && cur.Start == be {
						elist.Delete(cur.Start, cur.Segment)
					}
				}
				elist.Insert(avlost.Candidate{Start: be, Segment: i, Base: best - off})
			}

			d := be - ae
			if !ilist.Delete(d, i) {
				return ErrCorruptInternalState
			}
			if !olist.Delete(-d, i) {
				return ErrCorruptInternalState
			}
		}
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// genOverlap scans the trace built by sweep for the best-scoring
// chain endpoint and assembles the result. It is shared by Run and
// NextBest: after a successful assembly it marks the endpoint's start
// as consumed so a later NextBest call skips it while still allowing
// the segment itself to seed other chains.
func (c *Chainer) genOverlap() (*LocalOverlap, error) {
	best := math.MaxInt32
	end := noSource
	for i := 0; i < c.origLen; i++ {
		tr := c.trace[i]
		if tr.start < 0 || tr.colsAligned < MinAlignedCols {
			continue
		}
		ws := c.segs[i]
		sfx := (c.alen - ws.aEnd) + (c.blen - ws.bEnd)
		if val := tr.value - 2*tr.colsAligned + sfx; val < best {
			best, end = val, i
		}
	}
	if end < 0 {
		return nil, nil
	}

	npiece := 0
	for i := end; i >= 0; i = c.trace[i].source {
		npiece++
	}
	pieceSegs := make([]int, npiece)
	n := npiece
	for i := end; i >= 0; i = c.trace[i].source {
		n--
		pieceSegs[n] = i
	}

	chain := make([]Chain, npiece+1)
	for idx, segIdx := range pieceSegs {
		ws := c.segs[segIdx]
		chain[idx].Piece = Segment{ABegin: ws.aBegin, AEnd: ws.aEnd, BBegin: ws.bBegin, BEnd: ws.bEnd, Score: ws.score, ErrorRate: ws.errorRate}
	}
	chain[npiece].Piece = Segment{ABegin: -1, AEnd: -1, BBegin: -1, BEnd: -1, Score: -1, ErrorRate: -1}

	leadGap := minInt(chain[0].Piece.ABegin, chain[0].Piece.BBegin)
	chain[0].AGap, chain[0].BGap = leadGap, leadGap

	for i := 1; i < npiece; i++ {
		chain[i].AGap = chain[i].Piece.ABegin - chain[i-1].Piece.AEnd
		chain[i].BGap = chain[i].Piece.BBegin - chain[i-1].Piece.BEnd
	}

	trailGap := minInt(c.alen-chain[npiece-1].Piece.AEnd, c.blen-chain[npiece-1].Piece.BEnd)
	chain[npiece].AGap, chain[npiece].BGap = trailGap, trailGap

	for i := range chain {
		chain[i].Type = classifyGap(chain[i].AGap, chain[i].BGap, c.minorThresh, c.gapThresh)
	}

	var indif int
	for i := 0; i < npiece; i++ {
		sg := chain[i].Piece
		ln := ((sg.AEnd - sg.ABegin) + (sg.BEnd - sg.BBegin)) / 2
		if i > 0 && chain[i-1].Piece.ErrorRate < sg.ErrorRate {
			if chain[i].AGap < chain[i].BGap {
				if chain[i].AGap < 0 {
					ln += chain[i].AGap
				}
			} else if chain[i].BGap < 0 {
				ln += chain[i].BGap
			}
		}
		if i < npiece-1 && chain[i+1].Piece.ErrorRate <= sg.ErrorRate {
			if chain[i+1].AGap < chain[i+1].BGap {
				if chain[i+1].AGap < 0 {
					ln += chain[i+1].AGap
				}
			} else if chain[i+1].BGap < 0 {
				ln += chain[i+1].BGap
			}
		}
		if ln > 0 {
			indif += int(float64(ln) * sg.ErrorRate)
		}
	}

	diffs := indif
	for i := range chain {
		var d int
		if i > 0 && (chain[i].AGap < 0 || chain[i].BGap < 0) {
			d = absInt((chain[i].Piece.BBegin - chain[i].Piece.ABegin) - (chain[i-1].Piece.BEnd - chain[i-1].Piece.AEnd))
		} else {
			d = maxInt(chain[i].AGap, chain[i].BGap)
		}
		diffs += d
	}

	overA := (chain[npiece-1].Piece.AEnd + chain[npiece].AGap) - (chain[0].Piece.ABegin - chain[0].AGap)
	overB := (chain[npiece-1].Piece.BEnd + chain[npiece].BGap) - (chain[0].Piece.BBegin - chain[0].BGap)
	length := (overA + overB) / 2

	begOffset := chain[0].Piece.ABegin - chain[0].Piece.BBegin
	endOffset := (c.blen - chain[npiece-1].Piece.BEnd) - (c.alen - chain[npiece-1].Piece.AEnd)

	for i, segIdx := range pieceSegs {
		if c.segs[segIdx].reversed {
			chain[i].Piece.BBegin, chain[i].Piece.BEnd = chain[i].Piece.BEnd, chain[i].Piece.BBegin
			chain[i].Reversed = true
		}
		if c.complement {
			chain[i].Piece.BBegin, chain[i].Piece.BEnd = c.blen-chain[i].Piece.BBegin, c.blen-chain[i].Piece.BEnd
		}
	}

	c.trace[end].start = noStart

	return &LocalOverlap{
		NumPieces:           npiece,
		Score:               best,
		BeginOffset:         begOffset,
		EndOffset:           endOffset,
		Differences:         diffs,
		AlignedIndifference: indif,
		Length:              length,
		IsComplement:        c.complement,
		Chain:               chain,
	}, nil
}
