package chainer

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// classifyGap assigns a GapType to a gap (aGap, bGap) between two
// consecutive chain pieces. gapThresh generalizes the original fixed
// 4x ratio gate between indel and disagree; pass 4.0 to match it.
func classifyGap(aGap, bGap, minorThresh int, gapThresh float64) GapType {
	switch {
	case absInt(aGap) <= minorThresh && absInt(bGap) <= minorThresh:
		if aGap != 0 || bGap != 0 {
			return GapMinor
		}
		return GapBoundary

	case absInt(aGap) <= minorThresh:
		switch {
		case bGap < 0:
			return GapRepeat
		case float64(bGap) > gapThresh*float64(aGap):
			return GapIndel
		default:
			return GapDisagree
		}

	case aGap < 0:
		if bGap < minorThresh {
			return GapRepeat
		}
		return GapRepeatAndIndel

	case absInt(bGap) < minorThresh:
		if float64(aGap) > gapThresh*float64(bGap) {
			return GapIndel
		}
		return GapDisagree

	case bGap < 0:
		return GapRepeatAndIndel

	default:
		return GapDisagree
	}
}
