package cutranges

import "github.com/forPelevin/montage/internal/types"

// Fallback derives ranges straight from transcript segment boundaries, one per
// segment in transcript order. Without segments it returns two placeholder
// ranges, [0,30) and [30,90).
func Fallback(segments []types.Segment) []types.CutRange {
	if len(segments) == 0 {
		return []types.CutRange{
			{Start: 0, End: 30},
			{Start: 30, End: 90},
		}
	}
	out := make([]types.CutRange, 0, len(segments))
	for _, s := range segments {
		out = append(out, types.CutRange{Start: s.Start, End: s.End})
	}
	return out
}
