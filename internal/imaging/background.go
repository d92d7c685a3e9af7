package imaging

import (
	"math"
	"sort"

	"github.com/ironsheep/video-brightness-mcp/internal/video"
)

// BackgroundPercentile is the percentile of L* used as the background level.
// A high percentile tracks the region's lit floor while a few hot pixels
// cannot drag it upward the way they would drag a mean.
const BackgroundPercentile = 90

// BackgroundLevel returns the L* baseline of frame inside region.
//
// It reports false when region is nil, the frame has no valid pixels, or the
// clamped region has no area.
func BackgroundLevel(frame video.Frame, region *Region) (float64, bool) {
	if region == nil || frame.Validate() != nil {
		return 0, false
	}
	b := region.Clamp(frame.Width, frame.Height)
	if b.Empty() {
		return 0, false
	}
	blk := extractBlock(frame, b)
	return Percentile(blk.lightness, BackgroundPercentile), true
}

// Percentile returns the p-th percentile (0-100) of vals using linear
// interpolation between the two nearest ranks:
//
//	rank = p/100 * (n-1)
//	value = v[floor(rank)] + (v[ceil(rank)] - v[floor(rank)]) * frac(rank)
//
// vals is not modified. Empty input yields 0.
func Percentile(vals []float64, p float64) float64 {
	n := len(vals)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, vals)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}
