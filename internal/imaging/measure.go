package imaging

import (
	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/ironsheep/video-brightness-mcp/internal/video"
)

// BrightnessSample holds the statistics of one region in one frame.
//
// The BG fields are computed over the pixels brighter than the frame's
// background level after denoising. Lightness is reported relative to that
// level; blue is reported as-is at the same pixel positions.
type BrightnessSample struct {
	LMean      float64 `json:"l_mean"`      // Mean L* over the region (0-100)
	LMedian    float64 `json:"l_median"`    // Median L* over the region
	BlueMean   float64 `json:"blue_mean"`   // Mean raw blue channel (0-255)
	BlueMedian float64 `json:"blue_median"` // Median raw blue channel

	LMeanBG      float64 `json:"l_mean_bg"`      // Mean of (L* - background) over masked pixels
	LMedianBG    float64 `json:"l_median_bg"`    // Median of (L* - background) over masked pixels
	BlueMeanBG   float64 `json:"blue_mean_bg"`   // Mean raw blue over masked pixels
	BlueMedianBG float64 `json:"blue_median_bg"` // Median raw blue over masked pixels
}

// IsZero reports whether every field is zero.
func (s BrightnessSample) IsZero() bool {
	return s == BrightnessSample{}
}

// Compute measures region in frame.
//
// Parameters:
//   - frame: The decoded BGR frame.
//   - region: Corner points in any order; clamped to the frame before use.
//   - bg: Optional background level from BackgroundLevel. nil or a value
//     <= 0 disables background thresholding.
//
// Returns:
//   - BrightnessSample: All-zero when the clamped region has no area.
//   - error: *DataError when the frame's pixel buffer is malformed.
//
// # Algorithm
//
//  1. Clamp the region and convert each pixel to L* (see Lightness)
//  2. Raw fields: mean and median of L* and of the blue channel
//  3. With a background level: mask pixels with L* > level, open the mask
//     with a 3x3 square to drop isolated noise pixels, then summarize
//     (L* - level) and raw blue over the surviving pixels. An empty mask
//     leaves the BG fields at zero.
//  4. Without a background level the BG fields copy the raw fields.
func Compute(frame video.Frame, region Region, bg *float64) (BrightnessSample, error) {
	if err := frame.Validate(); err != nil {
		return BrightnessSample{}, &DataError{Region: region, Err: err}
	}
	b := region.Clamp(frame.Width, frame.Height)
	if b.Empty() {
		return BrightnessSample{}, nil
	}

	blk := extractBlock(frame, b)

	var s BrightnessSample
	s.LMean, s.LMedian = meanMedian(blk.lightness)
	s.BlueMean, s.BlueMedian = meanMedian(blk.blue)

	if bg == nil || *bg <= 0 {
		s.LMeanBG, s.LMedianBG = s.LMean, s.LMedian
		s.BlueMeanBG, s.BlueMedianBG = s.BlueMean, s.BlueMedian
		return s, nil
	}

	level := *bg
	mask := make([]bool, len(blk.lightness))
	for i, l := range blk.lightness {
		mask[i] = l > level
	}
	mask = openMask(mask, blk.width, blk.height)

	var above, blue []float64
	for i, on := range mask {
		if on {
			above = append(above, blk.lightness[i]-level)
			blue = append(blue, blk.blue[i])
		}
	}
	if len(above) == 0 {
		return s, nil
	}
	s.LMeanBG, s.LMedianBG = meanMedian(above)
	s.BlueMeanBG, s.BlueMedianBG = meanMedian(blue)
	return s, nil
}

// ComputeOrZero is Compute for long scans: a DataError is logged and
// replaced by the zero sample so the scan can continue.
func ComputeOrZero(frame video.Frame, region Region, bg *float64, logger *zap.Logger) BrightnessSample {
	s, err := Compute(frame, region, bg)
	if err != nil {
		if logger != nil {
			logger.Warn("substituting zero sample",
				zap.Int("frame", frame.Index),
				zap.Stringer("region", region),
				zap.Error(err))
		}
		return BrightnessSample{}
	}
	return s
}

// meanMedian returns (0, 0) for empty input.
func meanMedian(vals []float64) (float64, float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	data := stats.Float64Data(vals)
	mean, err := stats.Mean(data)
	if err != nil {
		return 0, 0
	}
	median, err := stats.Median(data)
	if err != nil {
		return 0, 0
	}
	return mean, median
}
