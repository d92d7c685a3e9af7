package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
)

// openMask applies a morphological opening (erosion followed by dilation)
// with a 3x3 square structuring element to a row-major boolean mask.
//
// Opening removes foreground specks smaller than the structuring element
// while leaving larger blobs at their original extent. Borders are handled
// by replicating edge pixels, which for min/max filters is equivalent to
// ignoring out-of-frame neighbors.
func openMask(mask []bool, width, height int) []bool {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i, on := range mask {
		if on {
			img.Pix[i] = 0xff
		}
	}

	// radius 1 gives a 2*1+1 = 3 pixel square window
	opened := effect.Dilate(effect.Erode(img, 1), 1)

	out := make([]bool, len(mask))
	for i := range out {
		out[i] = opened.Pix[4*i] != 0
	}
	return out
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
