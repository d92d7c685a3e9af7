package imaging

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/video-brightness-mcp/internal/video"
)

// Lightness returns the perceptual lightness L* (0-100) of a BGR pixel.
//
// # Conversion
//
// The pixel is treated as sRGB and converted to CIE Lab under the D65 white
// point. L is then quantized the way 8-bit Lab rasters store it:
//
//	l8 = round(L * 255 / 100)
//	L* = l8 * 100 / 255
//
// so results step in increments of 100/255 (about 0.39).
func Lightness(b, g, r uint8) float64 {
	c := colorful.Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}
	l, _, _ := c.Lab() // l is L/100
	l8 := math.Round(l * 255)
	if l8 < 0 {
		l8 = 0
	} else if l8 > 255 {
		l8 = 255
	}
	return l8 * 100 / 255
}

// pixelBlock holds the two per-pixel signals of a clamped window, row-major.
type pixelBlock struct {
	width, height int
	lightness     []float64
	blue          []float64
}

// extractBlock reads L* and the raw blue channel for every pixel in b.
// Conversions are memoized per color since video regions tend to repeat a
// small palette.
func extractBlock(f video.Frame, b Bounds) pixelBlock {
	w, h := b.Dx(), b.Dy()
	blk := pixelBlock{
		width:     w,
		height:    h,
		lightness: make([]float64, 0, w*h),
		blue:      make([]float64, 0, w*h),
	}
	memo := make(map[uint32]float64)
	for y := b.MinY; y < b.MaxY; y++ {
		for x := b.MinX; x < b.MaxX; x++ {
			bl, g, r := f.BGR(x, y)
			key := uint32(bl)<<16 | uint32(g)<<8 | uint32(r)
			l, ok := memo[key]
			if !ok {
				l = Lightness(bl, g, r)
				memo[key] = l
			}
			blk.lightness = append(blk.lightness, l)
			blk.blue = append(blk.blue, float64(bl))
		}
	}
	return blk
}
