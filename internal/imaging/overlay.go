package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ironsheep/video-brightness-mcp/internal/video"
)

// Default outline colors by role.
const (
	DefaultMeasurementColor = "#00FF00"
	DefaultBackgroundColor  = "#FF00FF"
)

// OverlayOptions controls RegionOverlay rendering.
type OverlayOptions struct {
	MeasurementColor string  // Hex outline color for measurement regions
	BackgroundColor  string  // Hex outline color for the background region
	ShowIndices      bool    // Draw each region's index at its top-left corner
	Scale            float64 // Output scale factor; 0 or 1 keeps the frame size
}

// RegionOverlay draws the outline of every region onto a copy of frame and
// returns it as base64 PNG. Regions with no area inside the frame are
// skipped.
func RegionOverlay(frame video.Frame, regions RegionSet, opts OverlayOptions) (*PreviewResult, error) {
	if err := frame.Validate(); err != nil {
		return nil, &DataError{Err: err}
	}

	measureColor, err := parseHexColor(opts.MeasurementColor)
	if err != nil {
		measureColor, _ = parseHexColor(DefaultMeasurementColor)
	}
	bgColor, err := parseHexColor(opts.BackgroundColor)
	if err != nil {
		bgColor, _ = parseHexColor(DefaultBackgroundColor)
	}

	src := frame.ToNRGBA()
	result := image.NewRGBA(src.Bounds())
	draw.Draw(result, src.Bounds(), src, image.Point{}, draw.Src)

	labelColor := color.RGBA{255, 255, 255, 255}
	labelBg := color.RGBA{0, 0, 0, 180}

	for i, r := range regions {
		b := r.Clamp(frame.Width, frame.Height)
		if b.Empty() {
			continue
		}
		c := measureColor
		if r.IsBackground() {
			c = bgColor
		}
		drawOutline(result, b, c)
		if opts.ShowIndices {
			drawLabel(result, b.MinX+2, b.MinY+2, strconv.Itoa(i), labelColor, labelBg)
		}
	}

	scale := opts.Scale
	if scale == 0 {
		scale = 1.0
	}
	return encodePreview(frame.Index, result, scale)
}

// drawOutline strokes the one-pixel border of b.
func drawOutline(img *image.RGBA, b Bounds, c color.RGBA) {
	for x := b.MinX; x < b.MaxX; x++ {
		img.Set(x, b.MinY, c)
		img.Set(x, b.MaxY-1, c)
	}
	for y := b.MinY; y < b.MaxY; y++ {
		img.Set(b.MinX, y, c)
		img.Set(b.MaxX-1, y, c)
	}
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, errors.New("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, errors.Errorf("invalid hex color length %d", len(hex))
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// drawLabel draws digits in a 3x5 pixel font on a dark box at (x, y).
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			px, py := x+dx, y+dy
			if image.Pt(px, py).In(bounds) {
				img.Set(px, py, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					px, py := cx+col, y+row
					if image.Pt(px, py).In(bounds) {
						img.Set(px, py, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
