package imaging

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ironsheep/video-brightness-mcp/internal/video"
)

// uniformFrame creates a frame filled with one BGR color.
func uniformFrame(width, height int, b, g, r uint8) video.Frame {
	f := video.NewFrame(0, width, height)
	for i := 0; i < len(f.Pix); i += 3 {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, r
	}
	return f
}

// fillRect paints [x1,x2)×[y1,y2) with a gray level.
func fillRect(f video.Frame, x1, y1, x2, y2 int, v uint8) {
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			i := 3 * (y*f.Width + x)
			f.Pix[i], f.Pix[i+1], f.Pix[i+2] = v, v, v
		}
	}
}

// analyticL computes CIE L* for an sRGB color straight from the definition.
func analyticL(b, g, r uint8) float64 {
	lin := func(c uint8) float64 {
		v := float64(c) / 255
		if v <= 0.04045 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	y := 0.2126*lin(r) + 0.7152*lin(g) + 0.0722*lin(b)
	f := y
	if y > 216.0/24389.0 {
		f = math.Cbrt(y)
	} else {
		f = (24389.0/27.0*y + 16) / 116
	}
	return 116*f - 16
}

func TestCompute_UniformMatchesAnalyticLightness(t *testing.T) {
	colors := []struct {
		name    string
		b, g, r uint8
	}{
		{"black", 0, 0, 0},
		{"white", 255, 255, 255},
		{"mid gray", 128, 128, 128},
		{"orange", 0, 128, 255},
		{"teal", 160, 128, 0},
		{"dark blue", 90, 10, 10},
	}
	region := Region{X1: 2, Y1: 2, X2: 12, Y2: 10}

	for _, tt := range colors {
		t.Run(tt.name, func(t *testing.T) {
			f := uniformFrame(16, 12, tt.b, tt.g, tt.r)
			s, err := Compute(f, region, nil)
			require.NoError(t, err)

			want := analyticL(tt.b, tt.g, tt.r)
			assert.InDelta(t, want, s.LMean, 0.3)
			assert.InDelta(t, want, s.LMedian, 0.3)
			assert.Equal(t, float64(tt.b), s.BlueMean)
			assert.Equal(t, float64(tt.b), s.BlueMedian)
		})
	}
}

func TestCompute_DegenerateRegions(t *testing.T) {
	f := uniformFrame(20, 20, 200, 200, 200)
	tests := []struct {
		name   string
		region Region
	}{
		{"zero width", Region{X1: 5, Y1: 0, X2: 5, Y2: 10}},
		{"zero height", Region{X1: 0, Y1: 7, X2: 10, Y2: 7}},
		{"right of frame", Region{X1: 30, Y1: 0, X2: 40, Y2: 10}},
		{"below frame", Region{X1: 0, Y1: 25, X2: 10, Y2: 40}},
		{"negative", Region{X1: -10, Y1: -10, X2: -1, Y2: -1}},
		{"single column at edge", Region{X1: 19, Y1: 0, X2: 25, Y2: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level := 10.0
			for _, bg := range []*float64{nil, &level} {
				s, err := Compute(f, tt.region, bg)
				require.NoError(t, err)
				assert.True(t, s.IsZero(), "got %+v", s)
			}
		})
	}
}

func TestCompute_CornerOrderIrrelevant(t *testing.T) {
	f := uniformFrame(20, 20, 10, 10, 10)
	fillRect(f, 0, 0, 8, 8, 240)

	a, err := Compute(f, Region{X1: 2, Y1: 3, X2: 14, Y2: 12}, nil)
	require.NoError(t, err)
	b, err := Compute(f, Region{X1: 14, Y1: 12, X2: 2, Y2: 3}, nil)
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("swapped corners changed the sample (-want +got):\n%s", diff)
	}
}

func TestCompute_ZeroBackgroundEqualsRaw(t *testing.T) {
	f := uniformFrame(24, 24, 0, 0, 0)
	fillRect(f, 4, 4, 12, 12, 180)
	fillRect(f, 15, 15, 16, 16, 90)
	region := Region{X1: 0, Y1: 0, X2: 20, Y2: 20}

	zero := 0.0
	withZero, err := Compute(f, region, &zero)
	require.NoError(t, err)
	without, err := Compute(f, region, nil)
	require.NoError(t, err)

	assert.Equal(t, without, withZero)
	assert.Equal(t, withZero.LMean, withZero.LMeanBG)
	assert.Equal(t, withZero.LMedian, withZero.LMedianBG)
	assert.Equal(t, withZero.BlueMean, withZero.BlueMeanBG)
	assert.Equal(t, withZero.BlueMedian, withZero.BlueMedianBG)
}

func TestCompute_BackgroundMaskAndOpening(t *testing.T) {
	f := uniformFrame(30, 30, 20, 20, 20)
	fillRect(f, 5, 5, 11, 11, 200)   // 6x6 lit blob survives opening
	fillRect(f, 20, 20, 21, 21, 250) // isolated hot pixel is removed
	region := Region{X1: 0, Y1: 0, X2: 28, Y2: 28}

	level := 30.0
	s, err := Compute(f, region, &level)
	require.NoError(t, err)

	lit := Lightness(200, 200, 200)
	assert.InDelta(t, lit-level, s.LMeanBG, 1e-9)
	assert.InDelta(t, lit-level, s.LMedianBG, 1e-9)

	// blue is masked, not baseline-subtracted
	assert.Equal(t, 200.0, s.BlueMeanBG)
	assert.Equal(t, 200.0, s.BlueMedianBG)

	// raw fields still see every pixel
	assert.Less(t, s.LMean, lit)
	assert.Equal(t, Lightness(20, 20, 20), s.LMedian)
}

func TestCompute_EmptyMaskZeroesBackgroundFields(t *testing.T) {
	f := uniformFrame(10, 10, 100, 100, 100)
	level := 99.0
	s, err := Compute(f, Region{X1: 0, Y1: 0, X2: 9, Y2: 9}, &level)
	require.NoError(t, err)

	assert.Greater(t, s.LMean, 0.0)
	assert.Equal(t, 100.0, s.BlueMean)
	assert.Zero(t, s.LMeanBG)
	assert.Zero(t, s.LMedianBG)
	assert.Zero(t, s.BlueMeanBG)
	assert.Zero(t, s.BlueMedianBG)
}

func TestCompute_OnlySpecksAboveLevel(t *testing.T) {
	f := uniformFrame(20, 20, 10, 10, 10)
	for _, p := range [][2]int{{3, 3}, {8, 12}, {15, 5}} {
		fillRect(f, p[0], p[1], p[0]+1, p[1]+1, 255)
	}
	level := 20.0
	s, err := Compute(f, Region{X1: 0, Y1: 0, X2: 19, Y2: 19}, &level)
	require.NoError(t, err)
	assert.Zero(t, s.LMeanBG, "isolated pixels should not survive opening")
}

func TestCompute_MalformedFrame(t *testing.T) {
	f := video.Frame{Index: 4, Width: 10, Height: 10, Pix: make([]byte, 12)}
	region := Region{X1: 0, Y1: 0, X2: 5, Y2: 5}

	_, err := Compute(f, region, nil)
	var de *DataError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, video.ErrMalformedFrame)

	s := ComputeOrZero(f, region, nil, zaptest.NewLogger(t))
	assert.True(t, s.IsZero())
}

func TestCompute_FiniteOnExtremes(t *testing.T) {
	f := uniformFrame(8, 8, 255, 255, 255)
	level := 100.0
	s, err := Compute(f, Region{X1: 0, Y1: 0, X2: 8, Y2: 8}, &level)
	require.NoError(t, err)
	for _, v := range []float64{s.LMean, s.LMedian, s.BlueMean, s.BlueMedian,
		s.LMeanBG, s.LMedianBG, s.BlueMeanBG, s.BlueMedianBG} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestLightness_Range(t *testing.T) {
	assert.Equal(t, 0.0, Lightness(0, 0, 0))
	assert.Equal(t, 100.0, Lightness(255, 255, 255))

	// quantized to the 8-bit Lab scale
	for _, v := range []uint8{1, 37, 128, 201} {
		l := Lightness(v, v, v)
		steps := l * 255 / 100
		assert.InDelta(t, math.Round(steps), steps, 1e-9)
	}
}

func TestOpenMask(t *testing.T) {
	const w, h = 8, 6
	mask := make([]bool, w*h)
	set := func(x, y int) { mask[y*w+x] = true }
	for y := 1; y < 4; y++ {
		for x := 1; x < 4; x++ {
			set(x, y)
		}
	}
	set(6, 5)

	opened := openMask(mask, w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			inBlock := x >= 1 && x < 4 && y >= 1 && y < 4
			assert.Equal(t, inBlock, opened[y*w+x], "pixel (%d,%d)", x, y)
		}
	}
}
