package video

import (
	"image"

	"github.com/pkg/errors"
)

// ErrMalformedFrame is returned by Frame.Validate when the pixel buffer does
// not match the frame dimensions.
var ErrMalformedFrame = errors.New("malformed frame")

// Frame is a decoded BGR raster.
type Frame struct {
	Index  int    // Frame index within the source (0-based)
	Width  int    // Width in pixels
	Height int    // Height in pixels
	Pix    []byte // Packed B,G,R bytes, row-major, stride 3*Width
}

// NewFrame allocates a black frame of the given size.
func NewFrame(index, width, height int) Frame {
	return Frame{
		Index:  index,
		Width:  width,
		Height: height,
		Pix:    make([]byte, 3*width*height),
	}
}

// FromImage converts any image into a BGR frame.
func FromImage(index int, img image.Image) Frame {
	b := img.Bounds()
	f := NewFrame(index, b.Dx(), b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			f.Pix[i] = uint8(bl >> 8)
			f.Pix[i+1] = uint8(g >> 8)
			f.Pix[i+2] = uint8(r >> 8)
			i += 3
		}
	}
	return f
}

// Empty reports whether the frame carries no pixels.
func (f Frame) Empty() bool {
	return len(f.Pix) == 0
}

// Validate checks that the buffer length matches the dimensions.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Wrapf(ErrMalformedFrame, "non-positive size %dx%d", f.Width, f.Height)
	}
	if want := 3 * f.Width * f.Height; len(f.Pix) != want {
		return errors.Wrapf(ErrMalformedFrame, "pixel buffer is %d bytes, want %d", len(f.Pix), want)
	}
	return nil
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	c := f
	if f.Pix != nil {
		c.Pix = make([]byte, len(f.Pix))
		copy(c.Pix, f.Pix)
	}
	return c
}

// BGR returns the channel values at (x, y). The caller must stay in bounds.
func (f Frame) BGR(x, y int) (b, g, r uint8) {
	i := 3 * (y*f.Width + x)
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// ToNRGBA converts the frame to an opaque *image.NRGBA.
func (f Frame) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	n := f.Width * f.Height
	for i := 0; i < n && 3*i+2 < len(f.Pix); i++ {
		img.Pix[4*i] = f.Pix[3*i+2]
		img.Pix[4*i+1] = f.Pix[3*i+1]
		img.Pix[4*i+2] = f.Pix[3*i]
		img.Pix[4*i+3] = 0xff
	}
	return img
}
