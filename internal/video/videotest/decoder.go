// Package videotest provides scripted decoders for tests.
package videotest

import (
	"errors"
	"io"

	"github.com/ironsheep/video-brightness-mcp/internal/video"
)

// ErrInjected is the failure returned at FailAt.
var ErrInjected = errors.New("injected decode failure")

// Decoder generates frames on demand from Render.
type Decoder struct {
	Width, Height int
	Total         int
	FailAt        int // frame index whose read fails; negative disables
	Render        func(index int, f video.Frame)

	next   int
	Reads  int
	Seeks  []int
	Closed bool
}

// Uniform returns a decoder whose frames are filled with a single BGR color
// chosen per frame by colorAt.
func Uniform(width, height, total int, colorAt func(index int) (b, g, r uint8)) *Decoder {
	return &Decoder{
		Width:  width,
		Height: height,
		Total:  total,
		FailAt: -1,
		Render: func(index int, f video.Frame) {
			b, g, r := colorAt(index)
			Fill(f, b, g, r)
		},
	}
}

// Gray returns a decoder of uniform gray frames whose level comes from levelAt.
func Gray(width, height, total int, levelAt func(index int) uint8) *Decoder {
	return Uniform(width, height, total, func(i int) (uint8, uint8, uint8) {
		v := levelAt(i)
		return v, v, v
	})
}

// Fill paints every pixel of f.
func Fill(f video.Frame, b, g, r uint8) {
	for i := 0; i+2 < len(f.Pix); i += 3 {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, r
	}
}

// FillRect paints the half-open rectangle [x1,x2)×[y1,y2).
func FillRect(f video.Frame, x1, y1, x2, y2 int, b, g, r uint8) {
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			i := 3 * (y*f.Width + x)
			f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, r
		}
	}
}

// Info describes the generated stream.
func (d *Decoder) Info() video.Info {
	return video.Info{Path: "synthetic", Width: d.Width, Height: d.Height, FPS: 10, FrameCount: d.Total}
}

// Seek records the request and moves the cursor.
func (d *Decoder) Seek(index int) error {
	d.Seeks = append(d.Seeks, index)
	d.next = index
	return nil
}

// ReadNext renders the next frame.
func (d *Decoder) ReadNext() (video.Frame, error) {
	if d.next >= d.Total {
		return video.Frame{}, io.EOF
	}
	if d.FailAt >= 0 && d.next == d.FailAt {
		return video.Frame{}, &video.DecodeError{Index: d.next, Err: ErrInjected}
	}
	f := video.NewFrame(d.next, d.Width, d.Height)
	if d.Render != nil {
		d.Render(d.next, f)
	}
	d.next++
	d.Reads++
	return f, nil
}

// Close marks the decoder closed.
func (d *Decoder) Close() error {
	d.Closed = true
	return nil
}
