package analysis

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// WritePlot saves a PNG line chart of each region's background-referenced
// mean L* against time. The x axis is seconds when fps is positive and
// frame numbers otherwise.
func WritePlot(path string, res *Result, fps float64) error {
	if res.Frames == 0 {
		return errors.New("no frames to plot")
	}

	p := plot.New()
	p.Title.Text = "Region Brightness"
	p.X.Label.Text = "Time (s)"
	if fps <= 0 {
		p.X.Label.Text = "Frame"
	}
	p.Y.Label.Text = "L* above background"
	if !res.HasBackground {
		p.Y.Label.Text = "L*"
	}

	colors := palette(len(res.Series))
	for i, s := range res.Series {
		pts := make(plotter.XYs, 0, res.Frames)
		for j := 0; j < res.Frames; j++ {
			x := float64(res.Start + j)
			if fps > 0 {
				x /= fps
			}
			pts = append(pts, plotter.XY{X: x, Y: s.Samples[j].LMeanBG})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrapf(err, "failed to build line for %s", s.Name())
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.Name(), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save plot to %s", path)
	}
	return nil
}

// palette spreads n colors evenly around the hue wheel.
func palette(n int) []color.Color {
	colors := make([]color.Color, n)
	for i := range colors {
		colors[i] = colorful.Hsl(360*float64(i)/float64(n), 0.7, 0.5).Clamped()
	}
	return colors
}
