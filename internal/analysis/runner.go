// Package analysis produces per-region brightness timeseries over a bounded
// frame range and exports them as CSV or a PNG chart.
package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ironsheep/video-brightness-mcp/internal/imaging"
	"github.com/ironsheep/video-brightness-mcp/internal/scan"
	"github.com/ironsheep/video-brightness-mcp/internal/video"
)

// RegionSeries is the sample sequence of one measurement region.
type RegionSeries struct {
	Index   int                        `json:"index"` // Position in the RegionSet
	Label   string                     `json:"label,omitempty"`
	Samples []imaging.BrightnessSample `json:"samples"` // One per frame offset
}

// Name returns the label, or "region <index>" when unlabeled.
func (s RegionSeries) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return fmt.Sprintf("region %d", s.Index)
}

// Result holds the series of one analysis run. Every series and Levels have
// exactly Frames entries; entry i belongs to frame Start+i.
type Result struct {
	Start  int            `json:"start"`
	End    int            `json:"end"`
	Series []RegionSeries `json:"series"`
	Levels []float64      `json:"levels,omitempty"` // Background level per frame, 0 when unavailable
	Frames int            `json:"frames"`

	// Delta is the manual threshold delta the range was selected with.
	Delta *float64 `json:"delta,omitempty"`

	HasBackground bool  `json:"has_background"`
	Truncated     bool  `json:"truncated"`
	Cancelled     bool  `json:"cancelled"`
	DecodeErr     error `json:"-"`
}

// Option configures Run.
type Option func(*options)

type options struct {
	sink   scan.Sink
	logger *zap.Logger
	delta  *float64
}

// WithProgress sets the progress and cancellation sink.
func WithProgress(sink scan.Sink) Option {
	return func(o *options) { o.sink = sink }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDelta records the manual delta on the result. It does not affect the
// samples.
func WithDelta(delta float64) Option {
	return func(o *options) { o.delta = &delta }
}

// Run decodes frames start through end inclusive and measures every
// measurement region in each.
//
// The decoder is positioned once at start and then read sequentially. With a
// background region, each frame's background level is computed first and
// passed to every measurement region. A region whose pixels cannot be
// measured contributes a zero sample for that frame.
//
// If decoding fails partway, every series is cut to the frames read so far
// and the Result is marked Truncated. Cancellation through ctx or the
// progress sink likewise returns the partial series with Cancelled set.
//
// # Errors
//
//   - *imaging.ConfigError for invalid regions or a range with start < 0 or
//     end < start
func Run(ctx context.Context, dec video.Decoder, start, end int, regions imaging.RegionSet, opts ...Option) (*Result, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := regions.Validate(); err != nil {
		return nil, err
	}
	if start < 0 {
		return nil, &imaging.ConfigError{Field: "start", Reason: fmt.Sprintf("%d is negative", start)}
	}
	if end < start {
		return nil, &imaging.ConfigError{Field: "end", Reason: fmt.Sprintf("%d is before start %d", end, start)}
	}

	bgRegion, _, hasBG := regions.Background()
	measure := regions.Measurement()
	count := end - start + 1

	res := &Result{
		Start:         start,
		End:           end,
		Series:        make([]RegionSeries, len(measure)),
		Levels:        make([]float64, 0, count),
		Delta:         o.delta,
		HasBackground: hasBG,
	}
	for i, m := range measure {
		res.Series[i] = RegionSeries{
			Index:   m.Index,
			Label:   m.Region.Label,
			Samples: make([]imaging.BrightnessSample, 0, count),
		}
	}

	outcome := scan.Loop(ctx, dec, start, count, o.sink, o.logger, func(offset int, f video.Frame) {
		var bg *float64
		level := 0.0
		if hasBG {
			if l, ok := imaging.BackgroundLevel(f, &bgRegion); ok {
				level = l
				bg = &level
			}
		}
		res.Levels = append(res.Levels, level)
		for i, m := range measure {
			s := imaging.ComputeOrZero(f, m.Region, bg, o.logger)
			res.Series[i].Samples = append(res.Series[i].Samples, s)
		}
	})

	res.Frames = outcome.Frames
	res.Truncated = outcome.Truncated
	res.Cancelled = outcome.Cancelled
	res.DecodeErr = outcome.DecodeErr

	o.logger.Info("analysis finished",
		zap.Int("start", start),
		zap.Int("end", end),
		zap.Int("frames", res.Frames),
		zap.Int("regions", len(res.Series)),
		zap.Bool("truncated", res.Truncated),
		zap.Bool("cancelled", res.Cancelled))
	return res, nil
}

// LastFrame returns the index of the last frame actually measured, or
// Start-1 when none was.
func (r *Result) LastFrame() int {
	return r.Start + r.Frames - 1
}
