package detection

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ironsheep/video-brightness-mcp/internal/imaging"
	"github.com/ironsheep/video-brightness-mcp/internal/scan"
	"github.com/ironsheep/video-brightness-mcp/internal/video"
)

// ErrNotFound is returned by Result.Range when no frame reached the
// threshold.
var ErrNotFound = errors.New("no frame reaches the brightness threshold")

// BaselinePercentile is the percentile of the brightness series used as the
// baseline when no background region is configured.
const BaselinePercentile = 5

// Mode identifies how the baseline was derived.
type Mode string

const (
	// ModeBackground averages the per-frame background levels.
	ModeBackground Mode = "background"
	// ModePercentile takes a low percentile of the brightness series.
	ModePercentile Mode = "percentile"
)

// Result is the outcome of a range scan.
type Result struct {
	Start     int     `json:"start"`     // First frame at or above threshold
	End       int     `json:"end"`       // Last frame at or above threshold
	Found     bool    `json:"found"`     // False when no frame matched
	Baseline  float64 `json:"baseline"`  // Baseline L*
	Threshold float64 `json:"threshold"` // Baseline plus delta
	Delta     float64 `json:"delta"`
	Mode      Mode    `json:"mode"`

	// Per-frame series, indexed by frame number from 0.
	Brightness []float64 `json:"brightness"` // Mean raw L* over measurement regions
	Levels     []float64 `json:"levels"`     // Background level, 0 when unavailable

	FramesRead  int   `json:"frames_read"`
	TotalFrames int   `json:"total_frames"`
	Truncated   bool  `json:"truncated"` // Decoding ended before TotalFrames
	Cancelled   bool  `json:"cancelled"`
	DecodeErr   error `json:"-"`
}

// Range returns the detected span, or ErrNotFound.
func (r *Result) Range() (int, int, error) {
	if !r.Found {
		return 0, 0, ErrNotFound
	}
	return r.Start, r.End, nil
}

// String summarizes the result for logs and CLI output.
func (r *Result) String() string {
	status := "complete"
	switch {
	case r.Cancelled:
		status = "cancelled"
	case r.Truncated:
		status = "ended early"
	}
	if !r.Found {
		return fmt.Sprintf("not found (%s baseline %.2f, threshold %.2f, %d/%d frames, %s)",
			r.Mode, r.Baseline, r.Threshold, r.FramesRead, r.TotalFrames, status)
	}
	return fmt.Sprintf("frames %d-%d (%s baseline %.2f, threshold %.2f, %d/%d frames, %s)",
		r.Start, r.End, r.Mode, r.Baseline, r.Threshold, r.FramesRead, r.TotalFrames, status)
}

// Option configures Scan.
type Option func(*options)

type options struct {
	sink   scan.Sink
	logger *zap.Logger
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

// Scan decodes frames 0 through totalFrames-1 and finds the span whose
// measurement brightness reaches baseline + delta.
//
// Each frame's brightness is the mean of the raw L* means of every
// measurement region; with no measurement regions it is 0. When regions
// includes a background region, the baseline is the mean of the positive
// per-frame background levels. Otherwise it is the 5th percentile of the
// brightness series.
//
// The span runs from the first to the last matching frame; frames in between
// need not match. A decode failure or cancellation evaluates the frames read
// so far and is reported on the Result, not as an error.
//
// # Errors
//
//   - *imaging.ConfigError for invalid regions or a negative totalFrames
func Scan(ctx context.Context, dec video.Decoder, totalFrames int, regions imaging.RegionSet, delta float64, opts ...Option) (*Result, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := regions.Validate(); err != nil {
		return nil, err
	}
	if totalFrames < 0 {
		return nil, &imaging.ConfigError{Field: "total_frames", Reason: fmt.Sprintf("%d is negative", totalFrames)}
	}

	bgRegion, _, hasBG := regions.Background()
	measure := regions.Measurement()

	brightness := make([]float64, 0, totalFrames)
	levels := make([]float64, 0, totalFrames)

	outcome := scan.Loop(ctx, dec, 0, totalFrames, o.sink, o.logger, func(offset int, f video.Frame) {
		level := 0.0
		if hasBG {
			if l, ok := imaging.BackgroundLevel(f, &bgRegion); ok {
				level = l
			}
		}
		levels = append(levels, level)
		brightness = append(brightness, frameBrightness(f, measure, o.logger))
	})

	res := Evaluate(brightness, levels, hasBG, delta)
	res.FramesRead = outcome.Frames
	res.TotalFrames = totalFrames
	res.Truncated = outcome.Truncated
	res.Cancelled = outcome.Cancelled
	res.DecodeErr = outcome.DecodeErr

	o.logger.Info("range scan finished", zap.Stringer("result", res))
	return res, nil
}

// frameBrightness averages LMean over the measurement regions.
func frameBrightness(f video.Frame, measure []imaging.IndexedRegion, logger *zap.Logger) float64 {
	if len(measure) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range measure {
		sum += imaging.ComputeOrZero(f, m.Region, nil, logger).LMean
	}
	return sum / float64(len(measure))
}

// Evaluate applies baseline and threshold selection to already measured
// series. levels is only consulted when background is true.
func Evaluate(brightness, levels []float64, background bool, delta float64) *Result {
	res := &Result{
		Delta:      delta,
		Brightness: brightness,
		Levels:     levels,
	}

	if background {
		res.Mode = ModeBackground
		var positive []float64
		for _, l := range levels {
			if l > 0 {
				positive = append(positive, l)
			}
		}
		if len(positive) > 0 {
			res.Baseline, _ = stats.Mean(positive)
		}
	} else {
		res.Mode = ModePercentile
		res.Baseline = imaging.Percentile(brightness, BaselinePercentile)
	}
	res.Threshold = res.Baseline + delta

	for i, b := range brightness {
		if b < res.Threshold {
			continue
		}
		if !res.Found {
			res.Start = i
			res.Found = true
		}
		res.End = i
	}
	return res
}
