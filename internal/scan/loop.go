package scan

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ironsheep/video-brightness-mcp/internal/video"
)

// Outcome describes how a scan ended.
type Outcome struct {
	Frames    int   // Frames handed to the visitor
	Truncated bool  // The decoder failed or ran dry before the range was covered
	Cancelled bool  // The context or sink stopped the scan
	DecodeErr error // Cause of truncation, if any
}

// Complete reports whether every requested frame was visited.
func (o Outcome) Complete() bool { return !o.Truncated && !o.Cancelled }

// Visitor is called once per decoded frame. offset counts from the first
// frame of the scan.
type Visitor func(offset int, f video.Frame)

// Loop reads count frames starting at start and passes each to visit.
//
// The context is checked before every decode and the sink after every
// visited frame. A seek or read failure, including io.EOF before count
// frames, ends the loop with Truncated set and DecodeErr holding a
// *video.DecodeError. Loop itself never returns a truncated or cancelled
// scan as an error.
func Loop(ctx context.Context, dec video.Decoder, start, count int, sink Sink, logger *zap.Logger, visit Visitor) Outcome {
	if logger == nil {
		logger = zap.NewNop()
	}
	var out Outcome
	if count <= 0 {
		return out
	}

	if err := dec.Seek(start); err != nil {
		out.Truncated = true
		out.DecodeErr = asDecodeError(start, err)
		logger.Warn("seek failed, scan truncated", zap.Int("frame", start), zap.Error(err))
		return out
	}

	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			out.Cancelled = true
			logger.Info("scan cancelled", zap.Int("frames", out.Frames), zap.Error(ctx.Err()))
			break
		}

		f, err := dec.ReadNext()
		if err != nil {
			out.Truncated = true
			out.DecodeErr = asDecodeError(start+i, err)
			logger.Warn("decode failed, scan truncated",
				zap.Int("frame", start+i),
				zap.Int("frames", out.Frames),
				zap.Error(err))
			break
		}

		visit(i, f)
		out.Frames++

		if sink != nil && !sink.Report(out.Frames, count) && out.Frames < count {
			out.Cancelled = true
			logger.Info("scan stopped by progress sink", zap.Int("frames", out.Frames))
			break
		}
	}
	return out
}

func asDecodeError(index int, err error) error {
	var de *video.DecodeError
	if errors.As(err, &de) {
		return de
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return &video.DecodeError{Index: index, Err: err}
}
