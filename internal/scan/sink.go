// Package scan runs the sequential decode loop shared by range detection and
// timeseries analysis.
//
// A scan reads frames one at a time on the calling goroutine. Between frames
// it polls its context and reports progress to a Sink; either one can stop
// the scan, in which case the frames already processed are kept and the
// outcome is marked cancelled. A decoder failure ends the scan the same way
// but is marked truncated. Neither is returned as an error.
package scan

import (
	"go.uber.org/zap"
)

// Sink receives progress updates. Returning false asks the scan to stop.
type Sink interface {
	Report(done, total int) bool
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(done, total int) bool

// Report calls f.
func (f SinkFunc) Report(done, total int) bool { return f(done, total) }

// Every forwards to sink only on every n-th frame and on the final frame.
// Frames that are skipped always continue. n <= 1 forwards every frame.
func Every(n int, sink Sink) Sink {
	if sink == nil {
		return nil
	}
	if n <= 1 {
		return sink
	}
	return SinkFunc(func(done, total int) bool {
		if done%n != 0 && done != total {
			return true
		}
		return sink.Report(done, total)
	})
}

// LogProgress returns a sink that logs progress at debug level and never
// stops the scan.
func LogProgress(logger *zap.Logger, what string) Sink {
	return SinkFunc(func(done, total int) bool {
		logger.Debug("scan progress",
			zap.String("scan", what),
			zap.Int("done", done),
			zap.Int("total", total))
		return true
	})
}

// Tee reports to every non-nil sink and continues only if all of them do.
func Tee(sinks ...Sink) Sink {
	var live []Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return SinkFunc(func(done, total int) bool {
		ok := true
		for _, s := range live {
			if !s.Report(done, total) {
				ok = false
			}
		}
		return ok
	})
}
