// Package detection finds the span of frames in which a video's measurement
// regions are lit.
//
// Scan reads the whole video once, measures every frame, and compares each
// frame's brightness against a threshold derived from the video itself:
//
//	threshold = baseline + delta
//
// # Baseline Modes
//
//   - Background: when a background region is configured, the baseline is
//     the mean of its per-frame 90th-percentile L* over the frames where that
//     level is positive.
//   - Percentile: otherwise the baseline is the 5th percentile of the
//     brightness series, which tracks the unlit floor of the recording.
//
// The detected span runs from the first frame at or above threshold to the
// last one. Brief dips inside an event do not split it.
//
// # Partial Scans
//
// A decoder failure or a cancelled scan still evaluates the frames that were
// read. The Result says so through Truncated and Cancelled; neither is an
// error. Only invalid region configuration fails the call.
package detection
