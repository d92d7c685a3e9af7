// Package server implements the MCP (Model Context Protocol) server for video
// brightness analysis.
//
// This package provides a JSON-RPC 2.0 server that exposes frame navigation,
// region measurement, range detection and timeseries export through the MCP
// protocol. It plays the role of the interactive navigator: a client loads a
// video, steps through frames to place regions, detects the lit range and
// exports the per-region series.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and progress notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Video Session:
//   - video_load: Open a video file or image-sequence directory
//   - video_info: Dimensions, frame rate, frame count
//   - cache_stats: Frame cache occupancy and hit rate
//
// Frame Navigation:
//   - video_frame: One frame as PNG, optionally cropped or with region outlines
//
// Measurement:
//   - region_stats: L* and blue statistics for each region of one frame
//   - video_detect_range: Whole-video scan for the lit frame range
//   - video_analyze: Per-region timeseries over a frame range
//
// Export:
//   - video_export_csv: Last analysis as CSV
//   - video_export_plot: Last analysis as a PNG chart
//
// # Frame Caching
//
// Each loaded video gets its own LRU frame store sized by cache_capacity.
// Navigation reads go through the store; scans decode sequentially and
// bypass it. Loading another video drops the cache.
//
// # Progress
//
// When a tools/call request carries _meta.progressToken, video_detect_range
// and video_analyze emit notifications/progress every progress_every frames.
//
// # Cancellation
//
// Requests are read on their own goroutine. A notifications/cancelled whose
// requestId matches the running tools/call cancels that call's context; a
// scan stops at the next frame and answers with cancelled set.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A scan that ends early because of a decode failure or cancellation is not
// an error; its result reports truncated or cancelled.
package server
