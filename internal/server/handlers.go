package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ironsheep/video-brightness-mcp/internal/analysis"
	"github.com/ironsheep/video-brightness-mcp/internal/detection"
	"github.com/ironsheep/video-brightness-mcp/internal/imaging"
	"github.com/ironsheep/video-brightness-mcp/internal/scan"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "video_load", "video_detect_range").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`

	// Meta carries the optional progress token for long scans.
	Meta *struct {
		ProgressToken interface{} `json:"progressToken,omitempty"`
	} `json:"_meta,omitempty"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	var token interface{}
	if params.Meta != nil {
		token = params.Meta.ProgressToken
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments, token)
	if err != nil {
		s.logger.Debug("tool failed", zap.String("tool", params.Name), zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies configured defaults for omitted parameters
//  3. Reads frames through the session's frame cache or decoder lease
//  4. Calls the appropriate imaging/detection/analysis function
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage, token interface{}) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	// Video Session
	case "video_load":
		return s.handleVideoLoad(args)
	case "video_info":
		return s.handleVideoInfo(args)
	case "cache_stats":
		return s.handleCacheStats(args)

	// Frame Navigation
	case "video_frame":
		return s.handleVideoFrame(args)

	// Measurement
	case "region_stats":
		return s.handleRegionStats(args)
	case "video_detect_range":
		return s.handleDetectRange(ctx, args, token)
	case "video_analyze":
		return s.handleAnalyze(ctx, args, token)

	// Export
	case "video_export_csv":
		return s.handleExportCSV(args)
	case "video_export_plot":
		return s.handleExportPlot(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// progressSink logs progress and, when the client sent a progress token,
// forwards it as notifications/progress at the configured cadence.
func (s *Server) progressSink(tool string, token interface{}) scan.Sink {
	sinks := []scan.Sink{scan.LogProgress(s.logger, tool)}
	if token != nil {
		sinks = append(sinks, scan.SinkFunc(func(done, total int) bool {
			err := s.write(&MCPNotification{
				JSONRPC: "2.0",
				Method:  "notifications/progress",
				Params: map[string]interface{}{
					"progressToken": token,
					"progress":      done,
					"total":         total,
				},
			})
			if err != nil {
				s.logger.Warn("failed to send progress", zap.Error(err))
			}
			return true
		}))
	}
	return scan.Every(s.cfg.GetProgressEvery(), scan.Tee(sinks...))
}

// === Region Arguments ===

type regionArgs struct {
	Regions         []imaging.Region `json:"regions"`
	BackgroundIndex *int             `json:"background_index"`
}

// regionSet resolves the call's regions, falling back to the configured
// ones.
func (s *Server) regionSet(a regionArgs) (imaging.RegionSet, error) {
	regions := a.Regions
	bg := a.BackgroundIndex
	if regions == nil {
		regions = s.cfg.Regions
		if bg == nil {
			bg = s.cfg.BackgroundIndex
		}
	}
	if bg != nil {
		return imaging.WithBackgroundIndex(regions, *bg)
	}
	set := append(imaging.RegionSet(nil), regions...)
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

func (s *Server) delta(d *float64) float64 {
	if d != nil {
		return *d
	}
	return s.cfg.GetManualDelta()
}

// === Video Session Handlers ===

type videoLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleVideoLoad(args json.RawMessage) (interface{}, error) {
	var a videoLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	sess, err := s.loadSession(a.Path)
	if err != nil {
		return nil, err
	}
	return sess.info, nil
}

func (s *Server) handleVideoInfo(args json.RawMessage) (interface{}, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"path":        sess.info.Path,
		"width":       sess.info.Width,
		"height":      sess.info.Height,
		"fps":         sess.info.FPS,
		"frame_count": sess.info.FrameCount,
		"cached":      sess.frames.Len(),
	}, nil
}

func (s *Server) handleCacheStats(args json.RawMessage) (interface{}, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	st := sess.frames.Stats()
	return map[string]interface{}{
		"len":       sess.frames.Len(),
		"capacity":  sess.frames.Cap(),
		"hits":      st.Hits,
		"misses":    st.Misses,
		"evictions": st.Evictions,
		"hit_rate":  st.HitRate(),
		"frames":    sess.frames.Indices(),
	}, nil
}

// === Frame Navigation Handlers ===

type videoFrameArgs struct {
	regionArgs
	Frame   int             `json:"frame"`
	Crop    *imaging.Region `json:"crop"`
	Overlay bool            `json:"overlay"`
	Scale   float64         `json:"scale"`
}

func (s *Server) handleVideoFrame(args json.RawMessage) (interface{}, error) {
	var a videoFrameArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	f, err := sess.frame(a.Frame)
	if err != nil {
		return nil, err
	}

	if a.Overlay {
		set, err := s.regionSet(a.regionArgs)
		if err != nil {
			return nil, err
		}
		return imaging.RegionOverlay(f, set, imaging.OverlayOptions{ShowIndices: true, Scale: a.Scale})
	}
	return imaging.Preview(f, a.Crop, a.Scale)
}

// === Measurement Handlers ===

type regionStatsArgs struct {
	regionArgs
	Frame int `json:"frame"`
}

type regionSample struct {
	Index  int                      `json:"index"`
	Label  string                   `json:"label,omitempty"`
	Sample imaging.BrightnessSample `json:"sample"`
}

func (s *Server) handleRegionStats(args json.RawMessage) (interface{}, error) {
	var a regionStatsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	set, err := s.regionSet(a.regionArgs)
	if err != nil {
		return nil, err
	}
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	f, err := sess.frame(a.Frame)
	if err != nil {
		return nil, err
	}

	var bg *float64
	if r, _, ok := set.Background(); ok {
		if level, ok := imaging.BackgroundLevel(f, &r); ok {
			bg = &level
		}
	}

	samples := make([]regionSample, 0, len(set))
	for _, m := range set.Measurement() {
		sample, err := imaging.Compute(f, m.Region, bg)
		if err != nil {
			return nil, err
		}
		samples = append(samples, regionSample{Index: m.Index, Label: m.Region.Label, Sample: sample})
	}
	return map[string]interface{}{
		"frame":            a.Frame,
		"background_level": bg,
		"regions":          samples,
	}, nil
}

type detectArgs struct {
	regionArgs
	ManualDelta   *float64 `json:"manual_delta"`
	IncludeSeries bool     `json:"include_series"`
}

func (s *Server) handleDetectRange(ctx context.Context, args json.RawMessage, token interface{}) (interface{}, error) {
	var a detectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	set, err := s.regionSet(a.regionArgs)
	if err != nil {
		return nil, err
	}
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	if sess.info.FrameCount <= 0 {
		return nil, errors.New("video frame count is unknown")
	}

	dec, release, err := sess.lease.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := detection.Scan(ctx, dec, sess.info.FrameCount, set, s.delta(a.ManualDelta),
		detection.WithProgress(s.progressSink("video_detect_range", token)),
		detection.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	sess.detection = res

	out := map[string]interface{}{
		"found":        res.Found,
		"baseline":     res.Baseline,
		"threshold":    res.Threshold,
		"delta":        res.Delta,
		"mode":         res.Mode,
		"frames_read":  res.FramesRead,
		"total_frames": res.TotalFrames,
		"truncated":    res.Truncated,
		"cancelled":    res.Cancelled,
	}
	if res.Found {
		out["start"] = res.Start
		out["end"] = res.End
	}
	if res.DecodeErr != nil {
		out["decode_error"] = res.DecodeErr.Error()
	}
	if a.IncludeSeries {
		out["brightness"] = res.Brightness
		out["levels"] = res.Levels
	}
	return out, nil
}

type analyzeArgs struct {
	regionArgs
	Start          *int     `json:"start"`
	End            *int     `json:"end"`
	ManualDelta    *float64 `json:"manual_delta"`
	IncludeSamples bool     `json:"include_samples"`
}

type seriesSummary struct {
	Index     int     `json:"index"`
	Label     string  `json:"label,omitempty"`
	MeanLBG   float64 `json:"mean_l_bg"`
	MaxLBG    float64 `json:"max_l_bg"`
	PeakFrame int     `json:"peak_frame"`
	MeanBlue  float64 `json:"mean_blue_bg"`
}

// analysisRange picks the explicit range, then the configured one, then
// the last detected one.
func (s *Server) analysisRange(sess *session, a analyzeArgs) (int, int, error) {
	if a.Start != nil && a.End != nil {
		return *a.Start, *a.End, nil
	}
	if start, end, ok := s.cfg.Range(); ok && a.Start == nil && a.End == nil {
		return start, end, nil
	}
	if sess.detection == nil {
		return 0, 0, errors.New("no range given and video_detect_range has not been run")
	}
	start, end, err := sess.detection.Range()
	if err != nil {
		return 0, 0, errors.Wrap(err, "no range given and the last detection found none")
	}
	if a.Start != nil {
		start = *a.Start
	}
	if a.End != nil {
		end = *a.End
	}
	return start, end, nil
}

func (s *Server) handleAnalyze(ctx context.Context, args json.RawMessage, token interface{}) (interface{}, error) {
	var a analyzeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	set, err := s.regionSet(a.regionArgs)
	if err != nil {
		return nil, err
	}
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	start, end, err := s.analysisRange(sess, a)
	if err != nil {
		return nil, err
	}

	dec, release, err := sess.lease.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := analysis.Run(ctx, dec, start, end, set,
		analysis.WithDelta(s.delta(a.ManualDelta)),
		analysis.WithProgress(s.progressSink("video_analyze", token)),
		analysis.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	sess.analysis = res

	out := map[string]interface{}{
		"start":          res.Start,
		"end":            res.End,
		"frames":         res.Frames,
		"delta":          res.Delta,
		"has_background": res.HasBackground,
		"truncated":      res.Truncated,
		"cancelled":      res.Cancelled,
		"regions":        summarize(res),
	}
	if res.DecodeErr != nil {
		out["decode_error"] = res.DecodeErr.Error()
	}
	if a.IncludeSamples {
		out["series"] = res.Series
		out["levels"] = res.Levels
	}
	return out, nil
}

// summarize reduces each series to its mean and peak background-referenced
// L*.
func summarize(res *analysis.Result) []seriesSummary {
	out := make([]seriesSummary, 0, len(res.Series))
	for _, series := range res.Series {
		sum := seriesSummary{Index: series.Index, Label: series.Label, PeakFrame: res.Start}
		if len(series.Samples) > 0 {
			l := make(stats.Float64Data, len(series.Samples))
			blue := make(stats.Float64Data, len(series.Samples))
			for i, smp := range series.Samples {
				l[i] = smp.LMeanBG
				blue[i] = smp.BlueMeanBG
			}
			sum.MeanLBG, _ = l.Mean()
			sum.MaxLBG, _ = l.Max()
			sum.MeanBlue, _ = blue.Mean()
			for i, v := range l {
				if v == sum.MaxLBG {
					sum.PeakFrame = res.Start + i
					break
				}
			}
		}
		out = append(out, sum)
	}
	return out
}

// === Export Handlers ===

type exportArgs struct {
	Path string `json:"path"`
}

// lastAnalysis returns the session and the result of its last video_analyze.
func (s *Server) lastAnalysis() (*session, *analysis.Result, error) {
	sess, err := s.current()
	if err != nil {
		return nil, nil, err
	}
	if sess.analysis == nil {
		return nil, nil, errors.New("nothing to export; call video_analyze first")
	}
	return sess, sess.analysis, nil
}

func (s *Server) handleExportCSV(args json.RawMessage) (result interface{}, err error) {
	var a exportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	sess, res, err := s.lastAnalysis()
	if err != nil {
		return nil, err
	}

	f, err := os.Create(a.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CSV file")
	}
	defer func() {
		err = multierr.Append(err, f.Close())
		if err != nil {
			result = nil
		}
	}()

	if err := analysis.WriteCSV(f, res, sess.info.FPS); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"path": a.Path,
		"rows": res.Frames,
	}, nil
}

func (s *Server) handleExportPlot(args json.RawMessage) (interface{}, error) {
	var a exportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	sess, res, err := s.lastAnalysis()
	if err != nil {
		return nil, err
	}
	if err := analysis.WritePlot(a.Path, res, sess.info.FPS); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"path":   a.Path,
		"series": len(res.Series),
	}, nil
}
