package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ironsheep/video-brightness-mcp/internal/analysis"
	"github.com/ironsheep/video-brightness-mcp/internal/config"
	"github.com/ironsheep/video-brightness-mcp/internal/detection"
	"github.com/ironsheep/video-brightness-mcp/internal/scan"
	"github.com/ironsheep/video-brightness-mcp/internal/video"
)

// loadConfig reads --config when given and applies the command-line
// overrides on top of it.
func loadConfig(c *cli.Context) (*config.AnalysisConfig, error) {
	cfg := &config.AnalysisConfig{}
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if c.IsSet(flagDelta) {
		cfg.SetManualDelta(c.Float64(flagDelta))
	}
	if c.IsSet(flagBackgroundIndex) {
		cfg.SetBackgroundIndex(c.Int(flagBackgroundIndex))
	}
	// A single range flag without a configured range is applied to the
	// detected range later.
	start, end, ok := cfg.Range()
	if start, end, ok = rangeFlags(c, start, end, ok); ok {
		cfg.SetRange(start, end)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// rangeFlags overrides start and end with --start and --end. The result is
// complete when the base range was, or when both flags are set.
func rangeFlags(c *cli.Context, start, end int, ok bool) (int, int, bool) {
	if c.IsSet(flagStart) {
		start = c.Int(flagStart)
	}
	if c.IsSet(flagEnd) {
		end = c.Int(flagEnd)
	}
	return start, end, ok || (c.IsSet(flagStart) && c.IsSet(flagEnd))
}

// openArg opens the video named by the single positional argument.
func (r *runner) openArg(c *cli.Context) (video.Source, error) {
	if c.Args().Len() != 1 {
		return nil, errors.New("expected exactly one video path")
	}
	src, err := r.open(c.Args().First(), r.logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", c.Args().First())
	}
	return src, nil
}

func (r *runner) progress(cfg *config.AnalysisConfig, what string) scan.Sink {
	return scan.Every(cfg.GetProgressEvery(), scan.LogProgress(r.logger, what))
}

func (r *runner) runDetect(c *cli.Context, cfg *config.AnalysisConfig, src video.Source) (*detection.Result, error) {
	set, err := cfg.RegionSet()
	if err != nil {
		return nil, err
	}
	info := src.Info()
	if info.FrameCount <= 0 {
		return nil, errors.Errorf("%s: frame count is unknown", info.Path)
	}
	return detection.Scan(c.Context, src, info.FrameCount, set, cfg.GetManualDelta(),
		detection.WithProgress(r.progress(cfg, "detect")),
		detection.WithLogger(r.logger))
}

func (r *runner) detect(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	src, err := r.openArg(c)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, src.Close()) }()

	res, err := r.runDetect(c, cfg, src)
	if err != nil {
		return err
	}

	out := map[string]interface{}{
		"found":       res.Found,
		"baseline":    res.Baseline,
		"threshold":   res.Threshold,
		"mode":        res.Mode,
		"frames_read": res.FramesRead,
		"truncated":   res.Truncated,
		"cancelled":   res.Cancelled,
	}
	if res.Found {
		out["start"] = res.Start
		out["end"] = res.End
	}
	if res.DecodeErr != nil {
		out["decode_error"] = res.DecodeErr.Error()
	}
	if err := printJSON(c, out); err != nil {
		return err
	}
	if !res.Found {
		return detection.ErrNotFound
	}
	return nil
}

func (r *runner) analyze(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	set, err := cfg.RegionSet()
	if err != nil {
		return err
	}
	src, err := r.openArg(c)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, src.Close()) }()

	start, end, ok := cfg.Range()
	if !ok {
		det, err := r.runDetect(c, cfg, src)
		if err != nil {
			return err
		}
		if start, end, err = det.Range(); err != nil {
			return err
		}
		start, end, _ = rangeFlags(c, start, end, true)
		r.logger.Info("analyzing detected range", zap.Int("start", start), zap.Int("end", end))
	}

	res, err := analysis.Run(c.Context, src, start, end, set,
		analysis.WithDelta(cfg.GetManualDelta()),
		analysis.WithProgress(r.progress(cfg, "analyze")),
		analysis.WithLogger(r.logger))
	if err != nil {
		return err
	}

	fps := src.Info().FPS
	if path := c.Path(flagCSV); path != "" {
		if err := writeCSVFile(path, res, fps); err != nil {
			return err
		}
		r.logger.Info("wrote CSV", zap.String("path", path), zap.Int("rows", res.Frames))
	}
	if path := c.Path(flagPlot); path != "" {
		if err := analysis.WritePlot(path, res, fps); err != nil {
			return err
		}
		r.logger.Info("wrote plot", zap.String("path", path))
	}

	out := map[string]interface{}{
		"start":     res.Start,
		"end":       res.End,
		"frames":    res.Frames,
		"truncated": res.Truncated,
		"cancelled": res.Cancelled,
	}
	if res.DecodeErr != nil {
		out["decode_error"] = res.DecodeErr.Error()
	}
	return printJSON(c, out)
}

func writeCSVFile(path string, res *analysis.Result, fps float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create CSV file")
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	return analysis.WriteCSV(f, res, fps)
}

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
