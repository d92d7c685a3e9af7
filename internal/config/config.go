// Package config loads analysis settings from a JSON file.
//
// Every field is optional. Omitted values fall back to defaults through the
// Get* methods, so a file may carry only the regions.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/ironsheep/video-brightness-mcp/internal/framestore"
	"github.com/ironsheep/video-brightness-mcp/internal/imaging"
)

// Defaults for fields omitted from the file.
const (
	DefaultManualDelta   = 5.0
	DefaultProgressEvery = 10
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// AnalysisConfig is the on-disk analysis configuration.
type AnalysisConfig struct {
	Regions []imaging.Region `json:"regions,omitempty"`

	// BackgroundIndex selects the background region by position and
	// overrides any roles given in Regions. -1 means no background.
	BackgroundIndex *int `json:"background_index,omitempty"`

	ManualDelta   *float64 `json:"manual_delta,omitempty"`   // L* added to the baseline
	CacheCapacity *int     `json:"cache_capacity,omitempty"` // Frames held by the frame store
	ProgressEvery *int     `json:"progress_every,omitempty"` // Frames between progress reports

	StartFrame *int `json:"start_frame,omitempty"` // Analysis range; defaults to the detected range
	EndFrame   *int `json:"end_frame,omitempty"`
}

// Load reads and validates an AnalysisConfig from a .json file.
func Load(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, &imaging.ConfigError{Field: "path", Reason: fmt.Sprintf("config file must have .json extension, got %q", ext)}
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat config file")
	}
	if fileInfo.Size() > maxFileSize {
		return nil, &imaging.ConfigError{Field: "path", Reason: fmt.Sprintf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)}
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse decodes and validates JSON configuration data.
func Parse(data []byte) (*AnalysisConfig, error) {
	cfg := &AnalysisConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config JSON")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// Validate checks every set field. Errors are *imaging.ConfigError.
func (c *AnalysisConfig) Validate() error {
	if _, err := c.RegionSet(); err != nil {
		return err
	}
	if c.BackgroundIndex != nil && *c.BackgroundIndex < -1 {
		return &imaging.ConfigError{Field: "background_index", Reason: fmt.Sprintf("must be -1 or a region index, got %d", *c.BackgroundIndex)}
	}
	if c.ManualDelta != nil && (math.IsNaN(*c.ManualDelta) || math.IsInf(*c.ManualDelta, 0)) {
		return &imaging.ConfigError{Field: "manual_delta", Reason: "must be finite"}
	}
	if c.CacheCapacity != nil && *c.CacheCapacity < 1 {
		return &imaging.ConfigError{Field: "cache_capacity", Reason: fmt.Sprintf("must be at least 1, got %d", *c.CacheCapacity)}
	}
	if c.ProgressEvery != nil && *c.ProgressEvery < 1 {
		return &imaging.ConfigError{Field: "progress_every", Reason: fmt.Sprintf("must be at least 1, got %d", *c.ProgressEvery)}
	}
	if c.StartFrame != nil && *c.StartFrame < 0 {
		return &imaging.ConfigError{Field: "start_frame", Reason: fmt.Sprintf("%d is negative", *c.StartFrame)}
	}
	if c.StartFrame != nil && c.EndFrame != nil && *c.EndFrame < *c.StartFrame {
		return &imaging.ConfigError{Field: "end_frame", Reason: fmt.Sprintf("%d is before start_frame %d", *c.EndFrame, *c.StartFrame)}
	}
	return nil
}

// RegionSet builds the validated region set, applying BackgroundIndex when
// set.
func (c *AnalysisConfig) RegionSet() (imaging.RegionSet, error) {
	var set imaging.RegionSet
	if c.BackgroundIndex != nil {
		var err error
		if set, err = imaging.WithBackgroundIndex(c.Regions, *c.BackgroundIndex); err != nil {
			return nil, err
		}
	} else {
		set = append(set, c.Regions...)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// GetManualDelta returns the delta or DefaultManualDelta.
func (c *AnalysisConfig) GetManualDelta() float64 {
	if c.ManualDelta == nil {
		return DefaultManualDelta
	}
	return *c.ManualDelta
}

// GetCacheCapacity returns the capacity or framestore.DefaultCapacity.
func (c *AnalysisConfig) GetCacheCapacity() int {
	if c.CacheCapacity == nil {
		return framestore.DefaultCapacity
	}
	return *c.CacheCapacity
}

// GetProgressEvery returns the cadence or DefaultProgressEvery.
func (c *AnalysisConfig) GetProgressEvery() int {
	if c.ProgressEvery == nil {
		return DefaultProgressEvery
	}
	return *c.ProgressEvery
}

// Range returns the configured analysis range, if both ends are set.
func (c *AnalysisConfig) Range() (start, end int, ok bool) {
	if c.StartFrame == nil || c.EndFrame == nil {
		return 0, 0, false
	}
	return *c.StartFrame, *c.EndFrame, true
}

// SetManualDelta overrides the delta, typically from a CLI flag.
func (c *AnalysisConfig) SetManualDelta(v float64) { c.ManualDelta = &v }

// SetBackgroundIndex overrides the background selection.
func (c *AnalysisConfig) SetBackgroundIndex(v int) { c.BackgroundIndex = &v }

// SetRange overrides the analysis range.
func (c *AnalysisConfig) SetRange(start, end int) {
	c.StartFrame, c.EndFrame = &start, &end
}
