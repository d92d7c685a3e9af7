// Package imaging measures per-region brightness in decoded video frames.
//
// This package implements the statistics at the core of brightness analysis:
// converting BGR pixels to perceptual lightness, summarizing rectangular
// regions, estimating a per-frame background level, and rendering region
// previews for navigation.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner. A Region
// is two corner points in any order; Clamp normalizes them and clamps both
// to [0,width-1]×[0,height-1]. The smaller corner is inclusive and the larger
// is exclusive.
//
// # Signals
//
// Two per-pixel signals are measured:
//   - L*: CIE Lab lightness (0-100), quantized to the 8-bit Lab scale
//   - Blue: the raw blue channel (0-255), BGR index 0
//
// # Background Reference
//
// At most one region in a RegionSet has RoleBackground. Its 90th percentile
// L* is the frame's background level. Compute thresholds other regions
// against that level and denoises the mask with a 3x3 opening. Only L* is
// reported relative to the level; blue is masked but never subtracted.
//
// # Error Handling
//
//   - Degenerate regions yield an all-zero BrightnessSample, never an error
//   - Malformed frames yield *DataError; scans use ComputeOrZero to continue
//   - Invalid region sets yield *ConfigError before any frame is read
package imaging
