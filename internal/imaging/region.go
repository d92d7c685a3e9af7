package imaging

import (
	"fmt"
	"image"
)

// Role tags what a region is used for.
type Role string

const (
	// RoleMeasurement marks a region whose brightness is measured and exported.
	RoleMeasurement Role = "measurement"
	// RoleBackground marks the single region that supplies the per-frame
	// baseline for every measurement region.
	RoleBackground Role = "background"
)

// Region is a user-drawn rectangle given by two corner points in frame pixel
// coordinates. The corners may be in any order; they are normalized and
// clamped to the frame at the time of use.
type Region struct {
	X1    int    `json:"x1"`
	Y1    int    `json:"y1"`
	X2    int    `json:"x2"`
	Y2    int    `json:"y2"`
	Role  Role   `json:"role,omitempty"`
	Label string `json:"label,omitempty"`
}

// Bounds is a normalized, clamped pixel window. Min is inclusive and Max is
// exclusive, so Dx and Dy give the pixel extent.
type Bounds struct {
	MinX, MinY int
	MaxX, MaxY int
}

// Dx returns the horizontal extent.
func (b Bounds) Dx() int { return b.MaxX - b.MinX }

// Dy returns the vertical extent.
func (b Bounds) Dy() int { return b.MaxY - b.MinY }

// Empty reports a non-positive extent.
func (b Bounds) Empty() bool { return b.Dx() <= 0 || b.Dy() <= 0 }

// Rect converts to an image.Rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// Clamp orders the corners and clamps both to [0,width-1]×[0,height-1].
//
// The larger corner becomes the exclusive edge, so a region drawn out to the
// frame border loses its last row and column, and a region lying entirely
// outside the frame collapses to an empty window.
func (r Region) Clamp(width, height int) Bounds {
	x1, x2 := minmax(r.X1, r.X2)
	y1, y2 := minmax(r.Y1, r.Y2)
	return Bounds{
		MinX: clamp(x1, 0, width-1),
		MinY: clamp(y1, 0, height-1),
		MaxX: clamp(x2, 0, width-1),
		MaxY: clamp(y2, 0, height-1),
	}
}

// IsBackground reports whether r is the background reference.
func (r Region) IsBackground() bool { return r.Role == RoleBackground }

func (r Region) String() string {
	role := r.Role
	if role == "" {
		role = RoleMeasurement
	}
	if r.Label != "" {
		return fmt.Sprintf("%s %q (%d,%d)-(%d,%d)", role, r.Label, r.X1, r.Y1, r.X2, r.Y2)
	}
	return fmt.Sprintf("%s (%d,%d)-(%d,%d)", role, r.X1, r.Y1, r.X2, r.Y2)
}

// IndexedRegion pairs a region with its stable position in a RegionSet.
type IndexedRegion struct {
	Index  int
	Region Region
}

// RegionSet is an ordered collection of regions. A region's index is its
// position in the slice.
type RegionSet []Region

// WithBackgroundIndex tags regions[bg] as the background and every other
// region as a measurement. bg < 0 means no background.
func WithBackgroundIndex(regions []Region, bg int) (RegionSet, error) {
	if bg >= len(regions) {
		return nil, &ConfigError{Field: "background_index", Reason: fmt.Sprintf("index %d out of range for %d regions", bg, len(regions))}
	}
	set := make(RegionSet, len(regions))
	for i, r := range regions {
		r.Role = RoleMeasurement
		if i == bg {
			r.Role = RoleBackground
		}
		set[i] = r
	}
	return set, nil
}

// Validate checks roles. At most one region may be the background.
func (s RegionSet) Validate() error {
	bg := -1
	for i, r := range s {
		switch r.Role {
		case "", RoleMeasurement:
		case RoleBackground:
			if bg >= 0 {
				return &ConfigError{Field: "regions", Reason: fmt.Sprintf("regions %d and %d are both background", bg, i)}
			}
			bg = i
		default:
			return &ConfigError{Field: "regions", Reason: fmt.Sprintf("region %d has unknown role %q", i, r.Role)}
		}
	}
	return nil
}

// Background returns the background region, if any.
func (s RegionSet) Background() (Region, int, bool) {
	for i, r := range s {
		if r.IsBackground() {
			return r, i, true
		}
	}
	return Region{}, -1, false
}

// Measurement returns every non-background region with its index.
func (s RegionSet) Measurement() []IndexedRegion {
	out := make([]IndexedRegion, 0, len(s))
	for i, r := range s {
		if !r.IsBackground() {
			out = append(out, IndexedRegion{Index: i, Region: r})
		}
	}
	return out
}

func minmax(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}
