package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ironsheep/video-brightness-mcp/internal/imaging"
)

// sampleFields lists the exported sample columns in order.
var sampleFields = []struct {
	name string
	get  func(imaging.BrightnessSample) float64
}{
	{"l_mean", func(s imaging.BrightnessSample) float64 { return s.LMean }},
	{"l_median", func(s imaging.BrightnessSample) float64 { return s.LMedian }},
	{"blue_mean", func(s imaging.BrightnessSample) float64 { return s.BlueMean }},
	{"blue_median", func(s imaging.BrightnessSample) float64 { return s.BlueMedian }},
	{"l_mean_bg", func(s imaging.BrightnessSample) float64 { return s.LMeanBG }},
	{"l_median_bg", func(s imaging.BrightnessSample) float64 { return s.LMedianBG }},
	{"blue_mean_bg", func(s imaging.BrightnessSample) float64 { return s.BlueMeanBG }},
	{"blue_median_bg", func(s imaging.BrightnessSample) float64 { return s.BlueMedianBG }},
}

// Header returns the CSV column names for res.
func Header(res *Result) []string {
	cols := []string{"frame", "time_s", "background_level"}
	for _, s := range res.Series {
		for _, f := range sampleFields {
			cols = append(cols, fmt.Sprintf("r%d_%s", s.Index, f.name))
		}
	}
	return cols
}

// WriteCSV writes one row per measured frame. time_s is frame/fps and is
// left empty when fps is not positive; background_level is empty when no
// background region was configured.
func WriteCSV(w io.Writer, res *Result, fps float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(res)); err != nil {
		return errors.Wrap(err, "failed to write CSV header")
	}

	row := make([]string, 0, 3+len(res.Series)*len(sampleFields))
	for i := 0; i < res.Frames; i++ {
		frame := res.Start + i
		row = row[:0]
		row = append(row, strconv.Itoa(frame))
		if fps > 0 {
			row = append(row, formatFloat(float64(frame)/fps))
		} else {
			row = append(row, "")
		}
		if res.HasBackground && i < len(res.Levels) {
			row = append(row, formatFloat(res.Levels[i]))
		} else {
			row = append(row, "")
		}
		for _, s := range res.Series {
			sample := s.Samples[i]
			for _, f := range sampleFields {
				row = append(row, formatFloat(f.get(sample)))
			}
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "failed to write CSV row for frame %d", frame)
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush CSV")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
