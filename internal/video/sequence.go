package video

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// DefaultSequenceFPS is the frame rate assumed for image sequences.
const DefaultSequenceFPS = 30.0

var sequenceExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
}

// SequenceDecoder treats an ordered list of still images as video frames.
type SequenceDecoder struct {
	paths []string
	info  Info
	next  int
}

// OpenSequence lists the images in dir, sorted by file name.
func OpenSequence(dir string, fps float64) (*SequenceDecoder, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read sequence directory")
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !sequenceExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	dec, err := NewSequence(paths, fps)
	if err != nil {
		return nil, err
	}
	dec.info.Path = dir
	return dec, nil
}

// NewSequence builds a decoder over explicit image paths. The first image
// fixes the frame dimensions.
func NewSequence(paths []string, fps float64) (*SequenceDecoder, error) {
	if len(paths) == 0 {
		return nil, errors.New("image sequence is empty")
	}
	first, err := imaging.Open(paths[0])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", paths[0])
	}
	if fps <= 0 {
		fps = DefaultSequenceFPS
	}
	b := first.Bounds()
	return &SequenceDecoder{
		paths: paths,
		info: Info{
			Path:       filepath.Dir(paths[0]),
			Width:      b.Dx(),
			Height:     b.Dy(),
			FPS:        fps,
			FrameCount: len(paths),
		},
	}, nil
}

// Info returns the sequence metadata.
func (d *SequenceDecoder) Info() Info { return d.info }

// Seek positions the decoder at index.
func (d *SequenceDecoder) Seek(index int) error {
	if index < 0 || index > len(d.paths) {
		return errors.Errorf("seek to frame %d outside sequence of %d", index, len(d.paths))
	}
	d.next = index
	return nil
}

// ReadNext loads the next image.
func (d *SequenceDecoder) ReadNext() (Frame, error) {
	if d.next >= len(d.paths) {
		return Frame{}, io.EOF
	}
	idx := d.next
	img, err := imaging.Open(d.paths[idx])
	if err != nil {
		return Frame{}, &DecodeError{Index: idx, Err: err}
	}
	f := FromImage(idx, img)
	if f.Width != d.info.Width || f.Height != d.info.Height {
		return Frame{}, &DecodeError{
			Index: idx,
			Err:   errors.Errorf("image is %dx%d, sequence is %dx%d", f.Width, f.Height, d.info.Width, d.info.Height),
		}
	}
	d.next++
	return f, nil
}

// Close is a no-op; images are opened per read.
func (d *SequenceDecoder) Close() error { return nil }
