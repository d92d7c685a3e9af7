package video

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrDecoderBusy is returned when a leased decoder is requested while another
// scan still holds it.
var ErrDecoderBusy = errors.New("decoder is in use by another scan")

// Decoder yields frames sequentially.
//
// ReadNext returns io.EOF once the stream is exhausted. Other failures should
// be reported as *DecodeError.
type Decoder interface {
	Seek(index int) error
	ReadNext() (Frame, error)
	Close() error
}

// Info describes a video source.
type Info struct {
	Path       string  `json:"path"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	FrameCount int     `json:"frame_count"`
}

// Source is a Decoder that also knows its stream metadata.
type Source interface {
	Decoder
	Info() Info
}

// DecodeError reports that the frame at Index could not be produced.
type DecodeError struct {
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame %d: %v", e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Open opens a video file with ffmpeg, or a directory as an image sequence.
func Open(path string, logger *zap.Logger) (Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat video source")
	}
	if st.IsDir() {
		return OpenSequence(path, DefaultSequenceFPS)
	}
	return OpenFFmpeg(path, logger)
}

// Lease guards a Decoder so at most one scan holds it at a time.
type Lease struct {
	mu   sync.Mutex
	dec  Decoder
	held bool
}

// NewLease wraps dec.
func NewLease(dec Decoder) *Lease {
	return &Lease{dec: dec}
}

// Acquire hands out the decoder and a release func. It fails fast with
// ErrDecoderBusy rather than waiting.
func (l *Lease) Acquire() (Decoder, func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, nil, ErrDecoderBusy
	}
	l.held = true
	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			l.held = false
			l.mu.Unlock()
		})
	}
	return l.dec, release, nil
}

// Close closes the wrapped decoder.
func (l *Lease) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dec.Close()
}

// IsEOF reports whether err marks a clean end of stream.
func IsEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
