package video

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// FFmpegDecoder reads bgr24 rawvideo frames from an ffmpeg child process.
//
// Seek restarts the process at the frame's timestamp; subsequent ReadNext
// calls stream forward from there without further seeking.
type FFmpegDecoder struct {
	info   Info
	logger *zap.Logger

	cancel context.CancelFunc
	reader *io.PipeReader
	done   chan error
	next   int
}

// OpenFFmpeg probes path and prepares a decoder positioned at frame 0.
func OpenFFmpeg(path string, logger *zap.Logger) (*FFmpegDecoder, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, errors.Wrap(err, "ffmpeg not found in PATH")
	}
	info, err := Probe(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpegDecoder{info: info, logger: logger}, nil
}

// Info returns the probed stream metadata.
func (d *FFmpegDecoder) Info() Info { return d.info }

// Seek positions the decoder so the next ReadNext returns frame index.
func (d *FFmpegDecoder) Seek(index int) error {
	if index < 0 {
		return errors.Errorf("seek to negative frame %d", index)
	}
	if err := d.stop(); err != nil {
		d.logger.Debug("previous ffmpeg process ended with error", zap.Error(err))
	}
	d.next = index
	return d.start(index)
}

// ReadNext returns the next frame or io.EOF.
func (d *FFmpegDecoder) ReadNext() (Frame, error) {
	if d.reader == nil {
		if err := d.start(d.next); err != nil {
			return Frame{}, &DecodeError{Index: d.next, Err: err}
		}
	}
	f := NewFrame(d.next, d.info.Width, d.info.Height)
	_, err := io.ReadFull(d.reader, f.Pix)
	switch {
	case err == nil:
		d.next++
		return f, nil
	case errors.Is(err, io.EOF):
		return Frame{}, io.EOF
	default:
		return Frame{}, &DecodeError{Index: d.next, Err: err}
	}
}

// Close stops any running ffmpeg process.
func (d *FFmpegDecoder) Close() error {
	return d.stop()
}

func (d *FFmpegDecoder) start(index int) error {
	ctx, cancel := context.WithCancel(context.Background())
	pr, pw := io.Pipe()
	stream := d.stream(ctx, index, pw)

	done := make(chan error, 1)
	go func() {
		err := stream.Run()
		pw.CloseWithError(err)
		done <- err
	}()

	d.cancel, d.reader, d.done = cancel, pr, done
	d.logger.Debug("started ffmpeg", zap.String("path", d.info.Path), zap.Int("frame", index))
	return nil
}

// stream builds the ffmpeg command that writes frames from index onward to
// out. The context must be set before WithOutput, which stores the writer in
// it.
func (d *FFmpegDecoder) stream(ctx context.Context, index int, out io.Writer) *ffmpeg.Stream {
	in := ffmpeg.KwArgs{"loglevel": "error"}
	if ss, ok := seekArg(index, d.info.FPS); ok {
		in["ss"] = ss
	}
	stream := ffmpeg.Input(d.info.Path, in).Output("pipe:", ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "bgr24",
		"vsync":   "0",
	})
	stream.Context = ctx
	return stream.WithOutput(out)
}

// seekArg returns the -ss value for frame index. It lands half a frame
// before the frame's timestamp so the accurate seek keeps that frame and
// drops the one before it.
func seekArg(index int, fps float64) (string, bool) {
	if index <= 0 || fps <= 0 {
		return "", false
	}
	return strconv.FormatFloat((float64(index)-0.5)/fps, 'f', 6, 64), true
}

func (d *FFmpegDecoder) stop() error {
	if d.cancel == nil {
		return nil
	}
	var runErr error
	exited := false
	select {
	case runErr = <-d.done:
		exited = true
	default:
	}
	d.cancel()
	closeErr := d.reader.Close()
	if !exited {
		<-d.done
	}
	d.cancel, d.reader, d.done = nil, nil, nil
	return multierr.Combine(runErr, closeErr)
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		NbFrames     string `json:"nb_frames"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads stream metadata with ffprobe.
func Probe(path string) (Info, error) {
	raw, err := ffmpeg.Probe(path)
	if err != nil {
		return Info{}, errors.Wrapf(err, "failed to probe %s", path)
	}
	return parseProbe(path, raw)
}

func parseProbe(path, raw string) (Info, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Info{}, errors.Wrap(err, "failed to parse ffprobe output")
	}
	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		info := Info{Path: path, Width: s.Width, Height: s.Height}
		info.FPS = parseRate(s.AvgFrameRate)
		if info.FPS == 0 {
			info.FPS = parseRate(s.RFrameRate)
		}
		if n, err := strconv.Atoi(s.NbFrames); err == nil && n > 0 {
			info.FrameCount = n
		} else {
			dur := s.Duration
			if dur == "" {
				dur = out.Format.Duration
			}
			if secs, err := strconv.ParseFloat(dur, 64); err == nil {
				info.FrameCount = int(math.Round(secs * info.FPS))
			}
		}
		if info.Width <= 0 || info.Height <= 0 {
			return Info{}, errors.Errorf("video stream in %s has no dimensions", path)
		}
		return info, nil
	}
	return Info{}, errors.Errorf("no video stream in %s", path)
}

// parseRate parses ffprobe rates such as "30000/1001" or "25".
func parseRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	dv, err := strconv.ParseFloat(den, 64)
	if err != nil || dv == 0 {
		return 0
	}
	return n / dv
}

func (i Info) String() string {
	return fmt.Sprintf("%s %dx%d @ %.3f fps, %d frames", i.Path, i.Width, i.Height, i.FPS, i.FrameCount)
}
