package scan

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ironsheep/video-brightness-mcp/internal/video"
	"github.com/ironsheep/video-brightness-mcp/internal/video/videotest"
)

func collect(t *testing.T, dec video.Decoder, start, count int, sink Sink) ([]int, Outcome) {
	t.Helper()
	var seen []int
	out := Loop(context.Background(), dec, start, count, sink, zaptest.NewLogger(t), func(offset int, f video.Frame) {
		assert.Equal(t, start+offset, f.Index)
		seen = append(seen, f.Index)
	})
	return seen, out
}

func TestLoop_ReadsRange(t *testing.T) {
	dec := videotest.Gray(4, 4, 20, func(int) uint8 { return 10 })

	seen, out := collect(t, dec, 5, 6, nil)
	assert.Equal(t, []int{5, 6, 7, 8, 9, 10}, seen)
	assert.Equal(t, 6, out.Frames)
	assert.True(t, out.Complete())
	assert.Equal(t, []int{5}, dec.Seeks, "one seek, then sequential reads")
}

func TestLoop_TruncatesOnDecodeFailure(t *testing.T) {
	dec := videotest.Gray(4, 4, 20, func(int) uint8 { return 10 })
	dec.FailAt = 7

	seen, out := collect(t, dec, 0, 20, nil)
	assert.Len(t, seen, 7)
	assert.True(t, out.Truncated)
	assert.False(t, out.Cancelled)

	var de *video.DecodeError
	require.ErrorAs(t, out.DecodeErr, &de)
	assert.Equal(t, 7, de.Index)
	assert.ErrorIs(t, out.DecodeErr, videotest.ErrInjected)
}

func TestLoop_EarlyEOFIsTruncation(t *testing.T) {
	dec := videotest.Gray(4, 4, 3, func(int) uint8 { return 10 })

	seen, out := collect(t, dec, 0, 5, nil)
	assert.Len(t, seen, 3)
	assert.True(t, out.Truncated)
	assert.ErrorIs(t, out.DecodeErr, io.ErrUnexpectedEOF)
}

func TestLoop_ZeroCount(t *testing.T) {
	dec := videotest.Gray(4, 4, 3, func(int) uint8 { return 10 })
	seen, out := collect(t, dec, 0, 0, nil)
	assert.Empty(t, seen)
	assert.True(t, out.Complete())
	assert.Empty(t, dec.Seeks)
}

func TestLoop_ContextCancel(t *testing.T) {
	dec := videotest.Gray(4, 4, 50, func(int) uint8 { return 10 })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen int
	out := Loop(ctx, dec, 0, 50, nil, nil, func(offset int, f video.Frame) {
		seen++
		if offset == 9 {
			cancel()
		}
	})
	assert.Equal(t, 10, seen)
	assert.Equal(t, 10, out.Frames)
	assert.True(t, out.Cancelled)
	assert.False(t, out.Truncated)
	assert.NoError(t, out.DecodeErr)
}

func TestLoop_SinkStops(t *testing.T) {
	dec := videotest.Gray(4, 4, 50, func(int) uint8 { return 10 })
	var reports []int
	sink := SinkFunc(func(done, total int) bool {
		assert.Equal(t, 50, total)
		reports = append(reports, done)
		return done < 12
	})

	seen, out := collect(t, dec, 0, 50, Every(4, sink))
	assert.Equal(t, []int{4, 8, 12}, reports)
	assert.Len(t, seen, 12)
	assert.True(t, out.Cancelled)
}

func TestLoop_SinkStopOnLastFrameIsComplete(t *testing.T) {
	dec := videotest.Gray(4, 4, 5, func(int) uint8 { return 10 })
	_, out := collect(t, dec, 0, 5, SinkFunc(func(done, total int) bool { return done < total }))
	assert.True(t, out.Complete())
}

func TestEvery(t *testing.T) {
	var got []int
	base := SinkFunc(func(done, total int) bool {
		got = append(got, done)
		return true
	})

	s := Every(3, base)
	for i := 1; i <= 10; i++ {
		assert.True(t, s.Report(i, 10))
	}
	assert.Equal(t, []int{3, 6, 9, 10}, got)

	assert.Nil(t, Every(3, nil))

	got = nil
	s = Every(0, base)
	s.Report(1, 2)
	s.Report(2, 2)
	assert.Equal(t, []int{1, 2}, got)
}

func TestTee(t *testing.T) {
	var a, b int
	stopper := SinkFunc(func(done, total int) bool { a++; return done < 2 })
	counter := SinkFunc(func(done, total int) bool { b++; return true })

	s := Tee(nil, stopper, counter)
	assert.True(t, s.Report(1, 5))
	assert.False(t, s.Report(2, 5))
	assert.Equal(t, 2, a)
	assert.Equal(t, 2, b, "every sink sees every report")

	assert.Nil(t, Tee(nil, nil))
	assert.True(t, Tee(counter).Report(3, 5))
	assert.Equal(t, 3, b)
}

func TestLogProgress(t *testing.T) {
	s := LogProgress(zaptest.NewLogger(t), "detect")
	assert.True(t, s.Report(1, 2))
}
