package server

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ironsheep/video-brightness-mcp/internal/analysis"
	"github.com/ironsheep/video-brightness-mcp/internal/detection"
	"github.com/ironsheep/video-brightness-mcp/internal/framestore"
	"github.com/ironsheep/video-brightness-mcp/internal/video"
)

// errNoVideo is returned by tools that need a loaded video.
var errNoVideo = errors.New("no video loaded; call video_load first")

// session is the state tied to one loaded video.
type session struct {
	info   video.Info
	lease  *video.Lease
	frames *framestore.Store

	detection *detection.Result
	analysis  *analysis.Result
}

// loadSession opens path and replaces the current session. The previous
// video is closed and its cached frames are dropped.
func (s *Server) loadSession(path string) (*session, error) {
	src, err := s.open(path, s.logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	store, err := framestore.New(s.cfg.GetCacheCapacity())
	if err != nil {
		return nil, multierr.Append(err, src.Close())
	}

	sess := &session{
		info:   src.Info(),
		lease:  video.NewLease(src),
		frames: store,
	}

	s.mu.Lock()
	prev := s.session
	s.session = sess
	s.mu.Unlock()

	if prev != nil {
		prev.frames.Clear()
		if err := prev.lease.Close(); err != nil {
			s.logger.Warn("failed to close previous video", zap.String("path", prev.info.Path), zap.Error(err))
		}
	}
	s.logger.Info("video loaded", zap.Stringer("info", sess.info))
	return sess, nil
}

// current returns the loaded session or errNoVideo.
func (s *Server) current() (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, errNoVideo
	}
	return s.session, nil
}

func (s *Server) closeSession() error {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.mu.Unlock()
	if sess == nil {
		return nil
	}
	sess.frames.Clear()
	return sess.lease.Close()
}

// frame returns frame index of the session, through the frame store.
func (sess *session) frame(index int) (video.Frame, error) {
	if index < 0 || (sess.info.FrameCount > 0 && index >= sess.info.FrameCount) {
		return video.Frame{}, errors.Errorf("frame %d out of range [0, %d)", index, sess.info.FrameCount)
	}
	if f, ok := sess.frames.Get(index); ok {
		return f, nil
	}
	dec, release, err := sess.lease.Acquire()
	if err != nil {
		return video.Frame{}, err
	}
	defer release()
	return sess.frames.Load(index, dec)
}
