package camera

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"potholewatch/internal/config"
	"potholewatch/internal/logger"
	"potholewatch/internal/service/video"

	"gocv.io/x/gocv"
)

// Source opens a local capture device (or stream URL) through OpenCV.
type Source struct {
	device string
	logger *logger.Logger
}

// NewSource creates a camera source for the configured device.
func NewSource(cfg *config.Config, logger *logger.Logger) *Source {
	return &Source{device: cfg.CameraDevice, logger: logger}
}

// Acquire opens the device and checks that it delivers frames.
func (s *Source) Acquire(ctx context.Context) (video.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	capture, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", video.ErrCameraAccess, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: device %s is not opened", video.ErrCameraAccess, s.device)
	}

	s.logger.Info("🎥 Camera %s opened", s.device)
	return &Stream{capture: capture, frame: gocv.NewMat(), device: s.device, logger: s.logger}, nil
}

func (s *Source) open() (*gocv.VideoCapture, error) {
	if id, err := strconv.Atoi(s.device); err == nil {
		return gocv.OpenVideoCapture(id)
	}
	return gocv.OpenVideoCapture(s.device)
}

// Stream is a playing OpenCV capture.
type Stream struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
	device  string
	logger  *logger.Logger

	mu      sync.Mutex
	stopped bool
}

// withFrame reads the current frame and hands it to fn while the stream
// is locked. The Mat is reused between reads and must not escape fn.
func (s *Stream) withFrame(fn func(frame gocv.Mat) ([]byte, error)) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, fmt.Errorf("camera %s is stopped", s.device)
	}
	if ok := s.capture.Read(&s.frame); !ok {
		return nil, fmt.Errorf("failed to read frame from camera %s", s.device)
	}
	if s.frame.Empty() {
		return nil, fmt.Errorf("camera %s returned an empty frame", s.device)
	}
	return fn(s.frame)
}

// StopAllTracks closes the capture device once.
func (s *Stream) StopAllTracks() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true
	s.frame.Close()

	if err := s.capture.Close(); err != nil {
		return fmt.Errorf("failed to close camera %s: %w", s.device, err)
	}
	s.logger.Info("🛑 Camera %s released", s.device)
	return nil
}
