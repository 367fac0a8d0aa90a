// Package video defines the live video contracts used by the capture loop.
package video

import (
	"context"
	"errors"
)

var (
	// ErrCameraAccess is returned when the video source cannot be acquired.
	ErrCameraAccess = errors.New("camera access denied")
	// ErrEncoding is returned when a frame could not be turned into an image payload.
	ErrEncoding = errors.New("could not generate frame blob")
)

// Source hands out live streams.
type Source interface {
	Acquire(ctx context.Context) (Stream, error)
}

// Stream is an acquired, playing video stream. Frames are read by an
// encoder that knows the concrete stream type.
type Stream interface {
	// StopAllTracks releases the device. Calling it twice is a no-op.
	StopAllTracks() error
}
