package camera

import (
	"fmt"
	"image"

	"potholewatch/internal/service/video"

	"gocv.io/x/gocv"
)

// Encoder scales the current camera frame to a fixed size and compresses it
// as JPEG.
type Encoder struct {
	width   int
	height  int
	quality int
}

// NewEncoder creates an encoder for width x height frames.
func NewEncoder(width, height, quality int) *Encoder {
	return &Encoder{width: width, height: height, quality: quality}
}

// Encode reads one frame from a camera stream and returns its JPEG bytes.
func (e *Encoder) Encode(stream video.Stream) ([]byte, error) {
	s, ok := stream.(*Stream)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported stream %T", video.ErrEncoding, stream)
	}

	data, err := s.withFrame(e.encodeMat)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", video.ErrEncoding, err)
	}
	return data, nil
}

func (e *Encoder) encodeMat(frame gocv.Mat) ([]byte, error) {
	if frame.Empty() {
		return nil, video.ErrEncoding
	}

	resized := gocv.NewMat()
	defer resized.Close()
	if err := gocv.Resize(frame, &resized, image.Pt(e.width, e.height), 0, 0, gocv.InterpolationLinear); err != nil {
		return nil, fmt.Errorf("failed to resize frame: %w", err)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, resized, []int{int(gocv.IMWriteJpegQuality), e.quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	// The buffer's memory is owned by OpenCV until Close.
	raw := buf.GetBytes()
	if len(raw) == 0 {
		return nil, video.ErrEncoding
	}
	data := make([]byte, len(raw))
	copy(data, raw)
	return data, nil
}
