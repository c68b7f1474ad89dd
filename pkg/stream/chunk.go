package stream

import (
	"PoseLogin/pkg/camera"
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
)

const (
	Boundary    = "frame"
	ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

	DefaultJPEGQuality = 70
)

var ErrEncode = errors.New("frame encode failed")

// Chunk frames one encoded image as a multipart part.
func Chunk(data []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(data) + 64)
	buf.WriteString("--" + Boundary + "\r\n")
	buf.WriteString("Content-Type: image/jpeg\r\n\r\n")
	buf.Write(data)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

type Encoder interface {
	Encode(frame *camera.Frame) ([]byte, error)
}

type JPEGEncoder struct {
	Quality int
}

func NewJPEGEncoder(quality int) JPEGEncoder {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return JPEGEncoder{Quality: quality}
}

func (e JPEGEncoder) Encode(frame *camera.Frame) ([]byte, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("%w: empty frame", ErrEncode)
	}

	quality := e.Quality
	if quality == 0 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame.Image, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}
