//go:build opencv

package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

type videoSource struct {
	cfg     Config
	capture *gocv.VideoCapture
	mat     gocv.Mat
	seq     uint64

	mu       sync.Mutex
	once     sync.Once
	released bool
}

// Open opens the capture device once with fixed capture parameters.
func Open(cfg Config) (Source, error) {
	capture, err := gocv.OpenVideoCapture(cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrUnavailable, cfg.Index, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: device %d not opened", ErrUnavailable, cfg.Index)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	capture.Set(gocv.VideoCaptureFPS, cfg.FPS)
	capture.Set(gocv.VideoCaptureBufferSize, 1)

	logrus.WithFields(logrus.Fields{
		"index":  cfg.Index,
		"width":  cfg.Width,
		"height": cfg.Height,
		"fps":    cfg.FPS,
	}).Info("Camera opened")

	return &videoSource{
		cfg:     cfg,
		capture: capture,
		mat:     gocv.NewMat(),
	}, nil
}

func (s *videoSource) Acquire(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil, ErrReleased
	}

	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, fmt.Errorf("%w: device %d", ErrReadFailed, s.cfg.Index)
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(s.mat, &rgb, gocv.ColorBGRToRGBA)

	img, err := rgb.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: convert frame: %v", ErrReadFailed, err)
	}

	s.seq++
	return NewMirroredFrame(s.seq, time.Now(), img), nil
}

func (s *videoSource) Release() error {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.released = true
		s.mat.Close()
		if err := s.capture.Close(); err != nil {
			logrus.WithError(err).Warn("Error releasing camera")
			return
		}
		logrus.WithField("index", s.cfg.Index).Info("Camera released")
	})
	return nil
}

func (s *videoSource) Info() Info {
	return Info{
		Index:     s.cfg.Index,
		Width:     s.cfg.Width,
		Height:    s.cfg.Height,
		FPS:       s.cfg.FPS,
		Available: true,
	}
}
