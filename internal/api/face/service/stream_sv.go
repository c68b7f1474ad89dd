package faceService

import (
	"PoseLogin/internal/api/face"
	"PoseLogin/pkg/metrics"
	"PoseLogin/pkg/stream"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// BeginStream claims the single stream slot. The returned release must be
// called once the stream ends.
func (s *faceService) BeginStream() (func(), error) {
	if !s.available() {
		return nil, face.ErrCameraUnavailable
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.closed {
		return nil, face.ErrCameraUnavailable
	}
	if !s.busy.CompareAndSwap(false, true) {
		return nil, face.ErrStreamBusy
	}

	s.active.Add(1)
	metrics.RecordStreamStart()
	s.log.Info("Camera stream started")

	var once sync.Once
	return func() {
		once.Do(func() {
			metrics.RecordStreamEnd()
			s.busy.Store(false)
			s.active.Done()
			s.log.Info("Camera stream ended")
		})
	}, nil
}

// RunStream drives the pipeline into sink until the consumer goes away, the
// device stops yielding frames or the service closes.
func (s *faceService) RunStream(sink stream.Sink) error {
	if !s.available() {
		return face.ErrCameraUnavailable
	}

	err := s.stream.Run(s.ctx, sink)
	if errors.Is(err, stream.ErrClientGone) {
		s.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Info("Stream client disconnected")
		return nil
	}
	return err
}
