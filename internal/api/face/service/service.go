package faceService

import (
	"PoseLogin/internal/api/face"
	"PoseLogin/internal/entity"
	"PoseLogin/pkg/camera"
	"PoseLogin/pkg/pose"
	"PoseLogin/pkg/redis"
	"PoseLogin/pkg/sequencer"
	"PoseLogin/pkg/stream"
	"PoseLogin/pkg/utils"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

type IFaceService interface {
	CameraInfo() (face.CameraInfoResponse, error)
	Status(ctx context.Context) (entity.SessionStatus, error)
	Reset(ctx context.Context) error
	Sequence() ([]pose.Label, time.Duration, error)
	BeginStream() (release func(), err error)
	RunStream(sink stream.Sink) error
	Verification(ctx context.Context, id string) (*entity.Verification, error)
	Close() error
}

// Session bundles the components that exist only when the camera opened.
type Session struct {
	Source     camera.Source
	Extractor  pose.LandmarkExtractor
	Classifier stream.Classifier
	Sequencer  *sequencer.Sequencer
}

type Options struct {
	FrameInterval       time.Duration
	Encoder             stream.Encoder
	VerificationTTL     time.Duration
	DetectionConfidence float64
	TrackingConfidence  float64
	Observers           []stream.Observer
	Now                 func() time.Time
}

type faceService struct {
	log     *logrus.Logger
	session *Session
	stream  *stream.Pipeline
	store   redis.IRedis
	utils   utils.IUtils
	opts    Options

	ctx       context.Context
	cancel    context.CancelFunc
	lifecycle sync.Mutex
	closed    bool
	active    sync.WaitGroup
	busy      atomic.Bool
	closing   sync.Once

	mu                sync.Mutex
	verification      *entity.Verification
	verificationToken string
}

// NewFaceService wires the session into a pipeline. session is nil when the
// camera could not be opened; every camera dependent call then fails with
// face.ErrCameraUnavailable. store may be nil.
func NewFaceService(
	log *logrus.Logger,
	session *Session,
	store redis.IRedis,
	u utils.IUtils,
	opts Options,
) IFaceService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.VerificationTTL <= 0 {
		opts.VerificationTTL = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &faceService{
		log:     log,
		session: session,
		store:   store,
		utils:   u,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
	}

	if session != nil {
		pipelineOpts := []stream.Option{
			stream.WithLogger(log),
			stream.WithFrameInterval(opts.FrameInterval),
			stream.WithClock(opts.Now),
			stream.WithObserver(stream.ObserverFunc(s.onStep)),
		}
		if opts.Encoder != nil {
			pipelineOpts = append(pipelineOpts, stream.WithEncoder(opts.Encoder))
		}
		for _, o := range opts.Observers {
			pipelineOpts = append(pipelineOpts, stream.WithObserver(o))
		}
		s.stream = stream.NewPipeline(session.Source, session.Extractor, session.Classifier, session.Sequencer, pipelineOpts...)
	}

	return s
}

func (s *faceService) available() bool {
	return s.session != nil
}

func (s *faceService) CameraInfo() (face.CameraInfoResponse, error) {
	if !s.available() {
		return face.CameraInfoResponse{}, face.ErrCameraUnavailable
	}

	info := s.session.Source.Info()
	return face.CameraInfoResponse{
		CameraAvailable:     true,
		DetectionConfidence: s.opts.DetectionConfidence,
		TrackingConfidence:  s.opts.TrackingConfidence,
		Status:              "ready",
		Width:               info.Width,
		Height:              info.Height,
		FPS:                 info.FPS,
	}, nil
}

func (s *faceService) Sequence() ([]pose.Label, time.Duration, error) {
	if !s.available() {
		return nil, 0, face.ErrCameraUnavailable
	}
	return s.session.Sequencer.Sequence(), s.session.Sequencer.Hold(), nil
}

// Close stops running streams and then releases the device. It is safe to
// call more than once.
func (s *faceService) Close() error {
	var err error
	s.closing.Do(func() {
		s.lifecycle.Lock()
		s.closed = true
		s.lifecycle.Unlock()

		s.cancel()
		s.active.Wait()
		if s.available() {
			err = s.session.Source.Release()
			s.log.Info("Camera released")
		}
	})
	return err
}
