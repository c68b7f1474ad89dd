package stream

import (
	"PoseLogin/pkg/camera"
	"PoseLogin/pkg/pose"
	"PoseLogin/pkg/sequencer"
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu       sync.Mutex
	seq      uint64
	step     time.Duration
	failAt   uint64
	acquired int
	released bool
}

func (s *fakeSource) Acquire(ctx context.Context) (*camera.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquired++
	s.seq++
	if s.failAt != 0 && s.seq >= s.failAt {
		return nil, camera.ErrReadFailed
	}
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	return camera.NewFrame(s.seq, base.Add(time.Duration(s.seq)*s.step), img), nil
}

func (s *fakeSource) Release() error {
	s.released = true
	return nil
}

func (s *fakeSource) Info() camera.Info {
	return camera.Info{Width: 64, Height: 48, Available: true}
}

func (s *fakeSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired
}

type emptyExtractor struct {
	err error
}

func (e emptyExtractor) Extract(context.Context, *camera.Frame) (pose.Detection, error) {
	return pose.Detection{}, e.err
}

type fixedClassifier struct {
	label pose.Label
}

func (c fixedClassifier) Classify(context.Context, *camera.Frame, pose.Detection) pose.Label {
	return c.label
}

type failingEncoder struct{}

func (failingEncoder) Encode(*camera.Frame) ([]byte, error) {
	return nil, ErrEncode
}

func newSequencer(t *testing.T, steps ...pose.Label) *sequencer.Sequencer {
	t.Helper()
	s, err := sequencer.New(steps, time.Second)
	require.NoError(t, err)
	return s
}

func quietLogger() *logrus.Logger {
	log, _ := logtest.NewNullLogger()
	return log
}

func TestChunkFormat(t *testing.T) {
	chunk := Chunk([]byte("JPEG"))
	assert.Equal(t, "--frame\r\nContent-Type: image/jpeg\r\n\r\nJPEG\r\n", string(chunk))
	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", ContentType)
}

func TestJPEGEncoderProducesDecodableImage(t *testing.T) {
	frame := camera.NewFrame(1, base, image.NewRGBA(image.Rect(0, 0, 32, 16)))
	data, err := NewJPEGEncoder(70).Encode(frame)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 16), img.Bounds())
}

func TestJPEGEncoderRejectsEmptyFrame(t *testing.T) {
	_, err := NewJPEGEncoder(70).Encode(nil)
	assert.ErrorIs(t, err, ErrEncode)
}

func TestNewJPEGEncoderClampsQuality(t *testing.T) {
	assert.Equal(t, DefaultJPEGQuality, NewJPEGEncoder(0).Quality)
	assert.Equal(t, DefaultJPEGQuality, NewJPEGEncoder(101).Quality)
	assert.Equal(t, 90, NewJPEGEncoder(90).Quality)
}

func TestNextProducesChunk(t *testing.T) {
	seq := newSequencer(t, pose.LookingLeft)
	p := NewPipeline(&fakeSource{step: 100 * time.Millisecond}, emptyExtractor{}, fixedClassifier{pose.LookingLeft}, seq,
		WithLogger(quietLogger()))

	step := p.Next(context.Background())
	require.Equal(t, OutcomeFrame, step.Outcome)
	assert.NoError(t, step.Err)
	assert.Equal(t, pose.LookingLeft, step.Pose)
	assert.Equal(t, uint64(1), step.Seq)
	assert.True(t, bytes.HasPrefix(step.Chunk, []byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n")))
	assert.True(t, bytes.HasSuffix(step.Chunk, []byte("\r\n")))
	assert.NotNil(t, seq.Snapshot().HoldStartedAt)
}

func TestNextAdvancesUsingCaptureTime(t *testing.T) {
	seq := newSequencer(t, pose.Smile)
	p := NewPipeline(&fakeSource{step: 600 * time.Millisecond}, emptyExtractor{}, fixedClassifier{pose.Smile}, seq,
		WithLogger(quietLogger()))

	ctx := context.Background()
	assert.False(t, p.Next(ctx).Transition.Advanced) // t=0.6 hold starts
	assert.False(t, p.Next(ctx).Transition.Advanced) // t=1.2
	step := p.Next(ctx)                              // t=1.8
	assert.True(t, step.Transition.Advanced)
	assert.True(t, step.Transition.Finished)
}

func TestNextUsesClockWithoutCaptureTime(t *testing.T) {
	seq := newSequencer(t, pose.Smile)
	now := base
	src := &zeroTimeSource{}
	p := NewPipeline(src, emptyExtractor{}, fixedClassifier{pose.Smile}, seq,
		WithLogger(quietLogger()),
		WithClock(func() time.Time { return now }))

	p.Next(context.Background())
	now = now.Add(2 * time.Second)
	assert.True(t, p.Next(context.Background()).Transition.Finished)
}

type zeroTimeSource struct{ fakeSource }

func (s *zeroTimeSource) Acquire(ctx context.Context) (*camera.Frame, error) {
	f, err := s.fakeSource.Acquire(ctx)
	if f != nil {
		f.CapturedAt = time.Time{}
	}
	return f, err
}

func TestNextReadFailureTerminates(t *testing.T) {
	p := NewPipeline(&fakeSource{failAt: 1}, emptyExtractor{}, fixedClassifier{pose.Unknown},
		newSequencer(t, pose.Smile), WithLogger(quietLogger()))

	step := p.Next(context.Background())
	assert.Equal(t, OutcomeTerminate, step.Outcome)
	assert.ErrorIs(t, step.Err, camera.ErrReadFailed)
	assert.Nil(t, step.Chunk)
}

func TestNextEncodeFailureSkipsButKeepsProgress(t *testing.T) {
	seq := newSequencer(t, pose.Smile)
	p := NewPipeline(&fakeSource{step: time.Second}, emptyExtractor{}, fixedClassifier{pose.Smile}, seq,
		WithEncoder(failingEncoder{}), WithLogger(quietLogger()))

	step := p.Next(context.Background())
	assert.Equal(t, OutcomeSkip, step.Outcome)
	assert.ErrorIs(t, step.Err, ErrEncode)
	assert.Nil(t, step.Chunk)
	assert.NotNil(t, seq.Snapshot().HoldStartedAt)
}

func TestNextExtractorErrorDegradesToEmpty(t *testing.T) {
	p := NewPipeline(&fakeSource{}, emptyExtractor{err: errors.New("model down")}, fixedClassifier{pose.Unknown},
		newSequencer(t, pose.Smile), WithLogger(quietLogger()))

	step := p.Next(context.Background())
	assert.Equal(t, OutcomeFrame, step.Outcome)
	assert.Equal(t, pose.Unknown, step.Pose)
}

func TestNextAfterCancelNeverAcquires(t *testing.T) {
	src := &fakeSource{}
	p := NewPipeline(src, emptyExtractor{}, fixedClassifier{pose.Unknown}, newSequencer(t, pose.Smile),
		WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	step := p.Next(ctx)
	assert.Equal(t, OutcomeTerminate, step.Outcome)
	assert.ErrorIs(t, step.Err, context.Canceled)
	assert.Zero(t, src.count())
}

func TestRunWritesChunksUntilReadFailure(t *testing.T) {
	src := &fakeSource{failAt: 4}
	var steps []Outcome
	p := NewPipeline(src, emptyExtractor{}, fixedClassifier{pose.Unknown}, newSequencer(t, pose.Smile),
		WithLogger(quietLogger()),
		WithFrameInterval(time.Millisecond),
		WithObserver(ObserverFunc(func(step Step, _ time.Duration) {
			steps = append(steps, step.Outcome)
		})))

	var chunks [][]byte
	err := p.Run(context.Background(), func(chunk []byte) error {
		chunks = append(chunks, chunk)
		return nil
	})

	require.NoError(t, err)
	assert.Len(t, chunks, 3)
	assert.Equal(t, []Outcome{OutcomeFrame, OutcomeFrame, OutcomeFrame, OutcomeTerminate}, steps)
}

func TestRunReturnsSinkError(t *testing.T) {
	p := NewPipeline(&fakeSource{}, emptyExtractor{}, fixedClassifier{pose.Unknown}, newSequencer(t, pose.Smile),
		WithLogger(quietLogger()), WithFrameInterval(time.Millisecond))

	broken := errors.New("broken pipe")
	err := p.Run(context.Background(), func([]byte) error { return broken })
	assert.ErrorIs(t, err, ErrClientGone)
	assert.ErrorContains(t, err, "broken pipe")
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &fakeSource{}
	p := NewPipeline(src, emptyExtractor{}, fixedClassifier{pose.Unknown}, newSequencer(t, pose.Smile),
		WithLogger(quietLogger()), WithFrameInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, func([]byte) error { return nil })
	}()

	require.Eventually(t, func() bool { return src.count() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not stop after cancel")
	}
	assert.Equal(t, 1, src.count())
}

func TestRunSkipsWithoutWriting(t *testing.T) {
	p := NewPipeline(&fakeSource{failAt: 3}, emptyExtractor{}, fixedClassifier{pose.Unknown}, newSequencer(t, pose.Smile),
		WithLogger(quietLogger()), WithFrameInterval(time.Millisecond), WithEncoder(failingEncoder{}))

	writes := 0
	err := p.Run(context.Background(), func([]byte) error {
		writes++
		return nil
	})
	assert.NoError(t, err)
	assert.Zero(t, writes)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "frame", OutcomeFrame.String())
	assert.Equal(t, "skip", OutcomeSkip.String())
	assert.Equal(t, "terminate", OutcomeTerminate.String())
}
