// Package stream runs the per-frame pipeline and writes the result as a
// multipart MJPEG body.
package stream

import (
	"PoseLogin/pkg/camera"
	"PoseLogin/pkg/overlay"
	"PoseLogin/pkg/pose"
	"PoseLogin/pkg/sequencer"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultFrameInterval = 33 * time.Millisecond

var ErrClientGone = errors.New("stream consumer disconnected")

type Outcome int

const (
	OutcomeFrame Outcome = iota
	OutcomeSkip
	OutcomeTerminate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFrame:
		return "frame"
	case OutcomeSkip:
		return "skip"
	case OutcomeTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// Step is the result of one pipeline pass.
type Step struct {
	Outcome    Outcome
	Seq        uint64
	Chunk      []byte
	Pose       pose.Label
	Transition sequencer.Transition
	Err        error
}

type Classifier interface {
	Classify(ctx context.Context, frame *camera.Frame, det pose.Detection) pose.Label
}

// Sink receives encoded chunks. A non-nil error means the consumer is gone.
type Sink func(chunk []byte) error

// Observer is notified after every pass, including skipped and terminal ones.
type Observer interface {
	OnStep(step Step, elapsed time.Duration)
}

type ObserverFunc func(step Step, elapsed time.Duration)

func (f ObserverFunc) OnStep(step Step, elapsed time.Duration) {
	f(step, elapsed)
}

type Pipeline struct {
	source     camera.Source
	extractor  pose.LandmarkExtractor
	classifier Classifier
	sequencer  *sequencer.Sequencer
	encoder    Encoder

	interval  time.Duration
	observers []Observer
	log       *logrus.Logger
	now       func() time.Time
}

type Option func(*Pipeline)

func WithEncoder(enc Encoder) Option {
	return func(p *Pipeline) {
		p.encoder = enc
	}
}

func WithFrameInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}

func WithLogger(log *logrus.Logger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

func NewPipeline(
	source camera.Source,
	extractor pose.LandmarkExtractor,
	classifier Classifier,
	seq *sequencer.Sequencer,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		source:     source,
		extractor:  extractor,
		classifier: classifier,
		sequencer:  seq,
		encoder:    NewJPEGEncoder(DefaultJPEGQuality),
		interval:   DefaultFrameInterval,
		log:        logrus.StandardLogger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) FrameInterval() time.Duration {
	return p.interval
}

// Next runs acquire, extract, classify, sequence, annotate and encode for a
// single frame.
func (p *Pipeline) Next(ctx context.Context) Step {
	if err := ctx.Err(); err != nil {
		return Step{Outcome: OutcomeTerminate, Pose: pose.Unknown, Err: err}
	}

	frame, err := p.source.Acquire(ctx)
	if err != nil {
		return Step{Outcome: OutcomeTerminate, Pose: pose.Unknown, Err: err}
	}

	det, err := p.extractor.Extract(ctx, frame)
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"frame_seq": frame.Seq,
			"error":     err.Error(),
		}).Warn("Landmark extraction failed")
		det = pose.Detection{}
	}

	label := p.classifier.Classify(ctx, frame, det)

	observedAt := frame.CapturedAt
	if observedAt.IsZero() {
		observedAt = p.now()
	}
	transition := p.sequencer.Process(label, observedAt)

	step := Step{
		Outcome:    OutcomeFrame,
		Seq:        frame.Seq,
		Pose:       label,
		Transition: transition,
	}

	annotated := overlay.Annotate(frame, p.sequencer.Snapshot(), label)
	data, err := p.encoder.Encode(annotated)
	if err != nil {
		step.Outcome = OutcomeSkip
		step.Err = err
		return step
	}

	step.Chunk = Chunk(data)
	return step
}

// Run drives Next until ctx is cancelled, the device stops yielding frames or
// the sink fails. Cancellation and read failure end the stream cleanly; a
// sink failure is returned wrapped in ErrClientGone.
func (p *Pipeline) Run(ctx context.Context, sink Sink) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		started := time.Now()
		step := p.Next(ctx)
		p.notify(step, time.Since(started))

		switch step.Outcome {
		case OutcomeTerminate:
			if ctx.Err() == nil {
				p.log.WithFields(logrus.Fields{
					"error": errString(step.Err),
				}).Warn("Frame source stopped, ending stream")
			}
			return nil
		case OutcomeSkip:
			p.log.WithFields(logrus.Fields{
				"frame_seq": step.Seq,
				"error":     errString(step.Err),
			}).Warn("Frame skipped")
		case OutcomeFrame:
			if err := sink(step.Chunk); err != nil {
				return fmt.Errorf("%w: %v", ErrClientGone, err)
			}
		}

		timer.Reset(p.interval)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

func (p *Pipeline) notify(step Step, elapsed time.Duration) {
	for _, o := range p.observers {
		o.OnStep(step, elapsed)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
