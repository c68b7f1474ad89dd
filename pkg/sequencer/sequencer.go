// Package sequencer holds the verification progress of the login session and
// advances it from per-frame pose observations.
//
// The frame loop is the only caller of Process. Reset and Snapshot may be
// called from other goroutines; all three are serialized, so a reset always
// lands between two frames and a snapshot is never torn.
package sequencer

import (
	"PoseLogin/pkg/pose"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrEmptySequence = errors.New("sequencer: login sequence is empty")
	ErrInvalidStep   = errors.New("sequencer: invalid pose in login sequence")
	ErrInvalidHold   = errors.New("sequencer: hold duration must be positive")
)

const DefaultHold = time.Second

var DefaultSequence = []pose.Label{pose.LookingLeft, pose.LookingRight, pose.LookingUp, pose.Smile}

// Session is the mutable verification record.
type Session struct {
	Sequence      []pose.Label
	Hold          time.Duration
	CurrentStep   int
	Finished      bool
	HoldStartedAt *time.Time
}

// Transition reports what a single Process call changed.
type Transition struct {
	Advanced bool
	Finished bool
	Step     int
}

type Sequencer struct {
	mu      sync.RWMutex
	session Session
}

func New(sequence []pose.Label, hold time.Duration) (*Sequencer, error) {
	if len(sequence) == 0 {
		return nil, ErrEmptySequence
	}
	for i, step := range sequence {
		if step == pose.Unknown || !step.Valid() {
			return nil, fmt.Errorf("%w: step %d is %q", ErrInvalidStep, i, step)
		}
	}
	if hold <= 0 {
		return nil, ErrInvalidHold
	}

	return &Sequencer{
		session: Session{
			Sequence: append([]pose.Label(nil), sequence...),
			Hold:     hold,
		},
	}, nil
}

// Process feeds one observation taken at now. A step advances only after the
// expected pose has been observed continuously for the hold duration; any
// other observation restarts the hold.
func (s *Sequencer) Process(observation pose.Label, now time.Time) Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.session
	if st.Finished {
		return Transition{Finished: true, Step: st.CurrentStep}
	}

	expected := st.Sequence[st.CurrentStep]
	if observation != expected {
		st.HoldStartedAt = nil
		return Transition{Step: st.CurrentStep}
	}

	if st.HoldStartedAt == nil {
		started := now
		st.HoldStartedAt = &started
		return Transition{Step: st.CurrentStep}
	}

	if now.Sub(*st.HoldStartedAt) < st.Hold {
		return Transition{Step: st.CurrentStep}
	}

	st.CurrentStep++
	st.HoldStartedAt = nil
	if st.CurrentStep == len(st.Sequence) {
		st.Finished = true
	}
	return Transition{Advanced: true, Finished: st.Finished, Step: st.CurrentStep}
}

func (s *Sequencer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.CurrentStep = 0
	s.session.Finished = false
	s.session.HoldStartedAt = nil
}

func (s *Sequencer) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Sequence:    append([]pose.Label(nil), s.session.Sequence...),
		Hold:        s.session.Hold,
		CurrentStep: s.session.CurrentStep,
		Finished:    s.session.Finished,
	}
	if s.session.HoldStartedAt != nil {
		started := *s.session.HoldStartedAt
		snap.HoldStartedAt = &started
	}
	return snap
}

func (s *Sequencer) Sequence() []pose.Label {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]pose.Label(nil), s.session.Sequence...)
}

func (s *Sequencer) Hold() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Hold
}
