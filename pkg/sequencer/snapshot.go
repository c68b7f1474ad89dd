package sequencer

import (
	"PoseLogin/pkg/pose"
	"time"
)

// Snapshot is a read-only copy of the session.
type Snapshot struct {
	Sequence      []pose.Label
	Hold          time.Duration
	CurrentStep   int
	Finished      bool
	HoldStartedAt *time.Time
}

func (s Snapshot) TotalSteps() int {
	return len(s.Sequence)
}

// Required is the pose the user must hold next, nil once finished.
func (s Snapshot) Required() *pose.Label {
	if s.Finished || s.CurrentStep >= len(s.Sequence) {
		return nil
	}
	required := s.Sequence[s.CurrentStep]
	return &required
}

func (s Snapshot) ProgressPercentage() float64 {
	if len(s.Sequence) == 0 {
		return 0
	}
	return float64(s.CurrentStep) / float64(len(s.Sequence)) * 100
}
