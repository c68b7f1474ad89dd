package sequencer

import (
	"PoseLogin/pkg/pose"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(seconds float64) time.Time {
	return t0.Add(time.Duration(seconds * float64(time.Second)))
}

func newDefault(t *testing.T) *Sequencer {
	t.Helper()
	s, err := New(DefaultSequence, time.Second)
	require.NoError(t, err)
	return s
}

func TestNewValidatesInput(t *testing.T) {
	_, err := New(nil, time.Second)
	assert.ErrorIs(t, err, ErrEmptySequence)

	_, err = New([]pose.Label{pose.LookingLeft, pose.Unknown}, time.Second)
	assert.ErrorIs(t, err, ErrInvalidStep)

	_, err = New([]pose.Label{"Wink"}, time.Second)
	assert.ErrorIs(t, err, ErrInvalidStep)

	_, err = New(DefaultSequence, 0)
	assert.ErrorIs(t, err, ErrInvalidHold)
}

func TestHoldAdvancesStep(t *testing.T) {
	s := newDefault(t)

	tr := s.Process(pose.LookingLeft, at(0))
	assert.False(t, tr.Advanced)
	require.NotNil(t, s.Snapshot().HoldStartedAt)

	tr = s.Process(pose.LookingLeft, at(1.1))
	assert.True(t, tr.Advanced)
	assert.Equal(t, 1, tr.Step)

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.CurrentStep)
	assert.Nil(t, snap.HoldStartedAt)
	assert.Equal(t, pose.LookingRight, *snap.Required())

	// The next step's hold only starts on this tick.
	tr = s.Process(pose.LookingRight, at(1.1))
	assert.False(t, tr.Advanced)
	assert.Equal(t, at(1.1), *s.Snapshot().HoldStartedAt)

	tr = s.Process(pose.LookingRight, at(1.5))
	assert.False(t, tr.Advanced)

	tr = s.Process(pose.LookingRight, at(2.1))
	assert.True(t, tr.Advanced)
	assert.Equal(t, 2, s.Snapshot().CurrentStep)
}

func TestHoldExactlyAtDurationAdvances(t *testing.T) {
	s := newDefault(t)
	s.Process(pose.LookingLeft, at(0))
	assert.True(t, s.Process(pose.LookingLeft, at(1)).Advanced)
}

func TestDeviationRestartsHold(t *testing.T) {
	s := newDefault(t)

	s.Process(pose.LookingLeft, at(0))
	s.Process(pose.Unknown, at(0.5))
	assert.Nil(t, s.Snapshot().HoldStartedAt)

	assert.False(t, s.Process(pose.LookingLeft, at(0.6)).Advanced)
	assert.False(t, s.Process(pose.LookingLeft, at(1.2)).Advanced, "hold restarted at 0.6")
	assert.Equal(t, 0, s.Snapshot().CurrentStep)

	assert.True(t, s.Process(pose.LookingLeft, at(1.7)).Advanced)
	assert.Equal(t, 1, s.Snapshot().CurrentStep)
}

func TestWrongPoseNeverAdvances(t *testing.T) {
	s := newDefault(t)
	for i := 0; i < 50; i++ {
		tr := s.Process(pose.Smile, at(float64(i)))
		assert.False(t, tr.Advanced)
	}
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.CurrentStep)
	assert.Nil(t, snap.HoldStartedAt)
}

func TestAtMostOneAdvancePerCall(t *testing.T) {
	s := newDefault(t)
	s.Process(pose.LookingLeft, at(0))

	// A very long hold still only advances one step.
	tr := s.Process(pose.LookingLeft, at(100))
	assert.True(t, tr.Advanced)
	assert.Equal(t, 1, s.Snapshot().CurrentStep)
}

func TestOneStepPerHoldInterval(t *testing.T) {
	seq := []pose.Label{pose.Smile, pose.Smile, pose.Smile}
	s, err := New(seq, time.Second)
	require.NoError(t, err)

	advances := 0
	for i := 0; i <= 60; i++ {
		tr := s.Process(pose.Smile, at(float64(i)*0.1))
		if tr.Advanced {
			advances++
		}
	}

	// Each step needs a tick to start the hold and a tick one second later:
	// 0.0 -> 1.0, 1.1 -> 2.1, 2.2 -> 3.2.
	assert.Equal(t, 3, advances)
	assert.True(t, s.Snapshot().Finished)
}

func TestFullSequenceFinishes(t *testing.T) {
	s := newDefault(t)
	now := 0.0
	for i, step := range DefaultSequence {
		s.Process(step, at(now))
		tr := s.Process(step, at(now+1))
		require.True(t, tr.Advanced, "step %d", i)
		now += 2
	}

	snap := s.Snapshot()
	assert.True(t, snap.Finished)
	assert.Equal(t, len(DefaultSequence), snap.CurrentStep)
	assert.Nil(t, snap.Required())
	assert.Equal(t, 100.0, snap.ProgressPercentage())
}

func TestProcessAfterFinishedIsNoop(t *testing.T) {
	s, err := New([]pose.Label{pose.Smile}, time.Second)
	require.NoError(t, err)

	s.Process(pose.Smile, at(0))
	require.True(t, s.Process(pose.Smile, at(1)).Finished)
	before := s.Snapshot()

	for i, obs := range []pose.Label{pose.Smile, pose.Unknown, pose.LookingLeft, pose.Smile} {
		tr := s.Process(obs, at(float64(2+i)))
		assert.False(t, tr.Advanced)
		assert.True(t, tr.Finished)
	}
	assert.Equal(t, before, s.Snapshot())
}

func TestResetReturnsToInitialState(t *testing.T) {
	s := newDefault(t)
	s.Process(pose.LookingLeft, at(0))
	s.Process(pose.LookingLeft, at(1))
	s.Process(pose.LookingRight, at(1.5))

	s.Reset()

	snap := s.Snapshot()
	assert.Equal(t, 0, snap.CurrentStep)
	assert.False(t, snap.Finished)
	assert.Nil(t, snap.HoldStartedAt)

	s.Reset()
	assert.Equal(t, snap, s.Snapshot())
}

func TestCurrentStepIsMonotonic(t *testing.T) {
	s := newDefault(t)
	observations := []pose.Label{
		pose.LookingLeft, pose.Unknown, pose.LookingLeft, pose.LookingLeft, pose.LookingRight,
		pose.Smile, pose.LookingRight, pose.LookingRight, pose.LookingUp, pose.Unknown,
	}

	last := 0
	for i := 0; i < 200; i++ {
		s.Process(observations[i%len(observations)], at(float64(i)*0.37))
		step := s.Snapshot().CurrentStep
		assert.GreaterOrEqual(t, step, last)
		last = step
	}
}

func TestProgressPercentageTracksStep(t *testing.T) {
	s := newDefault(t)
	assert.Equal(t, 0.0, s.Snapshot().ProgressPercentage())

	s.Process(pose.LookingLeft, at(0))
	s.Process(pose.LookingLeft, at(1))
	assert.Equal(t, 25.0, s.Snapshot().ProgressPercentage())

	s.Reset()
	assert.Equal(t, 0.0, s.Snapshot().ProgressPercentage())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newDefault(t)
	s.Process(pose.LookingLeft, at(0))

	snap := s.Snapshot()
	snap.Sequence[0] = pose.Smile
	*snap.HoldStartedAt = at(99)

	fresh := s.Snapshot()
	assert.Equal(t, pose.LookingLeft, fresh.Sequence[0])
	assert.Equal(t, at(0), *fresh.HoldStartedAt)
}

func TestConcurrentSnapshotsDuringProcessing(t *testing.T) {
	s := newDefault(t)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.Process(DefaultSequence[i%len(DefaultSequence)], at(float64(i)*0.5))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := s.Snapshot()
			assert.Equal(t, snap.Finished, snap.CurrentStep == snap.TotalSteps())
		}
	}()
	wg.Wait()
}
