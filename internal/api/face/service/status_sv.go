package faceService

import (
	"PoseLogin/internal/api/face"
	"PoseLogin/internal/entity"
	"PoseLogin/pkg/metrics"
	"context"
)

func (s *faceService) Status(ctx context.Context) (entity.SessionStatus, error) {
	if !s.available() {
		return entity.SessionStatus{}, face.ErrCameraUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.session.Sequencer.Snapshot()
	status := entity.SessionStatus{
		CurrentStep:        snap.CurrentStep,
		TotalSteps:         snap.TotalSteps(),
		Finished:           snap.Finished,
		ProgressPercentage: snap.ProgressPercentage(),
		HoldStartedAt:      snap.HoldStartedAt,
	}
	if required := snap.Required(); required != nil {
		name := string(*required)
		status.RequiredPose = &name
	}
	if s.verification != nil {
		v := *s.verification
		status.Verification = &v
		status.VerificationToken = s.verificationToken
	}
	return status, nil
}

// Reset returns the session to step zero and forgets any issued verification.
func (s *faceService) Reset(ctx context.Context) error {
	if !s.available() {
		return face.ErrCameraUnavailable
	}

	s.mu.Lock()
	s.session.Sequencer.Reset()
	previous := s.verification
	s.verification = nil
	s.verificationToken = ""
	s.mu.Unlock()

	metrics.RecordReset()

	if previous != nil && s.store != nil {
		if err := s.store.Delete(ctx, verificationKey(previous.ID)); err != nil {
			s.log.WithError(err).Warn("Failed to delete verification from store")
		}
	}

	s.log.Info("Login session reset")
	return nil
}
