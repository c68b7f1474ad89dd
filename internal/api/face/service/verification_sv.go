package faceService

import (
	"PoseLogin/internal/api/face"
	"PoseLogin/internal/entity"
	jwtPkg "PoseLogin/pkg/jwt"
	"PoseLogin/pkg/redis"
	"PoseLogin/pkg/stream"
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	verificationKeyPrefix = "face:verification:"
	storeTimeout          = 2 * time.Second
)

func verificationKey(id string) string {
	return verificationKeyPrefix + id
}

// onStep runs on the frame loop after every pass.
func (s *faceService) onStep(step stream.Step, _ time.Duration) {
	if !step.Transition.Advanced {
		return
	}

	s.log.WithFields(logrus.Fields{
		"frame_seq": step.Seq,
		"pose":      step.Pose,
		"step":      step.Transition.Step,
	}).Info("Login step completed")

	if step.Transition.Finished {
		s.issueVerification()
	}
}

func (s *faceService) issueVerification() {
	v := s.recordVerification()
	if v == nil || s.store == nil {
		return
	}

	s.persist(v)

	// A reset during the write already cleared the record; drop the copy.
	s.mu.Lock()
	current := s.verification
	s.mu.Unlock()
	if current == nil || current.ID != v.ID {
		s.forget(v.ID)
	}
}

// recordVerification creates and keeps the verification for a finished
// session. It returns nil when there is nothing to issue.
func (s *faceService) recordVerification() *entity.Verification {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A reset may have landed between the advance and this call.
	if !s.session.Sequencer.Snapshot().Finished || s.verification != nil {
		return nil
	}

	now := s.opts.Now()
	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		s.log.WithError(err).Error("Failed to generate verification id")
		return nil
	}

	sequence := s.session.Sequencer.Sequence()
	steps := make([]string, len(sequence))
	for i, label := range sequence {
		steps[i] = string(label)
	}

	v := &entity.Verification{
		ID:          id,
		Steps:       steps,
		CompletedAt: now,
		ExpiresAt:   now.Add(s.opts.VerificationTTL),
	}

	token, _, err := jwtPkg.Sign(map[string]interface{}{
		"verification_id": id,
		"steps":           len(steps),
	}, s.opts.VerificationTTL, jwtPkg.AccessTokenSecret)
	if err != nil {
		s.log.WithError(err).Warn("Verification issued without token")
	}

	s.verification = v
	s.verificationToken = token

	s.log.WithFields(logrus.Fields{
		"verification_id": id,
		"steps":           len(steps),
	}).Info("Login sequence finished, verification issued")

	copied := *v
	return &copied
}

func (s *faceService) persist(v *entity.Verification) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.WithError(err).Error("Failed to encode verification")
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
	defer cancel()

	if err := s.store.Set(ctx, verificationKey(v.ID), data, s.opts.VerificationTTL); err != nil {
		s.log.WithError(err).Warn("Failed to store verification")
	}
}

func (s *faceService) forget(id string) {
	ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, verificationKey(id)); err != nil {
		s.log.WithError(err).Warn("Failed to delete verification from store")
	}
}

func (s *faceService) Verification(ctx context.Context, id string) (*entity.Verification, error) {
	if !s.available() {
		return nil, face.ErrCameraUnavailable
	}

	now := s.opts.Now()

	s.mu.Lock()
	current := s.verification
	s.mu.Unlock()
	if current != nil && current.ID == id && !current.Expired(now) {
		v := *current
		return &v, nil
	}

	if s.store == nil {
		return nil, face.ErrVerificationNotFound
	}

	data, err := s.store.Get(ctx, verificationKey(id))
	if errors.Is(err, redis.ErrNotFound) {
		return nil, face.ErrVerificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", face.ErrInternalServerError, err)
	}

	var v entity.Verification
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: decode verification: %v", face.ErrInternalServerError, err)
	}
	if v.Expired(now) {
		return nil, face.ErrVerificationNotFound
	}
	return &v, nil
}
