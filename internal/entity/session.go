package entity

import "time"

// SessionStatus is the externally visible state of the login session.
type SessionStatus struct {
	CurrentStep        int
	TotalSteps         int
	RequiredPose       *string
	Finished           bool
	ProgressPercentage float64
	HoldStartedAt      *time.Time
	Verification       *Verification
	VerificationToken  string
}
