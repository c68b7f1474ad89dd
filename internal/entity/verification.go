package entity

import "time"

// Verification is issued once a login sequence finishes.
type Verification struct {
	ID          string    `json:"id"`
	Steps       []string  `json:"steps"`
	CompletedAt time.Time `json:"completed_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (v Verification) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

// VerificationClaims is what the liveness token middleware stores in the
// request locals.
type VerificationClaims struct {
	VerificationID string
	Steps          int
	ExpiresAt      time.Time
}
