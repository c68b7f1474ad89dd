package face

import "time"

type CameraInfoResponse struct {
	CameraAvailable     bool    `json:"camera_available"`
	DetectionConfidence float64 `json:"detection_confidence"`
	TrackingConfidence  float64 `json:"tracking_confidence"`
	Status              string  `json:"status"`
	Width               int     `json:"width,omitempty"`
	Height              int     `json:"height,omitempty"`
	FPS                 float64 `json:"fps,omitempty"`
}

type StatusResponse struct {
	CurrentStep         int        `json:"current_step"`
	TotalSteps          int        `json:"total_steps"`
	CurrentPoseRequired *string    `json:"current_pose_required"`
	LoginFinished       bool       `json:"login_finished"`
	ProgressPercentage  float64    `json:"progress_percentage"`
	VerificationID      string     `json:"verification_id,omitempty"`
	Token               string     `json:"token,omitempty"`
	TokenExpiresAt      *time.Time `json:"token_expires_at,omitempty"`
}

type ResetResponse struct {
	Message string `json:"message"`
}

type SequenceResponse struct {
	Sequence []string `json:"sequence"`
	HoldTime float64  `json:"hold_time"`
}

type VerificationResponse struct {
	VerificationID string    `json:"verification_id"`
	Steps          []string  `json:"steps"`
	CompletedAt    time.Time `json:"completed_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

type RootResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}
