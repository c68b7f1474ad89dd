package face

import (
	"PoseLogin/pkg/response"
	"net/http"
)

var (
	ErrCameraUnavailable    = response.NewError(http.StatusServiceUnavailable, "camera not available")
	ErrStreamBusy           = response.NewError(http.StatusConflict, "camera stream already in use")
	ErrVerificationNotFound = response.NewError(http.StatusNotFound, "verification not found")
	ErrInvalidToken         = response.NewError(http.StatusUnauthorized, "verification token invalid or expired")
	ErrInternalServerError  = response.NewError(http.StatusInternalServerError, "internal server error")
)
