package config

import (
	"PoseLogin/pkg/pose"
	"github.com/go-playground/validator/v10"
)

func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// pose_step accepts every pose a login step may ask for.
	_ = v.RegisterValidation("pose_step", func(fl validator.FieldLevel) bool {
		label, err := pose.ParseLabel(fl.Field().String())
		return err == nil && label != pose.Unknown
	})

	return v
}
