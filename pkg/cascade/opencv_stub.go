//go:build !opencv

package cascade

import (
	"PoseLogin/pkg/camera"
	"context"
	"image"
)

type Detector struct{}

func New(Config) (*Detector, error) {
	return nil, ErrUnsupported
}

func (d *Detector) Regions(context.Context, *camera.Frame) ([]image.Rectangle, error) {
	return nil, ErrUnsupported
}

func (d *Detector) Smiling(context.Context, *camera.Frame, image.Rectangle) (bool, error) {
	return false, ErrUnsupported
}

func (d *Detector) Close() error {
	return nil
}
