//go:build opencv

package cascade

import (
	"PoseLogin/pkg/camera"
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
)

type Detector struct {
	cfg   Config
	face  gocv.CascadeClassifier
	smile gocv.CascadeClassifier

	mu      sync.Mutex
	gray    gocv.Mat
	graySeq uint64
	hasGray bool
}

func New(cfg Config) (*Detector, error) {
	d := &Detector{
		cfg:   cfg,
		face:  gocv.NewCascadeClassifier(),
		smile: gocv.NewCascadeClassifier(),
		gray:  gocv.NewMat(),
	}

	if err := load(&d.face, cfg.FaceCascadePath); err != nil {
		d.Close()
		return nil, err
	}
	if err := load(&d.smile, cfg.SmileCascadePath); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func load(classifier *gocv.CascadeClassifier, file string) error {
	if classifier.Load(file) {
		return nil
	}
	base := filepath.Base(file)
	for _, dir := range searchDirs {
		if classifier.Load(filepath.Join(dir, base)) {
			return nil
		}
	}
	return fmt.Errorf("failed to load cascade classifier %s", file)
}

func (d *Detector) Regions(_ context.Context, frame *camera.Frame) ([]image.Rectangle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	gray, err := d.grayFor(frame)
	if err != nil {
		return nil, err
	}

	p := d.cfg.Face
	return d.face.DetectMultiScaleWithParams(gray, p.ScaleFactor, p.MinNeighbors, 0, p.MinSize, image.Point{}), nil
}

func (d *Detector) Smiling(_ context.Context, frame *camera.Frame, region image.Rectangle) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	gray, err := d.grayFor(frame)
	if err != nil {
		return false, err
	}

	region = region.Intersect(image.Rect(0, 0, gray.Cols(), gray.Rows()))
	if region.Empty() {
		return false, nil
	}

	roi := gray.Region(region)
	defer roi.Close()

	p := d.cfg.Smile
	smiles := d.smile.DetectMultiScaleWithParams(roi, p.ScaleFactor, p.MinNeighbors, 0, p.MinSize, image.Point{})
	return len(smiles) > 0, nil
}

// grayFor converts a frame once and reuses it for every region of that frame.
func (d *Detector) grayFor(frame *camera.Frame) (gocv.Mat, error) {
	if d.hasGray && d.graySeq == frame.Seq {
		return d.gray, nil
	}

	rgba, err := gocv.ImageToMatRGBA(frame.Image)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("convert frame %d: %w", frame.Seq, err)
	}
	defer rgba.Close()

	gocv.CvtColor(rgba, &d.gray, gocv.ColorRGBAToGray)
	d.graySeq = frame.Seq
	d.hasGray = true
	return d.gray, nil
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.face.Close()
	d.smile.Close()
	d.gray.Close()
	return nil
}
