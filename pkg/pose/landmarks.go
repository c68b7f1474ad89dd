package pose

import (
	"PoseLogin/pkg/camera"
	"context"
	"errors"
	"image"

	"github.com/sirupsen/logrus"
)

// Face mesh indices of the six stable points used for head pose.
const (
	RightEyeOuter = 33
	LeftEyeOuter  = 263
	NoseTip       = 1
	MouthRight    = 61
	MouthLeft     = 291
	Chin          = 199
)

var CanonicalIndices = []int{RightEyeOuter, LeftEyeOuter, NoseTip, MouthRight, MouthLeft, Chin}

// minCanonicalLen is the shortest landmark set holding every canonical index.
var minCanonicalLen = func() int {
	n := 0
	for _, idx := range CanonicalIndices {
		n = max(n, idx+1)
	}
	return n
}()

// ErrModelUnavailable marks a landmark model that is known to be down and is
// waiting before it retries. The model reports the outage itself, so callers
// only log it at debug level.
var ErrModelUnavailable = errors.New("landmark model unavailable")

// Point3D is a landmark with x and y normalized to the image size and z a
// relative depth on roughly the same scale as x.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// LandmarkSet holds the ordered landmarks of one face in one frame.
type LandmarkSet []Point3D

// PixelBounds returns the bounding box of the set in pixel space.
func (s LandmarkSet) PixelBounds(width, height int) image.Rectangle {
	if len(s) == 0 {
		return image.Rectangle{}
	}
	minX, minY := s[0].X, s[0].Y
	maxX, maxY := minX, minY
	for _, p := range s[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	w, h := float64(width), float64(height)
	return image.Rect(int(minX*w), int(minY*h), int(maxX*w), int(maxY*h))
}

// Detection is everything the detectors found in one frame.
type Detection struct {
	Faces   []LandmarkSet
	Regions []image.Rectangle
}

func (d Detection) Empty() bool {
	return len(d.Faces) == 0 && len(d.Regions) == 0
}

type LandmarkExtractor interface {
	Extract(ctx context.Context, frame *camera.Frame) (Detection, error)
}

// LandmarkModel is the dense landmark capability, typically a face mesh
// network.
type LandmarkModel interface {
	Landmarks(ctx context.Context, frame *camera.Frame) ([]LandmarkSet, error)
}

// RegionDetector finds coarse face boxes in pixel space.
type RegionDetector interface {
	Regions(ctx context.Context, frame *camera.Frame) ([]image.Rectangle, error)
}

type SmileDetector interface {
	Smiling(ctx context.Context, frame *camera.Frame, region image.Rectangle) (bool, error)
}

// Extractor runs a landmark model and a region detector on the same frame.
// Either may be nil. Detector failures are logged and produce an empty
// result for that detector.
type Extractor struct {
	Model   LandmarkModel
	Regions RegionDetector
	Log     *logrus.Logger
}

func NewExtractor(log *logrus.Logger, model LandmarkModel, regions RegionDetector) *Extractor {
	return &Extractor{Model: model, Regions: regions, Log: log}
}

func (e *Extractor) Extract(ctx context.Context, frame *camera.Frame) (Detection, error) {
	var det Detection
	if frame.Empty() {
		return det, nil
	}

	if e.Model != nil {
		faces, err := e.Model.Landmarks(ctx, frame)
		switch {
		case errors.Is(err, ErrModelUnavailable):
			e.debug(frame, err, "Landmark model unavailable")
		case err != nil:
			e.warn(frame, err, "Landmark model failed")
		default:
			det.Faces = faces
		}
	}

	if e.Regions != nil {
		regions, err := e.Regions.Regions(ctx, frame)
		if err != nil {
			e.warn(frame, err, "Face region detector failed")
		} else {
			det.Regions = regions
		}
	}

	return det, nil
}

func (e *Extractor) warn(frame *camera.Frame, err error, msg string) {
	if e.Log == nil {
		return
	}
	e.Log.WithFields(logrus.Fields{
		"frame_seq": frame.Seq,
		"error":     err.Error(),
	}).Warn(msg)
}

func (e *Extractor) debug(frame *camera.Frame, err error, msg string) {
	if e.Log == nil {
		return
	}
	e.Log.WithFields(logrus.Fields{
		"frame_seq": frame.Seq,
		"error":     err.Error(),
	}).Debug(msg)
}
