package pose

import (
	"PoseLogin/pkg/camera"
	"context"
	"image"
	"math"

	"github.com/sirupsen/logrus"
)

const (
	DefaultAngleThreshold = 3.0
	DefaultDepthScale     = 3000.0
)

type ClassifierConfig struct {
	// AngleThreshold in degrees, applied symmetrically to yaw and pitch.
	AngleThreshold float64
	// DepthScale multiplies the nose tip depth to build the 3D point cloud.
	DepthScale float64
}

func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		AngleThreshold: DefaultAngleThreshold,
		DepthScale:     DefaultDepthScale,
	}
}

// Angles is the head orientation estimated for one face.
type Angles struct {
	Pitch float64
	Yaw   float64
	Roll  float64
}

type Classifier struct {
	cfg      ClassifierConfig
	smile    SmileDetector
	log      *logrus.Logger
	estimate func(face LandmarkSet, width, height int) (Angles, error)
}

// NewClassifier builds a classifier. smile may be nil, in which case the
// smile override never fires.
func NewClassifier(log *logrus.Logger, cfg ClassifierConfig, smile SmileDetector) *Classifier {
	if cfg.AngleThreshold <= 0 {
		cfg.AngleThreshold = DefaultAngleThreshold
	}
	if cfg.DepthScale == 0 {
		cfg.DepthScale = DefaultDepthScale
	}
	c := &Classifier{cfg: cfg, smile: smile, log: log}
	c.estimate = c.EstimateAngles
	return c
}

// Classify labels one frame. The head angle result comes from the face with
// the largest landmark bounding box among those holding every canonical
// point; any positive smile in any region overrides it.
func (c *Classifier) Classify(ctx context.Context, frame *camera.Frame, det Detection) Label {
	label := Unknown

	if face, ok := largestFace(det.Faces, frame.Width(), frame.Height()); ok {
		angles, err := c.estimate(face, frame.Width(), frame.Height())
		if err != nil {
			c.debug(frame, err, "Head pose not estimated")
		} else {
			label = c.LabelForAngles(angles)
		}
	}

	if c.smile != nil {
		for _, region := range det.Regions {
			smiling, err := c.smile.Smiling(ctx, frame, MouthRegion(region))
			if err != nil {
				c.debug(frame, err, "Smile detector failed")
				continue
			}
			if smiling {
				return Smile
			}
		}
	}

	return label
}

// LabelForAngles applies the thresholds, yaw before pitch.
func (c *Classifier) LabelForAngles(a Angles) Label {
	t := c.cfg.AngleThreshold
	switch {
	case a.Yaw < -t:
		return LookingLeft
	case a.Yaw > t:
		return LookingRight
	case a.Pitch > t:
		return LookingUp
	default:
		return Unknown
	}
}

// EstimateAngles solves the head pose of one face from its canonical points.
func (c *Classifier) EstimateAngles(face LandmarkSet, width, height int) (Angles, error) {
	object, observed, err := c.canonicalPoints(face, width, height)
	if err != nil {
		return Angles{}, err
	}

	ext, err := SolvePnP(object, observed, CameraForImage(width, height))
	if err != nil {
		return Angles{}, err
	}

	pitch, yaw, roll := EulerAngles(ext.Matrix())
	if math.IsNaN(pitch) || math.IsNaN(yaw) {
		return Angles{}, ErrNotConverged
	}
	return Angles{Pitch: pitch, Yaw: yaw, Roll: roll}, nil
}

func (c *Classifier) canonicalPoints(face LandmarkSet, width, height int) ([]Vec3, []Vec2, error) {
	if width <= 0 || height <= 0 {
		return nil, nil, ErrTooFewPoints
	}

	object := make([]Vec3, 0, len(CanonicalIndices))
	observed := make([]Vec2, 0, len(CanonicalIndices))
	for _, idx := range CanonicalIndices {
		if idx >= len(face) {
			return nil, nil, ErrTooFewPoints
		}
		lm := face[idx]
		x := math.Trunc(lm.X * float64(width))
		y := math.Trunc(lm.Y * float64(height))
		z := lm.Z
		if idx == NoseTip {
			z *= c.cfg.DepthScale
		}
		object = append(object, Vec3{X: x, Y: y, Z: z})
		observed = append(observed, Vec2{X: x, Y: y})
	}
	return object, observed, nil
}

func (c *Classifier) debug(frame *camera.Frame, err error, msg string) {
	if c.log == nil {
		return
	}
	c.log.WithFields(logrus.Fields{
		"frame_seq": frame.Seq,
		"error":     err.Error(),
	}).Debug(msg)
}

func largestFace(faces []LandmarkSet, width, height int) (LandmarkSet, bool) {
	best := -1
	bestArea := -1
	for i, face := range faces {
		if len(face) < minCanonicalLen {
			continue
		}
		b := face.PixelBounds(width, height)
		area := b.Dx() * b.Dy()
		if area > bestArea {
			best, bestArea = i, area
		}
	}
	if best < 0 {
		return nil, false
	}
	return faces[best], true
}

// MouthRegion is the lower half of a face box, where the smile cascade looks.
func MouthRegion(face image.Rectangle) image.Rectangle {
	mid := face.Min.Y + face.Dy()/2
	return image.Rect(face.Min.X, mid, face.Max.X, face.Max.Y)
}
