// Package cascade provides Haar cascade face region and smile detection.
// The OpenCV backed detector is only linked with the opencv build tag.
package cascade

import (
	"errors"
	"image"
)

var ErrUnsupported = errors.New("cascade: built without opencv support")

type Params struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      image.Point
}

type Config struct {
	FaceCascadePath  string
	SmileCascadePath string
	Face             Params
	Smile            Params
}

func DefaultConfig() Config {
	return Config{
		FaceCascadePath:  "haarcascade_frontalface_default.xml",
		SmileCascadePath: "haarcascade_smile.xml",
		Face: Params{
			ScaleFactor:  1.3,
			MinNeighbors: 5,
		},
		Smile: Params{
			ScaleFactor:  1.8,
			MinNeighbors: 20,
			MinSize:      image.Pt(25, 25),
		},
	}
}

var searchDirs = []string{
	"",
	"./models/haarcascades",
	"/usr/local/share/opencv4/haarcascades",
	"/usr/share/opencv4/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
}
