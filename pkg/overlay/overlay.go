// Package overlay draws the login instructions onto outgoing frames.
package overlay

import (
	"PoseLogin/pkg/camera"
	"PoseLogin/pkg/pose"
	"PoseLogin/pkg/sequencer"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Cyan   = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

// pixelsPerScale converts a text scale into a glyph magnification of the
// 7x13 bitmap face, so a scale of 1.0 gives caps about 22px tall.
const pixelsPerScale = 2.0

// Line is one piece of text anchored at its baseline origin.
type Line struct {
	Text   string
	Origin image.Point
	Color  color.RGBA
	Scale  float64
}

// Lines returns the text to draw for the given session and current pose.
func Lines(snap sequencer.Snapshot, observation pose.Label) []Line {
	var lines []Line
	if required := snap.Required(); required != nil {
		lines = append(lines,
			Line{
				Text:   fmt.Sprintf("Do: %s", *required),
				Origin: image.Pt(20, 50),
				Color:  Green,
				Scale:  1.2,
			},
			Line{
				Text:   fmt.Sprintf("Progress: %d/%d", snap.CurrentStep, snap.TotalSteps()),
				Origin: image.Pt(20, 90),
				Color:  Cyan,
				Scale:  0.8,
			},
		)
	} else {
		lines = append(lines, Line{
			Text:   "Login Successful!",
			Origin: image.Pt(20, 50),
			Color:  Green,
			Scale:  1.2,
		})
	}

	return append(lines, Line{
		Text:   fmt.Sprintf("Pose: %s", observation),
		Origin: image.Pt(20, 420),
		Color:  Yellow,
		Scale:  1.0,
	})
}

// Annotate returns a copy of frame with the instruction lines drawn on it.
// The input frame is never modified.
func Annotate(frame *camera.Frame, snap sequencer.Snapshot, observation pose.Label) *camera.Frame {
	if frame.Empty() {
		return frame
	}

	out := frame.Clone()
	for _, line := range Lines(snap, observation) {
		DrawText(out.Image, line)
	}
	return out
}

// DrawText renders line onto dst. Text falling outside dst is clipped.
func DrawText(dst *image.RGBA, line Line) {
	if line.Text == "" {
		return
	}

	face := basicfont.Face7x13
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := metrics.Height.Ceil()

	d := &font.Drawer{Face: face}
	width := d.MeasureString(line.Text).Ceil()
	if width <= 0 {
		return
	}

	glyphs := image.NewRGBA(image.Rect(0, 0, width, height))
	d.Dst = glyphs
	d.Src = image.NewUniform(line.Color)
	d.Dot = fixed.P(0, ascent)
	d.DrawString(line.Text)

	scale := line.Scale * pixelsPerScale
	if scale <= 0 {
		scale = pixelsPerScale
	}
	top := line.Origin.Y - int(float64(ascent)*scale)
	target := image.Rect(
		line.Origin.X,
		top,
		line.Origin.X+int(float64(width)*scale),
		top+int(float64(height)*scale),
	)

	draw.NearestNeighbor.Scale(dst, target, glyphs, glyphs.Bounds(), draw.Over, nil)
}
