package camera

import (
	"image"
	"image/draw"
	"time"
)

// Frame is one captured picture. A frame belongs to the single pipeline pass
// that acquired it and is dropped once that pass has encoded it.
type Frame struct {
	Seq        uint64
	CapturedAt time.Time
	Image      *image.RGBA
}

func NewFrame(seq uint64, capturedAt time.Time, img image.Image) *Frame {
	return &Frame{
		Seq:        seq,
		CapturedAt: capturedAt,
		Image:      ToRGBA(img),
	}
}

// NewMirroredFrame builds a frame from a raw sensor image, flipped so that
// left and right match the user's point of view. Device sources use it.
func NewMirroredFrame(seq uint64, capturedAt time.Time, img image.Image) *Frame {
	f := NewFrame(seq, capturedAt, img)
	Mirror(f.Image)
	return f
}

func (f *Frame) Width() int {
	if f == nil || f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

func (f *Frame) Height() int {
	if f == nil || f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}

func (f *Frame) Empty() bool {
	return f.Width() == 0 || f.Height() == 0
}

// Clone returns a deep copy so the caller may draw on it freely.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	out := &Frame{Seq: f.Seq, CapturedAt: f.CapturedAt}
	if f.Image != nil {
		out.Image = image.NewRGBA(f.Image.Bounds())
		copy(out.Image.Pix, f.Image.Pix)
	}
	return out
}

// ToRGBA returns img itself when it already is RGBA, otherwise a converted copy.
func ToRGBA(img image.Image) *image.RGBA {
	if img == nil {
		return nil
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// Mirror flips img left to right in place, so that left and right refer to
// the user's point of view rather than the sensor's.
func Mirror(img *image.RGBA) {
	if img == nil {
		return
	}
	b := img.Bounds()
	w := b.Dx()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for l, r := 0, w-1; l < r; l, r = l+1, r-1 {
			lo, ro := l*4, r*4
			row[lo], row[ro] = row[ro], row[lo]
			row[lo+1], row[ro+1] = row[ro+1], row[lo+1]
			row[lo+2], row[ro+2] = row[ro+2], row[lo+2]
			row[lo+3], row[ro+3] = row[ro+3], row[lo+3]
		}
	}
}
