package camera

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirrorFlipsRows(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(2, 1, color.RGBA{B: 255, A: 255})

	Mirror(img)

	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(2, 0))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.RGBAAt(0, 1))
}

func TestMirrorTwiceIsIdentity(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 5, 4))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	want := append([]uint8(nil), img.Pix...)

	Mirror(img)
	Mirror(img)

	assert.Equal(t, want, img.Pix)
}

func TestNewMirroredFrameFlipsSensorImage(t *testing.T) {
	raw := image.NewRGBA(image.Rect(0, 0, 4, 1))
	raw.Set(0, 0, color.RGBA{G: 255, A: 255})

	f := NewMirroredFrame(2, time.Unix(5, 0), raw)

	require.False(t, f.Empty())
	assert.Equal(t, uint64(2), f.Seq)
	assert.Equal(t, color.RGBA{G: 255, A: 255}, f.Image.RGBAAt(3, 0))
	assert.Equal(t, color.RGBA{}, f.Image.RGBAAt(0, 0))
}

func TestNewMirroredFrameConvertsNonRGBA(t *testing.T) {
	raw := image.NewGray(image.Rect(0, 0, 3, 1))
	raw.SetGray(2, 0, color.Gray{Y: 200})

	f := NewMirroredFrame(1, time.Unix(5, 0), raw)

	assert.Equal(t, color.RGBA{R: 200, G: 200, B: 200, A: 255}, f.Image.RGBAAt(0, 0))
}

func TestCloneIsIndependent(t *testing.T) {
	f := NewFrame(7, time.Unix(10, 0), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	c := f.Clone()
	c.Image.Set(1, 1, color.RGBA{G: 200, A: 255})

	assert.Equal(t, uint64(7), c.Seq)
	assert.Equal(t, color.RGBA{}, f.Image.RGBAAt(1, 1))
	assert.Equal(t, 4, c.Width())
	assert.Equal(t, 4, c.Height())
}

func TestToRGBAConvertsGray(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.SetGray(1, 0, color.Gray{Y: 128})

	rgba := ToRGBA(gray)
	require.NotNil(t, rgba)
	assert.Equal(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, rgba.RGBAAt(1, 0))
}

func TestEmptyFrame(t *testing.T) {
	var f *Frame
	assert.True(t, f.Empty())
	assert.True(t, (&Frame{}).Empty())
}
