//go:build !opencv

package cascade

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithoutOpenCV(t *testing.T) {
	d, err := New(DefaultConfig())
	assert.Nil(t, d)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDefaultConfigMatchesCascadeTuning(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1.3, cfg.Face.ScaleFactor)
	assert.Equal(t, 5, cfg.Face.MinNeighbors)
	assert.Equal(t, 1.8, cfg.Smile.ScaleFactor)
	assert.Equal(t, 20, cfg.Smile.MinNeighbors)
	assert.Equal(t, image.Pt(25, 25), cfg.Smile.MinSize)
}
