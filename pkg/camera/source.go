package camera

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable means the device could not be opened. It is fatal to
	// session creation.
	ErrUnavailable = errors.New("camera unavailable")
	// ErrReadFailed means a frame could not be read. It ends the current
	// stream iteration but not the session.
	ErrReadFailed = errors.New("camera read failed")
	ErrReleased   = errors.New("camera released")
)

type Config struct {
	Index  int
	Width  int
	Height int
	FPS    float64
}

func DefaultConfig() Config {
	return Config{
		Index:  0,
		Width:  640,
		Height: 480,
		FPS:    30,
	}
}

type Info struct {
	Index     int     `json:"index"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FPS       float64 `json:"fps"`
	Available bool    `json:"available"`
}

// Source produces mirrored frames on demand.
//
// Acquire blocks until the device yields a frame or its read times out, and
// returns an error wrapping ErrReadFailed when the read fails. Release must be
// idempotent.
type Source interface {
	Acquire(ctx context.Context) (*Frame, error)
	Release() error
	Info() Info
}
