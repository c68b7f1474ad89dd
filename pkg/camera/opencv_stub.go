//go:build !opencv

package camera

import "fmt"

// Open needs the opencv build tag; without it no capture backend is linked.
func Open(cfg Config) (Source, error) {
	return nil, fmt.Errorf("%w: device %d: built without opencv support", ErrUnavailable, cfg.Index)
}
