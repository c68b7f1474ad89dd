//go:build !opencv

package camera

import (
	"errors"
	"testing"
)

func TestOpenWithoutBackendIsUnavailable(t *testing.T) {
	src, err := Open(DefaultConfig())
	if src != nil {
		t.Fatalf("expected no source, got %v", src)
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
