package pose

import (
	"fmt"
	"strings"
)

// Label is the per-frame pose observation. It carries no history.
type Label string

const (
	Unknown      Label = "Unknown"
	LookingLeft  Label = "Looking Left"
	LookingRight Label = "Looking Right"
	LookingUp    Label = "Looking Up"
	Smile        Label = "Smile"
)

var Labels = []Label{Unknown, LookingLeft, LookingRight, LookingUp, Smile}

func (l Label) String() string {
	return string(l)
}

func (l Label) Valid() bool {
	for _, known := range Labels {
		if l == known {
			return true
		}
	}
	return false
}

// ParseLabel accepts the display form ("Looking Left") as well as
// snake_case ("looking_left"), case-insensitively.
func ParseLabel(s string) (Label, error) {
	normalized := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "_", " ")))
	for _, known := range Labels {
		if strings.ToLower(string(known)) == normalized {
			return known, nil
		}
	}
	return Unknown, fmt.Errorf("unknown pose label %q", s)
}
