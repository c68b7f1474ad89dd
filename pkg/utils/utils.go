package utils

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	SplitList(value string) []string
}

type utils struct {
	separator string
}

func New() IUtils {
	return &utils{
		separator: ",",
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// SplitList splits a comma separated value, trimming blanks and dropping
// empty items.
func (u *utils) SplitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, u.separator) {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
