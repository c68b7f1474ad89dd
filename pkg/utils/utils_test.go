package utils

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULIDFromTimestamp(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	id, err := New().NewULIDFromTimestamp(at)
	require.NoError(t, err)

	parsed, err := ulid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(at), parsed.Time())
}

func TestSplitList(t *testing.T) {
	u := New()
	assert.Equal(t, []string{"Looking Left", "Smile"}, u.SplitList(" Looking Left, ,Smile ,"))
	assert.Nil(t, u.SplitList(""))
}
