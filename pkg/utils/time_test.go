package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow_IsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Now().Location())
}

func TestUnixToTime(t *testing.T) {
	assert.True(t, UnixToTime(0).IsZero())
	assert.True(t, UnixToTime(-5).IsZero())

	ts := UnixToTime(1700000000)
	assert.Equal(t, int64(1700000000), ts.Unix())
	assert.Equal(t, time.UTC, ts.Location())
}

func TestMinutesUntil(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Past or equal target clamps to the floor.
	assert.Equal(t, 1, MinutesUntil(now, now, 1))
	assert.Equal(t, 1, MinutesUntil(now, now.Add(-time.Hour), 1))

	// Partial minutes round up.
	assert.Equal(t, 1, MinutesUntil(now, now.Add(30*time.Second), 1))
	assert.Equal(t, 3, MinutesUntil(now, now.Add(2*time.Minute+10*time.Second), 1))
	assert.Equal(t, 10, MinutesUntil(now, now.Add(10*time.Minute), 1))
}
