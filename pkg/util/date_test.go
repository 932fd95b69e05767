package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)

	cases := map[string]time.Time{
		"2024-10-10T10:10:10Z":           ts,
		"2024-10-10T10:10:10":            ts,
		"2024-10-10":                     time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC),
		strconv.FormatInt(ts.Unix(), 10): ts,
	}
	for in, want := range cases {
		got, ok := ParseTime(in)
		require.True(t, ok, in)
		assert.True(t, want.Equal(got), "%s: got %v", in, got)
	}

	_, ok := ParseTime("yesterday")
	assert.False(t, ok)
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	assert.True(t, def.Equal(ParseTimeDefault("", def)))
	assert.True(t, def.Equal(ParseTimeDefault("garbage", def)))
}

func TestDayRange(t *testing.T) {
	now := time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC)
	from, to := DayRange(now, 30)
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), to)
	assert.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), from)
}
