package http

import (
	"time"

	xutil "PriceTrack/pkg/util"
)

// ParseTime accepts RFC3339, a bare date, or unix seconds.
func ParseTime(s string) (time.Time, bool) { return xutil.ParseTime(s) }

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time { return xutil.ParseTimeDefault(s, def) }
