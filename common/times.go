package common

import (
	"fmt"
	"strconv"
	"time"
)

// FormatTimestamp formats a timestamp as the number of milliseconds since the epoch.
// This is the wire format used for the alert watermark.
func FormatTimestamp(timestamp time.Time) string {
	return fmt.Sprintf("%d", timestamp.UnixMilli())
}

// ParseTimestamp parses a millisecond-precision epoch timestamp. An empty or
// unparseable string yields the zero time rather than an error so that a corrupt
// watermark degrades to "everything is new" instead of wedging the loop.
func ParseTimestamp(value string) time.Time {
	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil || millis <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}

// MaxTime returns the later of two timestamps.
func MaxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
