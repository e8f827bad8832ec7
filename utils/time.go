// Package utils provides utility functions for the application.
package utils

import (
	"fmt"
	"time"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCNowRFC3339 returns the current UTC time in RFC3339 format
func UTCNowRFC3339() string {
	return UTCNow().Format(time.RFC3339)
}

// SecondsUntil returns the whole seconds left between now and t, never negative
func SecondsUntil(now, t time.Time) int64 {
	if !now.Before(t) {
		return 0
	}
	return int64(t.Sub(now) / time.Second)
}

// FormatMinutesSeconds renders a second count as MM:SS
func FormatMinutesSeconds(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// DaysToDuration converts a retention expressed in days
func DaysToDuration(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}
