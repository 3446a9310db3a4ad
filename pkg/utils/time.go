package utils

import "time"

// Now returns the current time in UTC timezone
func Now() time.Time {
	return time.Now().UTC()
}

// UnixToTime converts a unix timestamp to a UTC time.Time
func UnixToTime(timestamp int64) time.Time {
	if timestamp <= 0 {
		return time.Time{}
	}
	return time.Unix(timestamp, 0).UTC()
}

// FormatISO8601 formats a time.Time to ISO8601 format in UTC
func FormatISO8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// MinutesUntil returns the number of whole minutes from now until t,
// rounded up, never below floor. Used for campaign lead times.
func MinutesUntil(now, t time.Time, floor int) int {
	d := t.Sub(now)
	if d <= 0 {
		return floor
	}
	minutes := int((d + time.Minute - 1) / time.Minute)
	if minutes < floor {
		return floor
	}
	return minutes
}
