// Package timefmt formats every timestamp the system persists the same
// way: UTC, ISO-8601, millisecond precision.
package timefmt

import "time"

// ISO8601 is the ISO-8601 format used for timestamp serialization.
const ISO8601 = "2006-01-02T15:04:05.000Z"

// Format formats a time.Time to the standard string representation.
func Format(t time.Time) string {
	return t.UTC().Format(ISO8601)
}

// Now returns the current time. It is a variable so tests can stub it.
var Now = func() time.Time {
	return time.Now()
}

// Parse reverses Format.
func Parse(s string) (time.Time, error) {
	return time.Parse(ISO8601, s)
}
