// Package appletime converts between the Messages store's native timestamp
// encoding and time.Time. The store counts nanoseconds from the Apple
// reference date (2001-01-01 00:00:00 UTC), not the Unix epoch.
package appletime

import (
	"database/sql"
	"time"
)

// Epoch is the store's reference instant.
var Epoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// Encode converts an absolute time to store units (nanoseconds since Epoch).
func Encode(t time.Time) int64 {
	return t.Sub(Epoch).Nanoseconds()
}

// Decode converts store units to an absolute time. Zero is treated as
// "unknown" and decodes to the zero time.Time rather than the epoch itself.
func Decode(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return Epoch.Add(time.Duration(ns)).UTC()
}

// DecodeNullable decodes a nullable column value. NULL and zero both mean
// the store never recorded a timestamp for the row.
func DecodeNullable(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return Decode(v.Int64)
}

// Format renders a decoded time for tool output. The zero time is shown as
// "unknown" so callers never see the epoch masquerading as a real date.
func Format(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(time.RFC3339)
}
