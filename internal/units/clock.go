// Package units collects the primitives every other layer shares:
// clock access, byte-order conversion, hex encoding, and the
// public-routability check used when a module decides whether a peer
// address is worth dialing.
package units

import "time"

// NowUTCSeconds returns the current wall-clock instant as whole
// seconds since the Unix epoch.
func NowUTCSeconds() int64 {
	return time.Now().UTC().Unix()
}

// NowUTCMillis returns the current wall-clock instant in milliseconds
// since the Unix epoch.
func NowUTCMillis() int64 {
	return time.Now().UTC().UnixMilli()
}

// FormatUTC renders an instant (seconds since the epoch) as an RFC3339
// UTC timestamp.
func FormatUTC(instant int64) string {
	return time.Unix(instant, 0).UTC().Format(time.RFC3339)
}

// FormatLocal renders an instant (seconds since the epoch) as an
// RFC3339 timestamp in the local timezone.
func FormatLocal(instant int64) string {
	return time.Unix(instant, 0).Local().Format(time.RFC3339)
}
