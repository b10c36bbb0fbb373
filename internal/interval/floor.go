// Package interval aligns timestamps to interval bucket boundaries.
package interval

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Floor returns the start of the interval bucket containing t, computed in
// t's location. Bucket boundaries:
//
//	Nm: multiples of N minutes within the day
//	Nh: multiples of N hours from midnight (4h: 0,4,8,12,16,20)
//	1d: midnight of the same calendar day
//	wk: midnight of the Monday of t's week
//	mo: midnight of the first of t's month
//
// An unrecognized interval only zeroes sub-minute precision and logs a
// warning; it never fails.
func Floor(t time.Time, interval string) time.Time {
	y, mo, d := t.Date()
	loc := t.Location()

	switch {
	case strings.HasSuffix(interval, "mo"):
		return time.Date(y, mo, 1, 0, 0, 0, 0, loc)

	case strings.HasSuffix(interval, "wk"):
		// Monday-based week: Monday=0 ... Sunday=6.
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, mo, d-offset, 0, 0, 0, 0, loc)

	case strings.HasSuffix(interval, "d"):
		return time.Date(y, mo, d, 0, 0, 0, 0, loc)

	case strings.HasSuffix(interval, "h"):
		n := spanOf(interval, "h")
		hour := t.Hour() - t.Hour()%n
		return time.Date(y, mo, d, hour, 0, 0, 0, loc)

	case strings.HasSuffix(interval, "m"):
		n := spanOf(interval, "m")
		minuteOfDay := t.Hour()*60 + t.Minute()
		minuteOfDay -= minuteOfDay % n
		return time.Date(y, mo, d, minuteOfDay/60, minuteOfDay%60, 0, 0, loc)

	default:
		log.Warn().
			Str("component", "interval").
			Str("interval", interval).
			Msg("unknown interval, zeroing sub-minute precision only")
		return time.Date(y, mo, d, t.Hour(), t.Minute(), 0, 0, loc)
	}
}

// spanOf parses the numeric width of an interval like "15m" or "4h".
// A missing or invalid width means 1.
func spanOf(interval, unit string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(interval, unit))
	if err != nil || n <= 0 {
		return 1
	}
	return n
}
