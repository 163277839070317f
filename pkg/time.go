// Package pkg holds small helpers shared by the HTTP layer.
package pkg

import (
	"strconv"
	"strings"
	"time"
)

type unit struct {
	suffix string
	size   time.Duration
}

// Largest first.
var units = []unit{
	{"d", 24 * time.Hour},
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
	{"ms", time.Millisecond},
	{"μs", time.Microsecond},
	{"ns", time.Nanosecond},
}

// SmartDurationFormat renders d compactly for access logs. Sub-second values
// use a single unit (250ms, 12μs). Longer values use at most the two largest
// non-zero units (1m30s, 2h). Negative durations are formatted as their
// absolute value with a leading minus.
func SmartDurationFormat(d time.Duration) string {
	if d == 0 {
		return "0"
	}
	if d < 0 {
		return "-" + SmartDurationFormat(-d)
	}
	if d < time.Second {
		for _, u := range units[4:] {
			if d >= u.size {
				return strconv.FormatInt(int64(d/u.size), 10) + u.suffix
			}
		}
	}

	var b strings.Builder
	parts := 0
	for _, u := range units {
		if d < u.size {
			continue
		}
		b.WriteString(strconv.FormatInt(int64(d/u.size), 10))
		b.WriteString(u.suffix)
		d %= u.size
		parts++
		if parts == 2 || d == 0 {
			break
		}
	}
	return b.String()
}
