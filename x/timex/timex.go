package timex

import (
	"time"

	"github.com/benbjohnson/clock"
)

// NowMs returns Unix milliseconds as int64 read from c (wall clock when nil).
func NowMs(c clock.Clock) int64 {
	if c == nil {
		return time.Now().UnixMilli()
	}
	return c.Now().UnixMilli()
}

// Ms converts a millisecond count from a config file to a Duration.
// Negative values are coerced to 0.
func Ms(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	return time.Duration(n) * time.Millisecond
}
