package crypto

import "time"

// TimeProvider abstracts time operations for deterministic testing.
// Implementations must be safe for concurrent use.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since the given time.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

// Clock turns a TimeProvider into the two time bases the session layer
// uses: monotonic milliseconds since the clock was created ("ticks") and
// wall-clock milliseconds since the Unix epoch.
type Clock struct {
	tp    TimeProvider
	start time.Time
}

// NewClock creates a clock. A nil provider selects DefaultTimeProvider.
func NewClock(tp TimeProvider) *Clock {
	if tp == nil {
		tp = DefaultTimeProvider{}
	}
	return &Clock{tp: tp, start: tp.Now()}
}

// Ticks returns monotonic milliseconds since the clock was created.
func (c *Clock) Ticks() int64 { return c.tp.Since(c.start).Milliseconds() }

// WallMillis returns wall-clock milliseconds since the Unix epoch.
func (c *Clock) WallMillis() int64 { return c.tp.Now().UnixMilli() }
