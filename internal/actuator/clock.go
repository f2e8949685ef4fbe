package actuator

import "time"

// Clock provides monotonic microsecond timestamps for step pacing. Tests
// substitute a fake; production uses the wall clock's monotonic reading.
type Clock interface {
	NowMicros() int64
}

type monotonicClock struct {
	start time.Time
}

// NewClock returns a Clock backed by the runtime monotonic clock.
func NewClock() Clock {
	return &monotonicClock{start: time.Now()}
}

func (c *monotonicClock) NowMicros() int64 {
	return time.Since(c.start).Microseconds()
}
