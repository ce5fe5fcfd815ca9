package clock

import "time"

// Clock stamps room lifecycle events
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC at second precision, the
// resolution rooms are persisted with
type SystemClock struct{}

// New creates a SystemClock
func New() SystemClock {
	return SystemClock{}
}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
