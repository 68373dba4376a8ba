package reporter

import "time"

// Clock supplies the current time. It is injected so suite timestamps and
// elapsed times are deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewClock ...
func NewClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}
