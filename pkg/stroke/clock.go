package stroke

import "time"

// Clock abstracts time for the poll loop so tests can drive it directly.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns a Clock backed by the runtime clock.
func SystemClock() Clock { return systemClock{} }
