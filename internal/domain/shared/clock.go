package shared

import "time"

// Clock provides the current time. Services take a Clock rather than
// calling time.Now so that "today" can be fixed in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock backed by the system time
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant
func (c FixedClock) Now() time.Time {
	return c.T
}
