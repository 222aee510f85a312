package entities

import "time"

// Clock is the time source of the evaluator. Production code injects SystemClock;
// tests inject a fixed clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// NewSystemClock creates a SystemClock.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns time.Now().
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
