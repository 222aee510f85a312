//go:build integration || unit || test

package entitydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"time"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

// StubClock is a clock tests move by hand.
type StubClock struct {
	Current time.Time
}

var _ entities.Clock = (*StubClock)(nil)

// NewStubClock creates a clock stopped at now.
func NewStubClock(now time.Time) *StubClock {
	return &StubClock{Current: now}
}

func (c *StubClock) Now() time.Time { return c.Current }

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.Current = c.Current.Add(d)
}
