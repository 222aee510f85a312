package evaluator

import (
	"slices"
	"sort"
	"time"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

// RateLimiter caps concurrent open change-sets and change-sets created per clock
// hour. A denial is a deferral signal, never a drop.
type RateLimiter struct {
	hourStart time.Time
	created   int
	open      map[string]struct{}
}

// NewRateLimiter creates a limiter with empty counters.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{open: make(map[string]struct{})}
}

// Admit reserves capacity for key. occupiesSlot is false for change-sets merged
// without a pull request: they count toward the hourly cap only. A key that is
// already open is always admitted: the new decision updates the open change-set
// and creates nothing.
func (it *RateLimiter) Admit(key string, now time.Time, limits entities.Limits, occupiesSlot bool) bool {
	it.roll(now)

	if _, isOpen := it.open[key]; isOpen {
		return true
	}
	if limits.HourlyLimit > 0 && it.created >= limits.HourlyLimit {
		return false
	}
	if occupiesSlot && limits.ConcurrentLimit > 0 && len(it.open) >= limits.ConcurrentLimit {
		return false
	}

	it.created++
	if occupiesSlot {
		it.open[key] = struct{}{}
	}
	return true
}

// Complete releases the concurrent slot held by key (pull request closed or merged).
// It reports whether key was open.
func (it *RateLimiter) Complete(key string) bool {
	if _, ok := it.open[key]; !ok {
		return false
	}
	delete(it.open, key)
	return true
}

// IsOpen reports whether key holds a concurrent slot. Admitting an open key
// reserves nothing.
func (it *RateLimiter) IsOpen(key string) bool {
	_, ok := it.open[key]
	return ok
}

// Release undoes a fresh admission whose change-set could not be created: the slot
// is freed and, within the same hour, the hourly counter is given back. It must not
// be called for a key that was already open when admitted.
func (it *RateLimiter) Release(key string, admittedAt time.Time) {
	delete(it.open, key)
	if admittedAt.Truncate(time.Hour).Equal(it.hourStart) && it.created > 0 {
		it.created--
	}
}

// Open returns the keys currently holding a concurrent slot, sorted.
func (it *RateLimiter) Open() []string {
	keys := make([]string, 0, len(it.open))
	for key := range it.open {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot exports the counters.
func (it *RateLimiter) Snapshot() entities.LimiterState {
	return entities.LimiterState{
		HourStart:       it.hourStart,
		CreatedThisHour: it.created,
		Open:            it.Open(),
	}
}

// Restore replaces the counters with a snapshot.
func (it *RateLimiter) Restore(state entities.LimiterState) {
	it.hourStart = state.HourStart
	it.created = state.CreatedThisHour
	it.open = make(map[string]struct{}, len(state.Open))
	for _, key := range slices.Compact(slices.Sorted(slices.Values(state.Open))) {
		it.open[key] = struct{}{}
	}
}

// roll resets the hourly counter on every clock-hour boundary.
func (it *RateLimiter) roll(now time.Time) {
	hour := now.Truncate(time.Hour)
	if !hour.Equal(it.hourStart) {
		it.hourStart = hour
		it.created = 0
	}
}
