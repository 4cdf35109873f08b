// Package clock provides the time sources consumed by the simulation.
package clock

import (
	"math"
	"sync"
	"time"
)

// Clock is the wall-clock dependency of the simulation.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

func NewReal() Real { return Real{} }

func (Real) Now() time.Time { return time.Now() }

// Epoch is the start time of manual clocks created without an explicit origin.
var Epoch = time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)

// Manual is a clock that only moves when advanced. Headless runs and tests
// use it so a fixed seed replays the same trajectory.
type Manual struct {
	mu  sync.RWMutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	if start.IsZero() {
		start = Epoch
	}
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Advance moves the clock forward; negative durations are ignored.
func (m *Manual) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Seconds converts a float duration in seconds, the unit used by config
// files, into a time.Duration rounded to the nearest nanosecond.
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
