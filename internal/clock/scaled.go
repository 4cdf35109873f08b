package clock

import (
	"sync"
	"time"
)

// Scaled follows a source clock at an adjustable rate and can be paused.
// Interactive viewers use it over Real so the simulation keeps wall-clock
// pacing while the user changes speed.
type Scaled struct {
	mu     sync.Mutex
	src    Clock
	base   time.Time
	origin time.Time
	rate   float64
	paused bool
}

// NewScaled starts at the source's current time with rate 1.
func NewScaled(src Clock) *Scaled {
	now := src.Now()
	return &Scaled{src: src, base: now, origin: now, rate: 1}
}

func (s *Scaled) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nowLocked()
}

func (s *Scaled) nowLocked() time.Time {
	if s.paused {
		return s.base
	}
	wall := s.src.Now().Sub(s.origin)
	return s.base.Add(time.Duration(float64(wall) * s.rate))
}

// rebase folds the elapsed scaled time into base so rate or pause changes
// never move Now backward.
func (s *Scaled) rebase() {
	s.base = s.nowLocked()
	s.origin = s.src.Now()
}

// SetRate changes the speed; non-positive rates are ignored.
func (s *Scaled) SetRate(r float64) {
	if r <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebase()
	s.rate = r
}

func (s *Scaled) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// SetPaused freezes or resumes the clock. Time spent paused is skipped.
func (s *Scaled) SetPaused(p bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebase()
	s.paused = p
}

func (s *Scaled) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}
