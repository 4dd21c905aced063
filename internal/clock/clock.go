package clock

import (
	"sync"
	"time"
)

// Clock is the single source of "now" for every temporal rule.
type Clock interface {
	Now() time.Time
}

type system struct{}

// System returns the wall clock.
func System() Clock { return system{} }

func (system) Now() time.Time { return time.Now() }

// Fake is a controllable clock for tests and simulations.
type Fake struct {
	mu      sync.Mutex
	current time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{current: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.current = t
	f.mu.Unlock()
}

// Advance moves the clock forward and returns the new time.
func (f *Fake) Advance(d time.Duration) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)
	return f.current
}
