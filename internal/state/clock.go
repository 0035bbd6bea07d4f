package state

import (
	"sync"
	"time"
)

// Timer is a cancellable scheduled callback
type Timer interface {
	Stop() bool
}

// Clock schedules deferred work. The container uses it to coalesce rapid
// writes into one persist; tests drive a fake implementation instead of
// sleeping through real debounce windows.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realClock struct{}

// NewClock returns a Clock backed by the runtime timer
func NewClock() Clock {
	return realClock{}
}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// FakeClock is a manually advanced Clock for tests
type FakeClock struct {
	mu      sync.Mutex
	now     time.Duration
	pending []*fakeTimer
}

type fakeTimer struct {
	clock   *FakeClock
	fireAt  time.Duration
	fn      func()
	stopped bool
}

func NewFakeClock() *FakeClock {
	return &FakeClock{}
}

func (c *FakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := &fakeTimer{clock: c, fireAt: c.now + d, fn: fn}
	c.pending = append(c.pending, timer)
	return timer
}

// Advance moves the fake time forward, firing any due timers in order
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	var remaining []*fakeTimer
	for _, timer := range c.pending {
		if !timer.stopped && timer.fireAt <= c.now {
			due = append(due, timer)
		} else if !timer.stopped {
			remaining = append(remaining, timer)
		}
	}
	c.pending = remaining
	c.mu.Unlock()

	for _, timer := range due {
		timer.fn()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}
