package notify

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced Clock for deterministic timer tests.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	fn       func()
	stopped  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.stopped
	t.stopped = true
	return !was
}

// Advance moves time forward, firing due timers in deadline order. Timers
// armed by a firing callback run too when their deadline falls within the
// same advance.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.deadline.After(target) {
				continue
			}
			if next == nil || t.deadline.Before(next.deadline) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.stopped = true
		if next.deadline.After(c.now) {
			c.now = next.deadline
		}
		c.mu.Unlock()

		next.fn()
	}
}

func (c *fakeClock) pendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func TestFakeClockAdvanceFiresInOrder(t *testing.T) {
	c := newFakeClock()
	var got []int
	c.AfterFunc(200*time.Millisecond, func() { got = append(got, 2) })
	c.AfterFunc(100*time.Millisecond, func() { got = append(got, 1) })

	c.Advance(time.Second)

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("fired order = %v, want [1 2]", got)
	}
}

func TestFakeClockStopPreventsFire(t *testing.T) {
	c := newFakeClock()
	fired := false
	timer := c.AfterFunc(100*time.Millisecond, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("first Stop should return true")
	}
	if timer.Stop() {
		t.Fatal("second Stop should return false")
	}

	c.Advance(time.Second)
	if fired {
		t.Fatal("stopped timer fired")
	}
}
