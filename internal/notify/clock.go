package notify

import "time"

// Clock abstracts wall-clock time and timer scheduling so the debounce
// window, toast expiry, and recurring loop can be tested without sleeps.
type Clock interface {
	Now() time.Time
	// AfterFunc schedules f to run once after d. The returned Timer can be
	// stopped before it fires.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop cancels the timer. Returns false if it already fired or was
	// already stopped.
	Stop() bool
}

type realClock struct{}

// NewClock returns a Clock backed by the time package.
func NewClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{time.AfterFunc(d, f)}
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool { return r.t.Stop() }
