package notify

import (
	"sync"
	"time"
)

// FlushFunc receives the drained batch when the grouping window closes.
type FlushFunc func(batch []Transition)

// Queue accumulates transitions for a debounce window. Every enqueue resets
// the single pending timer, so a burst arriving faster than the window
// coalesces into one flush that fires only after the window has elapsed
// with no new transitions.
type Queue struct {
	mu      sync.Mutex
	window  time.Duration
	clock   Clock
	flush   FlushFunc
	pending []Transition
	timer   Timer
	gen     uint64
	closed  bool
}

// NewQueue creates a queue that flushes through fn after window of silence.
func NewQueue(window time.Duration, clock Clock, fn FlushFunc) *Queue {
	return &Queue{window: window, clock: clock, flush: fn}
}

// Enqueue appends a transition and restarts the grouping window. Bumping the
// generation invalidates a timer that already fired but has not drained yet,
// so a stale callback can never flush the transition enqueued after it.
func (q *Queue) Enqueue(t Transition) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.pending = append(q.pending, t)
	if q.timer != nil {
		q.timer.Stop()
	}
	q.gen++
	gen := q.gen
	q.timer = q.clock.AfterFunc(q.window, func() { q.fire(gen) })
}

// Len reports the number of transitions waiting for the next flush.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close cancels any pending window and discards queued transitions.
// Safe to call multiple times.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.gen++
	q.pending = nil
}

// fire atomically drains the pending batch before invoking the flush
// callback, so transitions enqueued during the flush land in a new window.
// A generation mismatch means the window was restarted after this timer was
// dispatched; the drain belongs to the newer timer.
func (q *Queue) fire(gen uint64) {
	q.mu.Lock()
	if q.closed || gen != q.gen {
		q.mu.Unlock()
		return
	}
	batch := q.pending
	q.pending = nil
	q.timer = nil
	q.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	q.flush(batch)
}
