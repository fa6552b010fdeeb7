package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/vigil/pkg/models"
)

// Toast is one live in-app notification. Every toast auto-expires after its
// display duration; none lives forever.
type Toast struct {
	ID                string              `json:"id"`
	DeviceID          string              `json:"device_id"`
	DeviceName        string              `json:"device_name"`
	DeviceIP          string              `json:"device_ip"`
	Status            models.DeviceStatus `json:"status"`
	CreatedAt         time.Time           `json:"created_at"`
	DisplayDurationMs int                 `json:"display_duration_ms"`
}

type toastEntry struct {
	toast Toast
	timer Timer
}

// ToastList owns the set of live toasts. Expiry and user dismissal both
// remove the toast and report through the onRemove callback.
type ToastList struct {
	mu       sync.Mutex
	clock    Clock
	entries  map[string]*toastEntry
	onRemove func(toast Toast, reason RemoveReason)
	closed   bool
}

// RemoveReason distinguishes expiry from explicit dismissal.
type RemoveReason string

const (
	RemoveExpired   RemoveReason = "expired"
	RemoveDismissed RemoveReason = "dismissed"
)

// NewToastList creates an empty toast registry. onRemove may be nil.
func NewToastList(clock Clock, onRemove func(Toast, RemoveReason)) *ToastList {
	return &ToastList{
		clock:    clock,
		entries:  make(map[string]*toastEntry),
		onRemove: onRemove,
	}
}

// Add creates a toast for the given device transition and schedules its
// expiry. Returns the created toast.
func (l *ToastList) Add(dev models.Device, status models.DeviceStatus, durationMs int) Toast {
	t := Toast{
		ID:                uuid.New().String(),
		DeviceID:          dev.ID,
		DeviceName:        dev.Name,
		DeviceIP:          dev.IPAddress,
		Status:            status,
		CreatedAt:         l.clock.Now(),
		DisplayDurationMs: durationMs,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return t
	}

	entry := &toastEntry{toast: t}
	entry.timer = l.clock.AfterFunc(time.Duration(durationMs)*time.Millisecond, func() {
		l.remove(t.ID, RemoveExpired)
	})
	l.entries[t.ID] = entry
	return t
}

// Dismiss removes a toast on user request. Returns false when the toast is
// unknown (already expired or dismissed).
func (l *ToastList) Dismiss(id string) bool {
	return l.remove(id, RemoveDismissed)
}

// Active returns the live toasts, newest first.
func (l *ToastList) Active() []Toast {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Toast, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.toast)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Close cancels all expiry timers and clears the list. Safe to call
// multiple times.
func (l *ToastList) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	for id, e := range l.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(l.entries, id)
	}
}

func (l *ToastList) remove(id string, reason RemoveReason) bool {
	l.mu.Lock()
	e, ok := l.entries[id]
	if ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(l.entries, id)
	}
	onRemove := l.onRemove
	l.mu.Unlock()

	if ok && onRemove != nil {
		onRemove(e.toast, reason)
	}
	return ok
}
