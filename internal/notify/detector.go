// Package notify implements the notification coordination pipeline: it
// turns raw device status reports into de-duplicated transitions, coalesces
// bursts into a single flush, routes deliveries between in-app toasts and
// native notifications, and runs the recurring offline-reminder loop.
package notify

import (
	"sync"
	"time"

	"github.com/HerbHall/vigil/pkg/models"
)

// Transition is a genuine status change for a device, as opposed to a
// repeated confirmation of the same status.
type Transition struct {
	Device     models.Device
	Status     models.DeviceStatus
	ObservedAt time.Time
}

// Detector tracks the previously observed status per device and emits a
// Transition only when a definite status differs from the remembered one.
// The first sighting of a device registers its status without emitting.
type Detector struct {
	mu   sync.Mutex
	last map[string]models.DeviceStatus
}

// NewDetector creates an empty detector.
func NewDetector() *Detector {
	return &Detector{last: make(map[string]models.DeviceStatus)}
}

// Observe records a status observation. The remembered status is updated
// unconditionally so the next comparison is always against the latest
// observation; an update that changes only latency never transitions.
func (d *Detector) Observe(dev models.Device, status models.DeviceStatus, at time.Time) (Transition, bool) {
	d.mu.Lock()
	prev, seen := d.last[dev.ID]
	d.last[dev.ID] = status
	d.mu.Unlock()

	if !seen {
		return Transition{}, false
	}
	if !status.Definite() || status == prev {
		return Transition{}, false
	}
	metricTransitionsDetected.Inc()
	return Transition{Device: dev, Status: status, ObservedAt: at}, true
}

// Register remembers a device's status without ever emitting, used when a
// device is first loaded or created.
func (d *Detector) Register(deviceID string, status models.DeviceStatus) {
	d.mu.Lock()
	d.last[deviceID] = status
	d.mu.Unlock()
}

// Forget releases the remembered status for a deleted device so a later
// re-add with the same identity starts fresh.
func (d *Detector) Forget(deviceID string) {
	d.mu.Lock()
	delete(d.last, deviceID)
	d.mu.Unlock()
}
