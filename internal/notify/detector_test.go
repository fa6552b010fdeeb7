package notify

import (
	"testing"
	"time"

	"github.com/HerbHall/vigil/pkg/models"
)

func testDevice(id, name string) models.Device {
	return models.Device{ID: id, Name: name, IPAddress: "192.168.1.10"}
}

func TestDetectorFirstSightingDoesNotEmit(t *testing.T) {
	d := NewDetector()

	_, changed := d.Observe(testDevice("dev-1", "router"), models.DeviceStatusOffline, time.Now())
	if changed {
		t.Fatal("first sighting must not emit a transition")
	}

	// Second observation with the same status still stays quiet.
	_, changed = d.Observe(testDevice("dev-1", "router"), models.DeviceStatusOffline, time.Now())
	if changed {
		t.Fatal("repeated status must not emit a transition")
	}
}

func TestDetectorEmitsOnChange(t *testing.T) {
	d := NewDetector()
	dev := testDevice("dev-1", "router")
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	d.Observe(dev, models.DeviceStatusOnline, at)
	tr, changed := d.Observe(dev, models.DeviceStatusOffline, at)
	if !changed {
		t.Fatal("status change must emit a transition")
	}
	if tr.Device.ID != "dev-1" || tr.Status != models.DeviceStatusOffline || !tr.ObservedAt.Equal(at) {
		t.Fatalf("unexpected transition: %+v", tr)
	}
}

func TestDetectorUnknownStatusNeverEmits(t *testing.T) {
	d := NewDetector()
	dev := testDevice("dev-1", "router")

	d.Observe(dev, models.DeviceStatusOnline, time.Now())
	if _, changed := d.Observe(dev, models.DeviceStatusUnknown, time.Now()); changed {
		t.Fatal("unknown status must not emit")
	}

	// Unknown still updated the memory, so returning to online is a change.
	if _, changed := d.Observe(dev, models.DeviceStatusOnline, time.Now()); !changed {
		t.Fatal("online after unknown must emit")
	}
}

func TestDetectorMemoryUpdatesWithoutTransition(t *testing.T) {
	d := NewDetector()
	dev := testDevice("dev-1", "router")

	d.Observe(dev, models.DeviceStatusOnline, time.Now())
	// Same status repeated many times, then a flip: exactly one transition.
	for i := 0; i < 5; i++ {
		if _, changed := d.Observe(dev, models.DeviceStatusOnline, time.Now()); changed {
			t.Fatal("unchanged status emitted a transition")
		}
	}
	if _, changed := d.Observe(dev, models.DeviceStatusOffline, time.Now()); !changed {
		t.Fatal("flip after repeats must emit")
	}
}

func TestDetectorRegisterSuppressesFirstTransition(t *testing.T) {
	d := NewDetector()
	d.Register("dev-1", models.DeviceStatusOnline)

	_, changed := d.Observe(testDevice("dev-1", "router"), models.DeviceStatusOffline, time.Now())
	if !changed {
		t.Fatal("registered device going offline must emit")
	}
}

func TestDetectorForgetResetsMemory(t *testing.T) {
	d := NewDetector()
	dev := testDevice("dev-1", "router")

	d.Observe(dev, models.DeviceStatusOnline, time.Now())
	d.Forget("dev-1")

	// After Forget the next observation is a first sighting again.
	if _, changed := d.Observe(dev, models.DeviceStatusOffline, time.Now()); changed {
		t.Fatal("forgotten device's first re-sighting must not emit")
	}
}

func TestDetectorTracksDevicesIndependently(t *testing.T) {
	d := NewDetector()
	a := testDevice("dev-a", "router")
	b := testDevice("dev-b", "switch")

	d.Observe(a, models.DeviceStatusOnline, time.Now())
	d.Observe(b, models.DeviceStatusOffline, time.Now())

	if _, changed := d.Observe(a, models.DeviceStatusOffline, time.Now()); !changed {
		t.Fatal("device a flip must emit")
	}
	if _, changed := d.Observe(b, models.DeviceStatusOffline, time.Now()); changed {
		t.Fatal("device b unchanged status must not emit")
	}
}
