// Package testutil provides shared test fixtures.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/vigil/pkg/models"
)

// NewDevice returns a Device with sensible defaults, suitable for test fixtures.
// Override individual fields through options as needed.
func NewDevice(opts ...func(*models.Device)) models.Device {
	now := time.Now().UTC()
	d := models.Device{
		ID:         uuid.New().String(),
		Name:       "test-device",
		IPAddress:  "192.168.1.100",
		DeviceType: models.DeviceTypeServer,
		Status:     models.DeviceStatusOnline,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithName sets the device name.
func WithName(name string) func(*models.Device) {
	return func(d *models.Device) { d.Name = name }
}

// WithIP sets the device's IP address.
func WithIP(ip string) func(*models.Device) {
	return func(d *models.Device) { d.IPAddress = ip }
}

// WithStatus sets the device status.
func WithStatus(s models.DeviceStatus) func(*models.Device) {
	return func(d *models.Device) { d.Status = s }
}

// WithDeviceType sets the device type.
func WithDeviceType(dt models.DeviceType) func(*models.Device) {
	return func(d *models.Device) { d.DeviceType = dt }
}

// WithLastDown sets the device's last_down timestamp.
func WithLastDown(t time.Time) func(*models.Device) {
	return func(d *models.Device) { d.LastDown = &t }
}
