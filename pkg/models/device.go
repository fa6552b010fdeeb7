// Package models defines the shared data types for Vigil.
package models

import "time"

// DeviceType categorizes a monitored device.
type DeviceType string

const (
	DeviceTypeServer      DeviceType = "server"
	DeviceTypeRouter      DeviceType = "router"
	DeviceTypeSwitch      DeviceType = "switch"
	DeviceTypePrinter     DeviceType = "printer"
	DeviceTypeCamera      DeviceType = "camera"
	DeviceTypeAccessPoint DeviceType = "access_point"
	DeviceTypeNAS         DeviceType = "nas"
	DeviceTypeIoT         DeviceType = "iot"
	DeviceTypeUnknown     DeviceType = "unknown"
)

// DeviceStatus represents the last observed reachability of a device.
type DeviceStatus string

const (
	DeviceStatusOnline  DeviceStatus = "online"
	DeviceStatusOffline DeviceStatus = "offline"
	DeviceStatusUnknown DeviceStatus = "unknown"
)

// Definite reports whether the status is a concrete online/offline
// observation, as opposed to unknown.
func (s DeviceStatus) Definite() bool {
	return s == DeviceStatusOnline || s == DeviceStatusOffline
}

// Device represents a network device monitored by Vigil. Device rows are
// mutated by the probe agent through the ingest API; the notification
// pipeline only observes snapshots.
type Device struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	IPAddress      string       `json:"ip_address"`
	DeviceType     DeviceType   `json:"device_type"`
	Status         DeviceStatus `json:"status"`
	ResponseTimeMs *float64     `json:"response_time_ms,omitempty"`
	LastDown       *time.Time   `json:"last_down,omitempty"`
	LastCheck      *time.Time   `json:"last_check,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// DeviceEvent is a historical status observation for a device.
type DeviceEvent struct {
	ID             int64        `json:"id"`
	DeviceID       string       `json:"device_id"`
	Status         DeviceStatus `json:"status"`
	ResponseTimeMs *float64     `json:"response_time_ms,omitempty"`
	CheckedAt      time.Time    `json:"checked_at"`
}
