package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/vigil/pkg/models"
)

// Native notification tags. Per-device alerts carry a device-specific tag so
// the OS coalesces repeats for the same device; grouped and recurring alerts
// use fixed tags.
const (
	tagDevicePrefix = "device-status-"
	tagSummary      = "device-summary"
	tagRecurring    = "recurring-offline-devices"
)

// NativeNotification instructs the UI layer to show an OS notification. The
// pipeline auto-closes each one after CloseAfterMs to avoid tray buildup.
type NativeNotification struct {
	Title        string         `json:"title"`
	Body         string         `json:"body"`
	Tag          string         `json:"tag"`
	Icon         string         `json:"icon"`
	Badge        string         `json:"badge"`
	Silent       bool           `json:"silent"`
	CloseAfterMs int            `json:"close_after_ms"`
	Data         map[string]any `json:"data,omitempty"`
}

// deviceNative builds the per-device native notification for one transition.
func deviceNative(dev models.Device, status models.DeviceStatus, closeAfter time.Duration) *NativeNotification {
	body := "✗ OFFLINE"
	if status == models.DeviceStatusOnline {
		body = "✓ ONLINE"
	}
	return &NativeNotification{
		Title:        dev.Name,
		Body:         body,
		Tag:          tagDevicePrefix + dev.ID,
		Icon:         "/notification-icon.svg",
		Badge:        "/notification-badge.svg",
		CloseAfterMs: int(closeAfter.Milliseconds()),
		Data: map[string]any{
			"device_id":   dev.ID,
			"device_name": dev.Name,
			"device_ip":   dev.IPAddress,
			"status":      status,
		},
	}
}

// groupedNative builds one aggregate native notification for all
// transitions of a single direction within a batch.
func groupedNative(status models.DeviceStatus, count int, closeAfter time.Duration) *NativeNotification {
	body := "Connection lost"
	if status == models.DeviceStatusOnline {
		body = "Connection restored"
	}
	return &NativeNotification{
		Title:        fmt.Sprintf("%d devices changed status", count),
		Body:         body,
		Tag:          tagSummary,
		Icon:         "/notification-icon.svg",
		Badge:        "/notification-badge.svg",
		CloseAfterMs: int(closeAfter.Milliseconds()),
		Data: map[string]any{
			"status": status,
			"count":  count,
		},
	}
}

// recurringNative builds the low-intrusion offline summary. It is silent by
// default; the recurring tone is emitted separately when sound is enabled.
func recurringNative(deviceNames []string, closeAfter time.Duration) *NativeNotification {
	title := fmt.Sprintf("%d devices offline", len(deviceNames))
	if len(deviceNames) == 1 {
		title = "1 device offline"
	}
	return &NativeNotification{
		Title:        title,
		Body:         strings.Join(deviceNames, ", "),
		Tag:          tagRecurring,
		Icon:         "/notification-icon.svg",
		Badge:        "/notification-badge.svg",
		Silent:       true,
		CloseAfterMs: int(closeAfter.Milliseconds()),
		Data: map[string]any{
			"recurring": true,
			"count":     len(deviceNames),
		},
	}
}
