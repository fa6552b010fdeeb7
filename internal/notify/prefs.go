package notify

import (
	"net"
	"net/url"
	"strings"
	"time"
)

// RecurringInterval is the period between recurring offline reminders,
// restricted to a small enumerated set.
type RecurringInterval int

const (
	Recurring15s RecurringInterval = 15
	Recurring30s RecurringInterval = 30
	Recurring60s RecurringInterval = 60
)

// Valid reports whether the interval is one of the supported values.
func (i RecurringInterval) Valid() bool {
	switch i {
	case Recurring15s, Recurring30s, Recurring60s:
		return true
	}
	return false
}

// Duration returns the interval as a time.Duration.
func (i RecurringInterval) Duration() time.Duration {
	return time.Duration(i) * time.Second
}

// CustomSound describes a user-uploaded audio clip for one status direction.
type CustomSound struct {
	URL        string `json:"url"`
	Name       string `json:"name,omitempty"`
	DurationMs int    `json:"duration_ms,omitempty"`
}

// Preferences controls notification behavior for one user. Invalid
// combinations are representable but normalized by Sanitized before the
// pipeline ever reads them.
type Preferences struct {
	EnableNotifications bool              `json:"enable_notifications"`
	EnableSound         bool              `json:"enable_sound"`
	GroupNotifications  bool              `json:"group_notifications"`
	SoundVolume         float64           `json:"sound_volume"`
	ToastDurationMs     int               `json:"notification_duration_ms"`
	EnableRecurring     bool              `json:"enable_recurring_notifications"`
	RecurringInterval   RecurringInterval `json:"recurring_interval"`
	RecurringVolume     float64           `json:"recurring_volume"`
	UseCustomSounds     bool              `json:"use_custom_sounds"`
	CustomSoundOnline   *CustomSound      `json:"custom_sound_online,omitempty"`
	CustomSoundOffline  *CustomSound      `json:"custom_sound_offline,omitempty"`
}

// DefaultPreferences returns the out-of-the-box notification settings.
func DefaultPreferences() Preferences {
	return Preferences{
		EnableNotifications: true,
		EnableSound:         true,
		GroupNotifications:  true,
		SoundVolume:         0.4,
		ToastDurationMs:     10000,
		EnableRecurring:     false,
		RecurringInterval:   Recurring30s,
		RecurringVolume:     0.25,
	}
}

// Sanitized returns a normalized copy: volumes clamped to [0,1], duration
// and interval forced back to defaults when out of range, unusable custom
// sound URLs cleared, and UseCustomSounds honored only while at least one
// custom URL validates.
func (p Preferences) Sanitized() Preferences {
	out := p

	out.SoundVolume = clamp01(out.SoundVolume)
	out.RecurringVolume = clamp01(out.RecurringVolume)

	if out.ToastDurationMs <= 0 {
		out.ToastDurationMs = DefaultPreferences().ToastDurationMs
	}
	if !out.RecurringInterval.Valid() {
		out.RecurringInterval = Recurring30s
	}

	if out.CustomSoundOnline != nil && !ValidCustomSoundURL(out.CustomSoundOnline.URL) {
		out.CustomSoundOnline = nil
	}
	if out.CustomSoundOffline != nil && !ValidCustomSoundURL(out.CustomSoundOffline.URL) {
		out.CustomSoundOffline = nil
	}
	if out.CustomSoundOnline == nil && out.CustomSoundOffline == nil {
		out.UseCustomSounds = false
	}

	return out
}

// ValidCustomSoundURL reports whether raw is acceptable as a custom sound
// source: a well-formed absolute http/https URL with a non-loopback host.
// Anything else is treated as "not configured", never as an error.
func ValidCustomSoundURL(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return false
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := u.Hostname()
	if host == "" || host == "localhost" {
		return false
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return false
	}
	return true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
