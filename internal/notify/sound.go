package notify

import "github.com/HerbHall/vigil/pkg/models"

// SoundKind distinguishes status-change sounds from the recurring reminder.
type SoundKind string

const (
	SoundStatus    SoundKind = "status"
	SoundRecurring SoundKind = "recurring"
)

// Tone is one synthesized beep within a pattern. DelayMs is relative to the
// start of the pattern.
type Tone struct {
	FrequencyHz float64 `json:"frequency_hz"`
	DurationMs  int     `json:"duration_ms"`
	DelayMs     int     `json:"delay_ms"`
}

// SoundCommand instructs the UI to play one sound. When CustomURL is set
// the player attempts it first and falls back to Tones on any load or
// playback error, so a delivery always produces an audible result.
type SoundCommand struct {
	Kind      SoundKind           `json:"kind"`
	Status    models.DeviceStatus `json:"status,omitempty"`
	Volume    float64             `json:"volume"`
	CustomURL string              `json:"custom_url,omitempty"`
	Tones     []Tone              `json:"tones"`
	DelayMs   int                 `json:"delay_ms,omitempty"`
}

// defaultTones returns the synthesized pattern for a status direction.
// Offline is an alerting low-pitch triple beep; online a brief, softer
// double beep at a higher pitch, so the direction is audible without
// looking at the screen.
func defaultTones(status models.DeviceStatus) []Tone {
	if status == models.DeviceStatusOffline {
		return []Tone{
			{FrequencyHz: 400, DurationMs: 200, DelayMs: 0},
			{FrequencyHz: 400, DurationMs: 200, DelayMs: 250},
			{FrequencyHz: 400, DurationMs: 300, DelayMs: 500},
		}
	}
	return []Tone{
		{FrequencyHz: 800, DurationMs: 200, DelayMs: 0},
		{FrequencyHz: 800, DurationMs: 200, DelayMs: 150},
	}
}

// recurringTone is the single quiet mid-pitch beep used by the recurring
// reminder. It never uses custom audio.
func recurringTone() []Tone {
	return []Tone{
		{FrequencyHz: 350, DurationMs: 150, DelayMs: 0},
	}
}

// statusSound builds the sound command for one status-change delivery,
// selecting the custom clip for the direction when configured and valid.
func statusSound(status models.DeviceStatus, prefs Preferences, delayMs int) *SoundCommand {
	cmd := &SoundCommand{
		Kind:    SoundStatus,
		Status:  status,
		Volume:  prefs.SoundVolume,
		Tones:   defaultTones(status),
		DelayMs: delayMs,
	}

	if prefs.UseCustomSounds {
		custom := prefs.CustomSoundOnline
		if status == models.DeviceStatusOffline {
			custom = prefs.CustomSoundOffline
		}
		if custom != nil && ValidCustomSoundURL(custom.URL) {
			cmd.CustomURL = custom.URL
		}
	}

	return cmd
}

// recurringSound builds the sound command for one recurring reminder tick.
func recurringSound(volume float64) *SoundCommand {
	return &SoundCommand{
		Kind:   SoundRecurring,
		Volume: volume,
		Tones:  recurringTone(),
	}
}
