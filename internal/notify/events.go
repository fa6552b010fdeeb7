package notify

// Event topics published by the notification pipeline. The WebSocket layer
// forwards these to connected dashboards.
const (
	TopicToastCreated   = "notify.toast.created"
	TopicToastDismissed = "notify.toast.dismissed"
	TopicToastExpired   = "notify.toast.expired"
	TopicNativeShow     = "notify.native.show"
	TopicSoundPlay      = "notify.sound.play"
	TopicPrefsUpdated   = "notify.preferences.updated"
)
