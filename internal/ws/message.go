package ws

import "time"

// MessageType discriminates server-to-client WebSocket messages.
type MessageType string

const (
	MessageToastCreated   MessageType = "toast.created"
	MessageToastDismissed MessageType = "toast.dismissed"
	MessageToastExpired   MessageType = "toast.expired"
	MessageNativeShow     MessageType = "native.show"
	MessageSoundPlay      MessageType = "sound.play"
	MessagePrefsUpdated   MessageType = "preferences.updated"
	MessageDeviceCreated  MessageType = "device.created"
	MessageDeviceUpdated  MessageType = "device.updated"
	MessageDeviceDeleted  MessageType = "device.deleted"
)

// Message is the envelope for all server-to-client messages.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// ClientMessageType discriminates client-to-server messages.
type ClientMessageType string

const (
	// ClientVisibility reports the dashboard tab's page-visibility state.
	ClientVisibility ClientMessageType = "visibility"
)

// ClientMessage is the envelope for client-to-server messages.
type ClientMessage struct {
	Type    ClientMessageType `json:"type"`
	Visible bool              `json:"visible"`
}

// DeviceDeletedData is the payload for device.deleted messages.
type DeviceDeletedData struct {
	DeviceID string `json:"device_id"`
}
