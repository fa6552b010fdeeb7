package device

// Event topics published by the device module.
const (
	TopicStatusReported = "device.status.reported"
	TopicDeviceCreated  = "device.created"
	TopicDeviceUpdated  = "device.updated"
	TopicDeviceDeleted  = "device.deleted"
)
