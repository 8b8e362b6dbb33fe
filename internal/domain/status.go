package domain

// ConnStatus is the broker connection state shown on the dashboard.
type ConnStatus string

const (
	StatusConnecting   ConnStatus = "Connecting"
	StatusConnected    ConnStatus = "Connected"
	StatusDisconnected ConnStatus = "Disconnected"
	StatusReconnecting ConnStatus = "Reconnecting"
	StatusError        ConnStatus = "Connection Error"
)
