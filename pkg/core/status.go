package core

// ConnectionStatus is the liveness state of the feed as seen by the viewer.
type ConnectionStatus string

const (
	StatusConnected ConnectionStatus = "connected"
	// StatusDisconnected means the feed is down and the transport is
	// reconnecting.
	StatusDisconnected ConnectionStatus = "disconnected"
	// StatusReconnected is the brief state after recovery while the
	// "reconnected" banner is still shown. It counts as connected.
	StatusReconnected ConnectionStatus = "reconnected"
)

// Live reports whether the status counts as connected.
func (s ConnectionStatus) Live() bool {
	return s != StatusDisconnected
}
