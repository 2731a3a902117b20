package domain

// Stream event kinds pushed over the live connection.
const (
	EventConnected    = "connected"
	EventNotification = "notification"
	EventPing         = "ping"
)

// StreamEvent is the JSON envelope of a single pushed message.
// Data is only set for "notification" events; Message carries the
// human-readable text of "connected" greetings.
type StreamEvent struct {
	Type      string        `json:"type"`
	Message   string        `json:"message,omitempty"`
	Data      *Notification `json:"data,omitempty"`
	Timestamp int64         `json:"timestamp,omitempty"`
}
