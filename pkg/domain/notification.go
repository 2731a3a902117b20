package domain

import "time"

// Known notification types. Type is an open string on the wire; anything
// unrecognized renders with the default (info) treatment.
const (
	TypeInfo         = "info"
	TypeSuccess      = "success"
	TypeWarning      = "warning"
	TypeError        = "error"
	TypeReleaseNotes = "release_notes"
)

// Notification priorities. Absence means no priority badge.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Notification is a single notification event as delivered by the backend.
// Immutable once received except for the Read/Opened status flags.
type Notification struct {
	ID             string     `json:"id"`
	NotificationID string     `json:"notificationId"`
	Source         string     `json:"source,omitempty"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Message        string     `json:"message,omitempty"` // legacy field, superseded by Content
	Type           string     `json:"type"`
	Priority       string     `json:"priority,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
	Read           bool       `json:"read"`
	Opened         bool       `json:"opened"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
	Metadata       *Metadata  `json:"metadata,omitempty"`

	// When the sender asked for an open receipt, opening the notification
	// fires exactly one tracking callback.
	TrackingEnabled     bool   `json:"trackingEnabled,omitempty"`
	TrackingCallbackURL string `json:"trackingCallbackUrl,omitempty"`
}

// Body returns the textual payload, preferring Content over the legacy
// Message field. Empty when neither is set.
func (n Notification) Body() string {
	if n.Content != "" {
		return n.Content
	}
	return n.Message
}

// Metadata is the optional structured payload attached by the sender.
// Opaque to the stream controller; display only.
type Metadata struct {
	SentBy           string      `json:"sentBy,omitempty"`
	SentAt           string      `json:"sentAt,omitempty"`
	JiraReleaseNotes string      `json:"jiraReleaseNotes,omitempty"`
	Groups           []Group     `json:"groups,omitempty"`
	ApplicationID    int         `json:"applicationId,omitempty"`
	ApplicationName  string      `json:"applicationName,omitempty"`
	TargetUser       *TargetUser `json:"targetUser,omitempty"`
}

// Group is a target group reference in notification metadata.
type Group struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TargetUser identifies the intended recipient in notification metadata.
type TargetUser struct {
	UserID int    `json:"userId,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}
