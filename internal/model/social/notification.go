package social

import "time"

// Notification types emitted by the API.
const (
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationFollow  = "follow"
)

// NotificationPost is the post excerpt attached to a notification.
type NotificationPost struct {
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Notification mirrors the API's notification document. Tentative is local
// state: set while an optimistic change awaits the server's list.
type Notification struct {
	ID        string            `json:"_id"`
	From      User              `json:"from"`
	Post      *NotificationPost `json:"post,omitempty"`
	Checked   bool              `json:"checked"`
	CreatedAt time.Time         `json:"createdAt"`
	Type      string            `json:"type"`
	Message   string            `json:"message,omitempty"`
	Tentative bool              `json:"tentative,omitempty"`
}
