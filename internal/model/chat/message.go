package chat

import "time"

// SenderRole tells whose side of the conversation a message is on.
type SenderRole string

const (
	SenderSelf  SenderRole = "self"
	SenderOther SenderRole = "other"
)

// Message is one entry of the visible conversation. Pending marks a locally
// sent copy that no server response has confirmed yet.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	Sender         SenderRole `json:"sender"`
	Content        string     `json:"content"`
	Pending        bool       `json:"pending,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}
