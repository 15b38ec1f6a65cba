package chat

// Correspondent is the other party of a direct-message conversation.
type Correspondent struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ProfilePic string `json:"profilePic,omitempty"`
}
