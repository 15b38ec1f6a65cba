package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nestfeed/client/internal/model/chat"
)

// Conversation fetches the message history with userID, newest first.
func (c *Client) Conversation(ctx context.Context, userID string) ([]chat.WireMessage, error) {
	var out struct {
		Conversations []chat.WireMessage `json:"conversations"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/chat/conversations/"+url.PathEscape(userID), true, nil, &out)
	return out.Conversations, err
}
