package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nestfeed/client/internal/model/social"
)

// Notifications lists every notification of the current user.
func (c *Client) Notifications(ctx context.Context) ([]social.Notification, error) {
	var out struct {
		Notifications []social.Notification `json:"notifications"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/notification/getNotifications", true, nil, &out)
	return out.Notifications, err
}

// UnreadCount returns the server-side unread count.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		UnreadCount int `json:"unreadCount"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/notification/unreadCount", true, nil, &out)
	return out.UnreadCount, err
}

// MarkChecked marks one notification as read.
func (c *Client) MarkChecked(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPut, "/notification/mark/"+url.PathEscape(id), true, struct{}{}, nil)
}

// MarkAllChecked marks every notification as read.
func (c *Client) MarkAllChecked(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPut, "/notification/markAll", true, struct{}{}, nil)
}
