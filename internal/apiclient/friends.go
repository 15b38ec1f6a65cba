package apiclient

import (
	"context"
	"net/http"

	"github.com/nestfeed/client/internal/model/social"
)

// SendFriendRequest asks receiverID to become a friend.
func (c *Client) SendFriendRequest(ctx context.Context, receiverID string) error {
	return c.doJSON(ctx, http.MethodPost, "/friendrequest/send", true, map[string]string{"receiver": receiverID}, nil)
}

// FriendRequests lists requests addressed to the current user, any status.
func (c *Client) FriendRequests(ctx context.Context) ([]social.FriendRequest, error) {
	var out struct {
		FriendRequests []social.FriendRequest `json:"friendRequests"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/friendrequest/getfriendrequests", true, nil, &out)
	return out.FriendRequests, err
}

// SetRequestStatus accepts or rejects a request.
func (c *Client) SetRequestStatus(ctx context.Context, requestID, status string) error {
	// the path spelling is the server's
	return c.doJSON(ctx, http.MethodPost, "/friendrequest/stauschange", true, map[string]string{
		"requestId": requestID,
		"status":    status,
	}, nil)
}

// AllFriends lists accepted friends.
func (c *Client) AllFriends(ctx context.Context) ([]social.User, error) {
	var out struct {
		Friends []social.User `json:"friends"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/friendrequest/getAllFriends", true, nil, &out)
	return out.Friends, err
}

// SidebarFriends lists the friends shown next to the feed.
func (c *Client) SidebarFriends(ctx context.Context) ([]social.User, error) {
	var out struct {
		Friends []social.User `json:"friends"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/friendrequest/getFriends", true, nil, &out)
	return out.Friends, err
}
