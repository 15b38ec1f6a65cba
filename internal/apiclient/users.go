package apiclient

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/nestfeed/client/internal/model/social"
)

// ProfileUpdate is the input to UpdateProfile. Password confirms the change.
type ProfileUpdate struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SearchUsers finds users by name. The endpoint is public.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]social.User, error) {
	var out struct {
		Users []social.User `json:"users"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/user/search/"+url.PathEscape(query), false, nil, &out)
	return out.Users, err
}

// UpdateProfile changes name and email.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (string, error) {
	var out messageResponse
	err := c.doJSON(ctx, http.MethodPut, "/user/update", true, update, &out)
	return out.Message, err
}

// ChangePassword replaces the password of a logged-in user.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) (string, error) {
	var out messageResponse
	err := c.doJSON(ctx, http.MethodPost, "/user/change-password", true, map[string]string{
		"oldPassword": oldPassword,
		"newPassword": newPassword,
	}, &out)
	return out.Message, err
}

// UploadProfilePic replaces the profile picture and returns the updated user.
func (c *Client) UploadProfilePic(ctx context.Context, fileName string, image io.Reader) (social.User, error) {
	var out struct {
		User social.User `json:"user"`
	}
	err := c.doMultipart(ctx, "/user/uploadProfilePic", nil, "profilePic", fileName, image, &out)
	return out.User, err
}

// FriendProfile fetches another user's page.
func (c *Client) FriendProfile(ctx context.Context, userID string) (social.Profile, error) {
	var out struct {
		User      social.User   `json:"user"`
		IsFriend  bool          `json:"is_friend"`
		IsPending bool          `json:"is_pending"`
		Posts     []social.Post `json:"posts"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/user/friendprofile/"+url.PathEscape(userID), true, nil, &out); err != nil {
		return social.Profile{}, err
	}
	return social.Profile{
		User:      out.User,
		IsFriend:  out.IsFriend,
		IsPending: out.IsPending,
		Posts:     out.Posts,
	}, nil
}
