package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nestfeed/client/internal/model/social"
)

// Feed fetches one page of the home feed, newest first.
func (c *Client) Feed(ctx context.Context, page, limit int) (social.PostPage, error) {
	var out social.PostPage
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/user/feed?page=%d&limit=%d", page, limit), true, nil, &out)
	return out, err
}

// DeletedPosts fetches one page of the user's soft-deleted posts.
func (c *Client) DeletedPosts(ctx context.Context, page, limit int) (social.PostPage, error) {
	var out social.PostPage
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/post/deletedposts?page=%d&limit=%d", page, limit), true, nil, &out)
	return out, err
}

// MyPosts fetches every post of the current user.
func (c *Client) MyPosts(ctx context.Context) ([]social.Post, error) {
	var out struct {
		Posts []social.Post `json:"posts"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/post/myposts", true, nil, &out)
	return out.Posts, err
}

// CreatePost publishes a post with an optional image.
func (c *Client) CreatePost(ctx context.Context, post social.NewPost) (social.Post, error) {
	var out struct {
		Post social.Post `json:"post"`
	}

	fields := map[string]string{"text": post.Text}
	var err error
	if len(post.Image) > 0 {
		err = c.doMultipart(ctx, "/post/create", fields, "image", post.ImageName, bytes.NewReader(post.Image), &out)
	} else {
		err = c.doMultipart(ctx, "/post/create", fields, "", "", nil, &out)
	}
	return out.Post, err
}

// LikePost toggles a like.
func (c *Client) LikePost(ctx context.Context, postID string) error {
	return c.doJSON(ctx, http.MethodPost, "/post/like/"+url.PathEscape(postID), true, struct{}{}, nil)
}

// DeletePost soft-deletes a post.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/post/delete/"+url.PathEscape(postID), true, nil, nil)
}

// RestorePost undoes a soft delete.
func (c *Client) RestorePost(ctx context.Context, postID string) error {
	return c.doJSON(ctx, http.MethodPut, "/post/restore/"+url.PathEscape(postID), true, nil, nil)
}
