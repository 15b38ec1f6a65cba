package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/logging"
	"github.com/nestfeed/client/internal/model/session"
	"github.com/nestfeed/client/internal/model/social"
)

// ErrEmptyPost is returned when a post has no text.
var ErrEmptyPost = errors.New("post text is required")

// DeletedPageSize is the page size of the deleted-posts list.
const DeletedPageSize = 10

// API is the slice of the REST API the feed needs.
type API interface {
	Feed(ctx context.Context, page, limit int) (social.PostPage, error)
	DeletedPosts(ctx context.Context, page, limit int) (social.PostPage, error)
	MyPosts(ctx context.Context) ([]social.Post, error)
	CreatePost(ctx context.Context, post social.NewPost) (social.Post, error)
	LikePost(ctx context.Context, postID string) error
	DeletePost(ctx context.Context, postID string) error
	RestorePost(ctx context.Context, postID string) error
}

// SessionSource hands out the live session.
type SessionSource interface {
	Current(ctx context.Context) (session.Session, error)
}

// Service holds the home feed and the deleted-posts list.
type Service struct {
	api      API
	sessions SessionSource
	logger   *zap.Logger

	home    *Loader[social.Post]
	deleted *Loader[social.Post]
}

// NewService wires both post lists. pageSize applies to the home feed.
func NewService(api API, sessions SessionSource, pageSize int, logger *zap.Logger) *Service {
	logger = logging.OrNop(logger).With(zap.String("component", "feed"))
	postID := func(p social.Post) string { return p.ID }

	return &Service{
		api:      api,
		sessions: sessions,
		logger:   logger,
		home:     NewLoader("home", pageFetcher(api.Feed), pageSize, postID, logger),
		deleted:  NewLoader("deleted", pageFetcher(api.DeletedPosts), DeletedPageSize, postID, logger),
	}
}

func pageFetcher(fetch func(ctx context.Context, page, limit int) (social.PostPage, error)) PageFetcher[social.Post] {
	return func(ctx context.Context, page, limit int) ([]social.Post, bool, error) {
		res, err := fetch(ctx, page, limit)
		if err != nil {
			return nil, false, err
		}
		return res.Posts, res.Pagination.HasMore, nil
	}
}

// Home is the paginated home feed.
func (s *Service) Home() *Loader[social.Post] { return s.home }

// Deleted is the paginated list of soft-deleted posts.
func (s *Service) Deleted() *Loader[social.Post] { return s.deleted }

// Clear drops both lists. The next read loads page 1 again.
func (s *Service) Clear() {
	s.home.Clear()
	s.deleted.Clear()
}

// Create publishes a post and puts it at the top of the home feed. The
// returned post carries the author's name and picture from the session.
func (s *Service) Create(ctx context.Context, post social.NewPost) (social.Post, error) {
	if strings.TrimSpace(post.Text) == "" {
		return social.Post{}, ErrEmptyPost
	}

	current, err := s.sessions.Current(ctx)
	if err != nil {
		return social.Post{}, err
	}

	created, err := s.api.CreatePost(ctx, post)
	if err != nil {
		s.logger.Warn("create post failed", zap.Error(err))
		return social.Post{}, err
	}

	if created.User.Name == "" {
		created.User.Name = current.Identity.DisplayName
	}
	if created.User.ProfilePic == "" {
		created.User.ProfilePic = current.ProfilePic
	}
	if created.User.ID == "" {
		created.User.ID = current.Identity.ID
	}

	s.home.Prepend(created)
	return created, nil
}

// Like toggles the current user's like on a post.
func (s *Service) Like(ctx context.Context, postID string) error {
	if err := s.api.LikePost(ctx, postID); err != nil {
		s.logger.Warn("like failed", zap.String("post", postID), zap.Error(err))
		return err
	}
	return nil
}

// Delete soft-deletes a post and drops it from the home feed.
func (s *Service) Delete(ctx context.Context, postID string) error {
	if err := s.api.DeletePost(ctx, postID); err != nil {
		s.logger.Warn("delete failed", zap.String("post", postID), zap.Error(err))
		return fmt.Errorf("delete post: %w", err)
	}
	s.home.Remove(postID)
	return nil
}

// Restore brings a soft-deleted post back and drops it from the deleted list.
func (s *Service) Restore(ctx context.Context, postID string) error {
	if err := s.api.RestorePost(ctx, postID); err != nil {
		s.logger.Warn("restore failed", zap.String("post", postID), zap.Error(err))
		return fmt.Errorf("restore post: %w", err)
	}
	s.deleted.Remove(postID)
	return nil
}

// Mine lists the current user's own posts.
func (s *Service) Mine(ctx context.Context) ([]social.Post, error) {
	return s.api.MyPosts(ctx)
}
