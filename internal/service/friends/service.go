package friends

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/logging"
	"github.com/nestfeed/client/internal/model/social"
)

var (
	ErrInvalidStatus    = errors.New("status must be accepted or rejected")
	ErrReceiverRequired = errors.New("receiver id is required")
)

// API is the slice of the REST API the friends view needs.
type API interface {
	SendFriendRequest(ctx context.Context, receiverID string) error
	FriendRequests(ctx context.Context) ([]social.FriendRequest, error)
	SetRequestStatus(ctx context.Context, requestID, status string) error
	AllFriends(ctx context.Context) ([]social.User, error)
	SidebarFriends(ctx context.Context) ([]social.User, error)
}

// Service wraps friend requests and friend lists. It keeps no state; every
// call reflects the server.
type Service struct {
	api    API
	logger *zap.Logger
}

func NewService(api API, logger *zap.Logger) *Service {
	return &Service{api: api, logger: logging.OrNop(logger).With(zap.String("component", "friends"))}
}

// Requests returns incoming requests split into pending and rejected.
// Accepted requests show up as friends instead.
func (s *Service) Requests(ctx context.Context) (social.RequestBuckets, error) {
	all, err := s.api.FriendRequests(ctx)
	if err != nil {
		s.logger.Warn("failed to fetch friend requests", zap.Error(err))
		return social.RequestBuckets{}, fmt.Errorf("fetch friend requests: %w", err)
	}

	buckets := social.RequestBuckets{
		Pending:  []social.FriendRequest{},
		Rejected: []social.FriendRequest{},
	}
	for _, req := range all {
		switch req.Status {
		case social.RequestPending:
			buckets.Pending = append(buckets.Pending, req)
		case social.RequestRejected:
			buckets.Rejected = append(buckets.Rejected, req)
		}
	}
	return buckets, nil
}

// Response is the refreshed state after answering a request. Friends is only
// refetched when the request was accepted.
type Response struct {
	Requests social.RequestBuckets `json:"requests"`
	Friends  []social.User         `json:"friends,omitempty"`
}

// Respond accepts or rejects a request and refetches what it changed.
func (s *Service) Respond(ctx context.Context, requestID, status string) (Response, error) {
	if status != social.RequestAccepted && status != social.RequestRejected {
		return Response{}, ErrInvalidStatus
	}

	if err := s.api.SetRequestStatus(ctx, requestID, status); err != nil {
		s.logger.Warn("failed to update friend request",
			zap.String("request", requestID), zap.String("status", status), zap.Error(err))
		return Response{}, fmt.Errorf("update friend request: %w", err)
	}

	var out Response
	var err error
	out.Requests, err = s.Requests(ctx)
	if err != nil {
		return out, err
	}
	if status == social.RequestAccepted {
		out.Friends, err = s.Friends(ctx)
	}
	return out, err
}

// Send asks receiverID to become a friend.
func (s *Service) Send(ctx context.Context, receiverID string) error {
	receiverID = strings.TrimSpace(receiverID)
	if receiverID == "" {
		return ErrReceiverRequired
	}
	if err := s.api.SendFriendRequest(ctx, receiverID); err != nil {
		s.logger.Warn("failed to send friend request", zap.String("receiver", receiverID), zap.Error(err))
		return err
	}
	return nil
}

// Friends lists accepted friends.
func (s *Service) Friends(ctx context.Context) ([]social.User, error) {
	friends, err := s.api.AllFriends(ctx)
	if err != nil {
		s.logger.Warn("failed to fetch friends", zap.Error(err))
		return nil, fmt.Errorf("fetch friends: %w", err)
	}
	return friends, nil
}

// Sidebar lists the friends shown beside the feed.
func (s *Service) Sidebar(ctx context.Context) ([]social.User, error) {
	friends, err := s.api.SidebarFriends(ctx)
	if err != nil {
		s.logger.Warn("failed to fetch sidebar friends", zap.Error(err))
		return nil, fmt.Errorf("fetch sidebar friends: %w", err)
	}
	return friends, nil
}
