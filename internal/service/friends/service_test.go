package friends

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestfeed/client/internal/model/social"
)

type fakeAPI struct {
	requests     []social.FriendRequest
	statusCalls  [][2]string
	statusErr    error
	friendsCalls int
	sent         []string
}

func (f *fakeAPI) SendFriendRequest(_ context.Context, id string) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeAPI) FriendRequests(context.Context) ([]social.FriendRequest, error) {
	return f.requests, nil
}

func (f *fakeAPI) SetRequestStatus(_ context.Context, id, status string) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statusCalls = append(f.statusCalls, [2]string{id, status})
	return nil
}

func (f *fakeAPI) AllFriends(context.Context) ([]social.User, error) {
	f.friendsCalls++
	return []social.User{{ID: "u1", Name: "Alice"}}, nil
}

func (f *fakeAPI) SidebarFriends(context.Context) ([]social.User, error) {
	return []social.User{{ID: "u2"}}, nil
}

func TestRequestsSplitByStatus(t *testing.T) {
	api := &fakeAPI{requests: []social.FriendRequest{
		{ID: "r1", Status: social.RequestPending},
		{ID: "r2", Status: social.RequestAccepted},
		{ID: "r3", Status: social.RequestRejected},
		{ID: "r4", Status: social.RequestPending},
	}}
	svc := NewService(api, nil)

	buckets, err := svc.Requests(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets.Pending, 2)
	assert.Equal(t, "r4", buckets.Pending[1].ID)
	require.Len(t, buckets.Rejected, 1)
	assert.Equal(t, "r3", buckets.Rejected[0].ID)
}

func TestRespondRefetchesFriendsOnlyWhenAccepted(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, nil)
	ctx := context.Background()

	out, err := svc.Respond(ctx, "r1", social.RequestRejected)
	require.NoError(t, err)
	assert.Nil(t, out.Friends)
	assert.Zero(t, api.friendsCalls)

	out, err = svc.Respond(ctx, "r2", social.RequestAccepted)
	require.NoError(t, err)
	assert.Len(t, out.Friends, 1)
	assert.Equal(t, 1, api.friendsCalls)
	assert.Equal(t, [][2]string{{"r1", "rejected"}, {"r2", "accepted"}}, api.statusCalls)
}

func TestRespondValidation(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, nil)

	_, err := svc.Respond(context.Background(), "r1", social.RequestPending)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Empty(t, api.statusCalls)

	api.statusErr = errors.New("forbidden")
	_, err = svc.Respond(context.Background(), "r1", social.RequestAccepted)
	assert.ErrorIs(t, err, api.statusErr)
}

func TestSendRequiresReceiver(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, nil)

	assert.ErrorIs(t, svc.Send(context.Background(), " "), ErrReceiverRequired)
	require.NoError(t, svc.Send(context.Background(), "u9"))
	assert.Equal(t, []string{"u9"}, api.sent)
}
