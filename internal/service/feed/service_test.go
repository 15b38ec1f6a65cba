package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestfeed/client/internal/model/session"
	"github.com/nestfeed/client/internal/model/social"
)

type fakeAPI struct {
	feed      map[int]social.PostPage
	deleted   social.PostPage
	created   social.Post
	createErr error
	creates   int
	deletes   []string
	restores  []string
	likes     []string
	limits    []int
}

func (f *fakeAPI) Feed(_ context.Context, page, limit int) (social.PostPage, error) {
	f.limits = append(f.limits, limit)
	return f.feed[page], nil
}

func (f *fakeAPI) DeletedPosts(_ context.Context, _, limit int) (social.PostPage, error) {
	f.limits = append(f.limits, limit)
	return f.deleted, nil
}

func (f *fakeAPI) MyPosts(context.Context) ([]social.Post, error) {
	return []social.Post{{ID: "mine"}}, nil
}

func (f *fakeAPI) CreatePost(context.Context, social.NewPost) (social.Post, error) {
	f.creates++
	return f.created, f.createErr
}

func (f *fakeAPI) LikePost(_ context.Context, id string) error {
	f.likes = append(f.likes, id)
	return nil
}

func (f *fakeAPI) DeletePost(_ context.Context, id string) error {
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeAPI) RestorePost(_ context.Context, id string) error {
	f.restores = append(f.restores, id)
	return nil
}

type fakeSessions struct {
	current session.Session
	err     error
}

func (f fakeSessions) Current(context.Context) (session.Session, error) {
	return f.current, f.err
}

func page(hasMore bool, ids ...string) social.PostPage {
	out := social.PostPage{Pagination: social.Pagination{HasMore: hasMore}}
	for _, id := range ids {
		out.Posts = append(out.Posts, social.Post{ID: id})
	}
	return out
}

var alice = session.Session{
	Token:      "tok",
	Identity:   session.Identity{ID: "u-alice", DisplayName: "Alice"},
	ProfilePic: "alice.png",
}

func TestCreatePrependsDecoratedPost(t *testing.T) {
	api := &fakeAPI{
		feed:    map[int]social.PostPage{1: page(true, "p1", "p2")},
		created: social.Post{ID: "p0", Text: "hello"},
	}
	svc := NewService(api, fakeSessions{current: alice}, 5, nil)
	ctx := context.Background()

	_, err := svc.Home().Reset(ctx)
	require.NoError(t, err)

	post, err := svc.Create(ctx, social.NewPost{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", post.User.Name)
	assert.Equal(t, "alice.png", post.User.ProfilePic)

	items := svc.Home().Items()
	require.Len(t, items, 3)
	assert.Equal(t, "p0", items[0].ID)
	assert.Equal(t, []int{5}, api.limits)
}

func TestCreateRejectsBlankText(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, fakeSessions{current: alice}, 5, nil)

	_, err := svc.Create(context.Background(), social.NewPost{Text: "   ", Image: []byte("img")})
	assert.ErrorIs(t, err, ErrEmptyPost)
	assert.Zero(t, api.creates)
}

func TestCreateRequiresSession(t *testing.T) {
	api := &fakeAPI{}
	expired := errors.New("expired")
	svc := NewService(api, fakeSessions{err: expired}, 5, nil)

	_, err := svc.Create(context.Background(), social.NewPost{Text: "hi"})
	assert.ErrorIs(t, err, expired)
	assert.Zero(t, api.creates)
}

func TestDeleteAndRestoreMaintainLists(t *testing.T) {
	api := &fakeAPI{
		feed:    map[int]social.PostPage{1: page(false, "p1", "p2")},
		deleted: page(false, "d1", "d2"),
	}
	svc := NewService(api, fakeSessions{current: alice}, 5, nil)
	ctx := context.Background()

	_, err := svc.Home().Reset(ctx)
	require.NoError(t, err)
	_, err = svc.Deleted().Reset(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "p1"))
	require.NoError(t, svc.Restore(ctx, "d2"))
	require.NoError(t, svc.Like(ctx, "p2"))

	assert.Equal(t, []string{"p1"}, api.deletes)
	assert.Equal(t, []string{"d2"}, api.restores)
	assert.Equal(t, []string{"p2"}, api.likes)
	assert.Equal(t, []int{5, DeletedPageSize}, api.limits)

	require.Len(t, svc.Home().Items(), 1)
	assert.Equal(t, "p2", svc.Home().Items()[0].ID)
	require.Len(t, svc.Deleted().Items(), 1)
	assert.Equal(t, "d1", svc.Deleted().Items()[0].ID)
}
