package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pagedSource struct {
	pages map[int][]string
	last  int
	calls []int
	block chan struct{}
	err   error
}

func (p *pagedSource) fetch(ctx context.Context, page, limit int) ([]string, bool, error) {
	p.calls = append(p.calls, page)
	if p.block != nil {
		<-p.block
	}
	if p.err != nil {
		return nil, false, p.err
	}
	return p.pages[page], page < p.last, nil
}

func ident(s string) string { return s }

func newPaged() *pagedSource {
	return &pagedSource{
		pages: map[int][]string{1: {"a", "b"}, 2: {"c", "d"}, 3: {"e"}},
		last:  3,
	}
}

func TestPageOneReplacesLaterPagesAppend(t *testing.T) {
	src := newPaged()
	l := NewLoader("test", src.fetch, 2, ident, nil)
	ctx := context.Background()

	ok, err := l.LoadPage(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = l.LoadPage(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c", "d"}, l.Items())
	assert.Equal(t, 2, l.Page())

	ok, err = l.Reset(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, l.Items())
}

func TestPagesAreNotDeduplicated(t *testing.T) {
	src := &pagedSource{pages: map[int][]string{1: {"a", "b"}, 2: {"b", "c"}}, last: 2}
	l := NewLoader("test", src.fetch, 2, ident, nil)
	ctx := context.Background()

	_, err := l.LoadPage(ctx, 1)
	require.NoError(t, err)
	_, err = l.LoadPage(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "b", "c"}, l.Items())
}

func TestConcurrentLoadIsSuppressed(t *testing.T) {
	src := newPaged()
	src.block = make(chan struct{})
	l := NewLoader("test", src.fetch, 2, ident, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := l.LoadPage(ctx, 1)
		done <- err
	}()
	require.Eventually(t, l.Loading, time.Second, 5*time.Millisecond)

	ok, err := l.LoadPage(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	close(src.block)
	require.NoError(t, <-done)
	assert.Equal(t, []int{1}, src.calls)
	assert.False(t, l.Loading())
}

func TestTriggerOnlyFromLastItem(t *testing.T) {
	src := newPaged()
	l := NewLoader("test", src.fetch, 2, ident, nil)
	ctx := context.Background()

	ok, err := l.Trigger(ctx, "anything")
	require.NoError(t, err)
	assert.False(t, ok, "nothing loaded yet")

	_, err = l.Reset(ctx)
	require.NoError(t, err)

	ok, _ = l.Trigger(ctx, "a")
	assert.False(t, ok)

	ok, err = l.Trigger(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = l.Trigger(ctx, "d")
	assert.True(t, ok)
	assert.False(t, l.HasMore())

	ok, _ = l.Trigger(ctx, "e")
	assert.False(t, ok, "no more pages")
	assert.Equal(t, []int{1, 2, 3}, src.calls)
}

func TestFailedLoadKeepsState(t *testing.T) {
	src := newPaged()
	l := NewLoader("test", src.fetch, 2, ident, nil)
	ctx := context.Background()
	_, err := l.Reset(ctx)
	require.NoError(t, err)

	src.err = errors.New("offline")
	ok, err := l.LoadPage(ctx, 2)
	assert.False(t, ok)
	assert.ErrorIs(t, err, src.err)
	assert.Equal(t, []string{"a", "b"}, l.Items())
	assert.Equal(t, 1, l.Page())
	assert.False(t, l.Loading())

	_, err = l.LoadPage(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestRemoveAndPrepend(t *testing.T) {
	src := newPaged()
	l := NewLoader("test", src.fetch, 2, ident, nil)
	_, err := l.Reset(context.Background())
	require.NoError(t, err)

	before := l.Items()
	assert.True(t, l.Remove("a"))
	assert.False(t, l.Remove("zzz"))
	l.Prepend("new")

	assert.Equal(t, []string{"new", "b"}, l.Items())
	assert.Equal(t, []string{"a", "b"}, before, "snapshots are detached")

	snap := l.Snapshot()
	assert.Equal(t, 1, snap.Page)
	assert.True(t, snap.HasMore)
	assert.Equal(t, []string{"new", "b"}, snap.Items)
}

func TestClearDropsListAndInflightPage(t *testing.T) {
	src := newPaged()
	l := NewLoader("test", src.fetch, 2, ident, nil)
	ctx := context.Background()

	_, err := l.LoadPage(ctx, 1)
	require.NoError(t, err)
	_, err = l.LoadPage(ctx, 2)
	require.NoError(t, err)

	l.Clear()
	assert.Empty(t, l.Items())
	assert.Zero(t, l.Page())
	assert.True(t, l.HasMore())

	src.block = make(chan struct{})
	done := make(chan bool, 1)
	go func() {
		ok, _ := l.LoadPage(ctx, 1)
		done <- ok
	}()
	require.Eventually(t, l.Loading, time.Second, 5*time.Millisecond)

	l.Clear()
	close(src.block)
	assert.False(t, <-done, "a page fetched before Clear is not applied")
	assert.Empty(t, l.Items())
	assert.Zero(t, l.Page())
	assert.False(t, l.Loading())
}
