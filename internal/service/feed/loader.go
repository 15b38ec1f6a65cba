package feed

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/logging"
)

// ErrInvalidPage is returned for page numbers below 1.
var ErrInvalidPage = errors.New("page must be at least 1")

// PageFetcher loads one page and reports whether more pages follow.
type PageFetcher[T any] func(ctx context.Context, page, limit int) (items []T, hasMore bool, err error)

// Loader keeps a paginated list. Page 1 replaces the list, later pages
// append. Items are never de-duplicated across pages.
type Loader[T any] struct {
	name   string
	fetch  PageFetcher[T]
	limit  int
	idOf   func(T) string
	logger *zap.Logger

	mu      sync.Mutex
	items   []T
	page    int
	hasMore bool
	loading bool
	// epoch changes on Clear; a fetch started before then is discarded
	epoch uint64
}

// NewLoader creates an empty loader. idOf identifies items for Trigger and Remove.
func NewLoader[T any](name string, fetch PageFetcher[T], limit int, idOf func(T) string, logger *zap.Logger) *Loader[T] {
	if limit <= 0 {
		limit = 5
	}
	return &Loader[T]{
		name:    name,
		fetch:   fetch,
		limit:   limit,
		idOf:    idOf,
		logger:  logging.OrNop(logger).With(zap.String("list", name)),
		hasMore: true,
	}
}

// LoadPage fetches page n. It reports false without fetching when another
// load is already in flight.
func (l *Loader[T]) LoadPage(ctx context.Context, n int) (bool, error) {
	if n < 1 {
		return false, ErrInvalidPage
	}

	l.mu.Lock()
	if l.loading {
		l.mu.Unlock()
		l.logger.Debug("load suppressed, another page is in flight", zap.Int("page", n))
		return false, nil
	}
	l.loading = true
	epoch := l.epoch
	l.mu.Unlock()

	items, hasMore, err := l.fetch(ctx, n, l.limit)

	l.mu.Lock()
	defer l.mu.Unlock()
	current := l.epoch == epoch
	if current {
		l.loading = false
	}

	if err != nil {
		l.logger.Warn("page load failed", zap.Int("page", n), zap.Error(err))
		return false, err
	}
	if !current {
		l.logger.Debug("discarding page fetched before clear", zap.Int("page", n))
		return false, nil
	}

	if n == 1 {
		l.items = append([]T(nil), items...)
	} else {
		l.items = append(l.items, items...)
	}
	l.page = n
	l.hasMore = hasMore
	return true, nil
}

// Clear empties the list back to its never-loaded state.
func (l *Loader[T]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.epoch++
	l.items = nil
	l.page = 0
	l.hasMore = true
	l.loading = false
}

// Reset reloads page 1.
func (l *Loader[T]) Reset(ctx context.Context) (bool, error) {
	return l.LoadPage(ctx, 1)
}

// Trigger is called when the item lastVisibleID scrolls into view. It loads
// the next page only when that item is the last one loaded.
func (l *Loader[T]) Trigger(ctx context.Context, lastVisibleID string) (bool, error) {
	l.mu.Lock()
	if l.loading || !l.hasMore || len(l.items) == 0 || l.idOf(l.items[len(l.items)-1]) != lastVisibleID {
		l.mu.Unlock()
		return false, nil
	}
	next := l.page + 1
	l.mu.Unlock()

	return l.LoadPage(ctx, next)
}

// Next loads the page after the current one.
func (l *Loader[T]) Next(ctx context.Context) (bool, error) {
	l.mu.Lock()
	if !l.hasMore {
		l.mu.Unlock()
		return false, nil
	}
	next := l.page + 1
	l.mu.Unlock()

	return l.LoadPage(ctx, next)
}

// Items returns a snapshot of the loaded list.
func (l *Loader[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.copyItems()
}

func (l *Loader[T]) copyItems() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Page returns the last loaded page, 0 before the first load.
func (l *Loader[T]) Page() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page
}

func (l *Loader[T]) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasMore
}

func (l *Loader[T]) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Remove drops the item with id and reports whether it was present.
func (l *Loader[T]) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, item := range l.items {
		if l.idOf(item) == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

// Prepend puts item at the top of the list.
func (l *Loader[T]) Prepend(item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]T{item}, l.items...)
}

// Snapshot is a Loader's state at one instant.
type Snapshot[T any] struct {
	Items   []T  `json:"items"`
	Page    int  `json:"page"`
	HasMore bool `json:"hasMore"`
	Loading bool `json:"loading"`
}

// Snapshot captures items and paging state together.
func (l *Loader[T]) Snapshot() Snapshot[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot[T]{
		Items:   l.copyItems(),
		Page:    l.page,
		HasMore: l.hasMore,
		Loading: l.loading,
	}
}
