package notification

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/logging"
	"github.com/nestfeed/client/internal/model/social"
)

// API is the slice of the REST API the poller needs.
type API interface {
	Notifications(ctx context.Context) ([]social.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkChecked(ctx context.Context, id string) error
	MarkAllChecked(ctx context.Context) error
}

// Poller keeps the notification list. It fetches on demand only; there is no
// background polling loop.
type Poller struct {
	api    API
	logger *zap.Logger

	mu     sync.RWMutex
	items  []social.Notification
	loaded bool
	epoch  uint64
}

// NewPoller creates an empty poller.
func NewPoller(api API, logger *zap.Logger) *Poller {
	return &Poller{
		api:    api,
		logger: logging.OrNop(logger).With(zap.String("component", "notification")),
	}
}

// Refresh replaces the list with the server's. On failure the current list
// is kept.
func (p *Poller) Refresh(ctx context.Context) ([]social.Notification, error) {
	p.mu.RLock()
	epoch := p.epoch
	p.mu.RUnlock()

	items, err := p.api.Notifications(ctx)
	if err != nil {
		p.logger.Warn("failed to fetch notifications", zap.Error(err))
		return nil, fmt.Errorf("fetch notifications: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.epoch != epoch {
		p.logger.Debug("discarding notifications fetched before clear")
		return cloneList(p.items), nil
	}
	p.items = append([]social.Notification(nil), items...)
	p.loaded = true
	return cloneList(p.items), nil
}

// Clear forgets every notification, as if no refresh had happened.
func (p *Poller) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.epoch++
	p.items = nil
	p.loaded = false
}

// Loaded reports whether a refresh has succeeded yet.
func (p *Poller) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// List returns the current list, optionally only unchecked items.
func (p *Poller) List(unreadOnly bool) []social.Notification {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !unreadOnly {
		return cloneList(p.items)
	}
	out := make([]social.Notification, 0, len(p.items))
	for _, n := range p.items {
		if !n.Checked {
			out = append(out, n)
		}
	}
	return out
}

// UnreadCount counts unchecked items in the local list.
func (p *Poller) UnreadCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	count := 0
	for _, n := range p.items {
		if !n.Checked {
			count++
		}
	}
	return count
}

// ServerUnreadCount asks the API for the unread count.
func (p *Poller) ServerUnreadCount(ctx context.Context) (int, error) {
	count, err := p.api.UnreadCount(ctx)
	if err != nil {
		p.logger.Warn("failed to fetch unread count", zap.Error(err))
		return 0, fmt.Errorf("fetch unread count: %w", err)
	}
	return count, nil
}

// MarkChecked flips one notification locally, marks it on the server and then
// reloads the authoritative list. A rejected mark is rolled back.
func (p *Poller) MarkChecked(ctx context.Context, id string) error {
	previous := p.markTentative(func(n social.Notification) bool { return n.ID == id })

	if err := p.api.MarkChecked(ctx, id); err != nil {
		p.rollback(previous)
		p.logger.Warn("failed to mark notification", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("mark notification: %w", err)
	}
	return p.settle(ctx, previous)
}

// MarkAllChecked is MarkChecked for every item.
func (p *Poller) MarkAllChecked(ctx context.Context) error {
	previous := p.markTentative(func(social.Notification) bool { return true })

	if err := p.api.MarkAllChecked(ctx); err != nil {
		p.rollback(previous)
		p.logger.Warn("failed to mark all notifications", zap.Error(err))
		return fmt.Errorf("mark all notifications: %w", err)
	}
	return p.settle(ctx, previous)
}

// markTentative applies the optimistic change and returns the prior Checked
// value of every touched item.
func (p *Poller) markTentative(match func(social.Notification) bool) map[string]bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	previous := make(map[string]bool)
	for i := range p.items {
		if !match(p.items[i]) {
			continue
		}
		previous[p.items[i].ID] = p.items[i].Checked
		p.items[i].Checked = true
		p.items[i].Tentative = true
	}
	return previous
}

func (p *Poller) rollback(previous map[string]bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.items {
		checked, ok := previous[p.items[i].ID]
		if !ok || !p.items[i].Tentative {
			continue
		}
		p.items[i].Checked = checked
		p.items[i].Tentative = false
	}
}

// settle runs after the server accepted a mark. The touched items are no
// longer tentative even if the follow-up reload fails.
func (p *Poller) settle(ctx context.Context, touched map[string]bool) error {
	p.mu.Lock()
	for i := range p.items {
		if _, ok := touched[p.items[i].ID]; ok {
			p.items[i].Tentative = false
		}
	}
	p.mu.Unlock()

	_, err := p.Refresh(ctx)
	return err
}

func cloneList(in []social.Notification) []social.Notification {
	out := make([]social.Notification, len(in))
	copy(out, in)
	return out
}
