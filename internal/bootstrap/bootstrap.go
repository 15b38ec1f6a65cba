// Package bootstrap assembles the client core from configuration. The gateway
// and the command line tool share it so both see the same session store.
package bootstrap

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/apiclient"
	"github.com/nestfeed/client/internal/config"
	"github.com/nestfeed/client/internal/logging"
	"github.com/nestfeed/client/internal/model/session"
	"github.com/nestfeed/client/internal/relay"
	"github.com/nestfeed/client/internal/service/account"
	chatService "github.com/nestfeed/client/internal/service/chat"
	"github.com/nestfeed/client/internal/service/feed"
	"github.com/nestfeed/client/internal/service/friends"
	"github.com/nestfeed/client/internal/service/notification"
	sessionService "github.com/nestfeed/client/internal/service/session"
)

// Core is every client service wired to one API client and one session store.
type Core struct {
	Client        *apiclient.Client
	Store         session.Store
	Sessions      *sessionService.Manager
	Accounts      *account.Service
	Feed          *feed.Service
	Notifications *notification.Poller
	Friends       *friends.Service
	Chat          *chatService.Service

	closers []io.Closer
}

// OpenStore opens the session store the configuration selects. The returned
// closer is nil for stores that hold no resources.
func OpenStore(cfg config.SessionConfig) (session.Store, io.Closer, error) {
	switch cfg.Backend {
	case config.SessionBackendMemory:
		return session.NewMemoryStore(nil), nil, nil
	case config.SessionBackendFile:
		return session.NewFileStore(cfg.Path), nil, nil
	case config.SessionBackendSQLite:
		store, err := session.OpenSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

// New builds the core. Close releases the session store and the relay.
func New(cfg *config.Config, logger *zap.Logger) (*Core, error) {
	logger = logging.OrNop(logger)

	store, closer, err := OpenStore(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	client := apiclient.New(cfg.API.BaseURL, cfg.API.Timeout, logger.Named("api"))
	sessions := sessionService.NewManager(store, client, cfg.Session.Retention, logger.Named("session"))
	client.UseTokens(sessions)

	relayOpts := relay.DefaultOptions()
	relayOpts.HandshakeTimeout = cfg.Relay.HandshakeTimeout
	relayOpts.PingInterval = cfg.Relay.PingInterval

	core := &Core{
		Client:        client,
		Store:         store,
		Sessions:      sessions,
		Accounts:      account.NewService(client, sessions, logger.Named("account")),
		Feed:          feed.NewService(client, sessions, cfg.Feed.PageSize, logger.Named("feed")),
		Notifications: notification.NewPoller(client, logger.Named("notification")),
		Friends:       friends.NewService(client, logger.Named("friends")),
		Chat: chatService.NewService(
			chatService.DialRelay(cfg.Relay.URL, relayOpts, logger.Named("relay")),
			client, sessions, logger.Named("chat")),
	}
	if closer != nil {
		core.closers = append(core.closers, closer)
	}
	return core, nil
}

// Close deactivates chat and releases the session store.
func (c *Core) Close() error {
	c.Chat.Deactivate()

	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
