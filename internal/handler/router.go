package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	accountHandler "github.com/nestfeed/client/internal/handler/account"
	chatHandler "github.com/nestfeed/client/internal/handler/chat"
	feedHandler "github.com/nestfeed/client/internal/handler/feed"
	friendsHandler "github.com/nestfeed/client/internal/handler/friends"
	notificationHandler "github.com/nestfeed/client/internal/handler/notification"
	sessionHandler "github.com/nestfeed/client/internal/handler/session"
	"github.com/nestfeed/client/internal/logging"
	middlewarePkg "github.com/nestfeed/client/internal/middleware"
	"github.com/nestfeed/client/internal/service/account"
	chatService "github.com/nestfeed/client/internal/service/chat"
	"github.com/nestfeed/client/internal/service/feed"
	"github.com/nestfeed/client/internal/service/friends"
	"github.com/nestfeed/client/internal/service/notification"
	sessionService "github.com/nestfeed/client/internal/service/session"
	"github.com/nestfeed/client/pkg/utils"
)

// Services bundles the client core the gateway exposes.
type Services struct {
	Sessions      *sessionService.Manager
	Accounts      *account.Service
	Feed          *feed.Service
	Notifications *notification.Poller
	Friends       *friends.Service
	Chat          *chatService.Service
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc Services, allowedOrigins []string, logger *zap.Logger) http.Handler {
	logger = logging.OrNop(logger)
	bindSessionLifetime(svc, logger)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	checkOrigin := func(req *http.Request) bool {
		origin := req.Header.Get("Origin")
		return origin == "" || middlewarePkg.OriginAllowed(origin, allowedOrigins)
	}

	// Create handlers
	sessions := sessionHandler.New(svc.Sessions, svc.Accounts, logger)
	accounts := accountHandler.New(svc.Accounts, logger)
	posts := feedHandler.New(svc.Feed, logger)
	notifications := notificationHandler.New(svc.Notifications, logger)
	friendList := friendsHandler.New(svc.Friends, logger)
	chat := chatHandler.New(svc.Chat, checkOrigin, logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		sessions.RegisterPublicRoutes(api)
		accounts.RegisterPublicRoutes(api)

		// everything below needs a live session
		api.Group(func(authed chi.Router) {
			authed.Use(middlewarePkg.RequireSession(svc.Sessions, logger))

			sessions.RegisterRoutes(authed)
			accounts.RegisterRoutes(authed)
			posts.RegisterRoutes(authed)
			notifications.RegisterRoutes(authed)
			friendList.RegisterRoutes(authed)
			chat.RegisterRoutes(authed)
		})
	})

	return r
}

// bindSessionLifetime drops everything tied to the user once their session
// ends, so a later login never sees the previous user's chat, feed or
// notifications.
func bindSessionLifetime(svc Services, logger *zap.Logger) {
	svc.Sessions.OnEnd(func() {
		if svc.Chat != nil {
			svc.Chat.Deactivate()
		}
		if svc.Feed != nil {
			svc.Feed.Clear()
		}
		if svc.Notifications != nil {
			svc.Notifications.Clear()
		}
		logger.Debug("session ended, per-user state released")
	})
}
