package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/handler/httperr"
	"github.com/nestfeed/client/internal/logging"
	"github.com/nestfeed/client/internal/model/session"
	"github.com/nestfeed/client/pkg/utils"
)

type sessionKey struct{}

// SessionSource 提供当前会话
type SessionSource interface {
	Current(ctx context.Context) (session.Session, error)
}

// RequireSession 拦截没有有效会话的请求，返回401并提示跳转登录页。
// 过期会话在这里被清除，之后的请求不会携带过期token。
func RequireSession(src SessionSource, logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logging.OrNop(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current, err := src.Current(r.Context())
			if err != nil {
				if httperr.IsSessionError(err) {
					utils.RespondRedirect(w, http.StatusUnauthorized, err.Error(), httperr.LoginPath)
					return
				}
				logger.Error("session lookup failed", zap.Error(err))
				utils.RespondError(w, http.StatusInternalServerError, "session unavailable")
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, current)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFrom 取出RequireSession放入的会话
func SessionFrom(ctx context.Context) (session.Session, bool) {
	current, ok := ctx.Value(sessionKey{}).(session.Session)
	return current, ok
}
