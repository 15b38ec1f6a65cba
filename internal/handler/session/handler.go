package session

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/handler/httperr"
	"github.com/nestfeed/client/internal/logging"
	"github.com/nestfeed/client/internal/middleware"
	"github.com/nestfeed/client/internal/model/session"
	"github.com/nestfeed/client/internal/service/account"
	sessionService "github.com/nestfeed/client/internal/service/session"
	"github.com/nestfeed/client/pkg/utils"
)

// Handler 会话与账号入口的HTTP处理器
type Handler struct {
	sessions *sessionService.Manager
	accounts *account.Service
	logger   *zap.Logger
}

// New 创建会话处理器。会话结束时的清理由会话管理器的OnEnd钩子完成
func New(sessions *sessionService.Manager, accounts *account.Service, logger *zap.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		accounts: accounts,
		logger:   logging.OrNop(logger),
	}
}

// RegisterPublicRoutes 注册无需登录的路由
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/session/login", h.handleLogin)
	r.Post("/session/logout", h.handleLogout)
	r.Post("/session/register", h.handleRegister)
	r.Post("/password/otp", h.handleSendOTP)
	r.Post("/password/reset", h.handleResetPassword)
}

// RegisterRoutes 注册需要会话的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session", h.handleCurrent)
}

type sessionResponse struct {
	Session   session.Session `json:"session"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

func (h *Handler) view(current session.Session) sessionResponse {
	return sessionResponse{Session: current, ExpiresAt: current.ExpiresAt(h.sessions.Retention())}
}

// handleCurrent 返回当前会话，过期会话已被会话中间件拦截
func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	current, ok := middleware.SessionFrom(r.Context())
	if !ok {
		var err error
		if current, err = h.sessions.Current(r.Context()); err != nil {
			httperr.Write(w, h.logger, err, "session unavailable")
			return
		}
	}
	utils.RespondJSON(w, http.StatusOK, h.view(current))
}

// handleLogin 登录并保存会话，上一个会话的聊天与列表状态被丢弃
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	current, err := h.sessions.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		httperr.Write(w, h.logger, err, "Login failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.view(current))
}

// handleLogout 清空会话，聊天连接与缓存列表随之释放
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context()); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"redirect": httperr.LoginPath})
}

// handleRegister 注册新账号
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload account.Registration
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	msg, err := h.accounts.Register(r.Context(), payload)
	if err != nil {
		httperr.Write(w, h.logger, err, "Registration failed")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]string{"message": msg})
}

// handleSendOTP 发送重置密码验证码
func (h *Handler) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	msg, err := h.accounts.SendOTP(r.Context(), payload.Email)
	if err != nil {
		httperr.Write(w, h.logger, err, "Failed to send OTP")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// handleResetPassword 使用验证码重置密码
func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload account.PasswordReset
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	msg, err := h.accounts.ResetPassword(r.Context(), payload)
	if err != nil {
		httperr.Write(w, h.logger, err, "Invalid OTP")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": msg})
}
