package notification

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/handler/httperr"
	"github.com/nestfeed/client/internal/logging"
	"github.com/nestfeed/client/internal/model/social"
	"github.com/nestfeed/client/internal/service/notification"
	"github.com/nestfeed/client/pkg/utils"
)

// Handler 通知的HTTP处理器
type Handler struct {
	poller *notification.Poller
	logger *zap.Logger
}

// New 创建通知处理器
func New(poller *notification.Poller, logger *zap.Logger) *Handler {
	return &Handler{poller: poller, logger: logging.OrNop(logger)}
}

// RegisterRoutes 注册通知相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/notifications", h.handleList)
	r.Get("/notifications/unread-count", h.handleUnreadCount)
	r.Post("/notifications/{id}/check", h.handleCheck)
	r.Post("/notifications/check-all", h.handleCheckAll)
}

type listResponse struct {
	Notifications []social.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unreadCount"`
}

func (h *Handler) respondList(w http.ResponseWriter, unreadOnly bool) {
	utils.RespondJSON(w, http.StatusOK, listResponse{
		Notifications: h.poller.List(unreadOnly),
		UnreadCount:   h.poller.UnreadCount(),
	})
}

// handleList 首次访问或refresh=1时从服务端拉取，filter=unread只返回未读
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !h.poller.Loaded() || query.Get("refresh") == "1" {
		if _, err := h.poller.Refresh(r.Context()); err != nil {
			httperr.Write(w, h.logger, err, "Error fetching notifications")
			return
		}
	}
	h.respondList(w, query.Get("filter") == "unread")
}

// handleUnreadCount 服务端未读数
func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.poller.ServerUnreadCount(r.Context())
	if err != nil {
		httperr.Write(w, h.logger, err, "Error fetching unread count")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]int{"unreadCount": count})
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.poller.MarkChecked(r.Context(), chi.URLParam(r, "id")); err != nil {
		httperr.Write(w, h.logger, err, "Error marking notification")
		return
	}
	h.respondList(w, false)
}

func (h *Handler) handleCheckAll(w http.ResponseWriter, r *http.Request) {
	if err := h.poller.MarkAllChecked(r.Context()); err != nil {
		httperr.Write(w, h.logger, err, "Error marking all notifications")
		return
	}
	h.respondList(w, false)
}
