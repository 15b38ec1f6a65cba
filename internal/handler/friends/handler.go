package friends

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/handler/httperr"
	"github.com/nestfeed/client/internal/logging"
	"github.com/nestfeed/client/internal/service/friends"
	"github.com/nestfeed/client/pkg/utils"
)

// Handler 好友与好友请求的HTTP处理器
type Handler struct {
	friends *friends.Service
	logger  *zap.Logger
}

// New 创建好友处理器
func New(friendsSvc *friends.Service, logger *zap.Logger) *Handler {
	return &Handler{friends: friendsSvc, logger: logging.OrNop(logger)}
}

// RegisterRoutes 注册好友相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/friends", h.handleFriends)
	r.Get("/friends/sidebar", h.handleSidebar)
	r.Get("/friend-requests", h.handleRequests)
	r.Post("/friend-requests", h.handleSend)
	r.Post("/friend-requests/{requestID}/respond", h.handleRespond)
}

func (h *Handler) handleFriends(w http.ResponseWriter, r *http.Request) {
	list, err := h.friends.Friends(r.Context())
	if err != nil {
		httperr.Write(w, h.logger, err, "Error fetching friends")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"friends": list})
}

func (h *Handler) handleSidebar(w http.ResponseWriter, r *http.Request) {
	list, err := h.friends.Sidebar(r.Context())
	if err != nil {
		httperr.Write(w, h.logger, err, "Error fetching friends")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"friends": list})
}

// handleRequests 返回按状态分组的好友请求
func (h *Handler) handleRequests(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.friends.Requests(r.Context())
	if err != nil {
		httperr.Write(w, h.logger, err, "Error fetching friend requests")
		return
	}
	utils.RespondJSON(w, http.StatusOK, buckets)
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Receiver string `json:"receiver"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}
	if err := h.friends.Send(r.Context(), payload.Receiver); err != nil {
		httperr.Write(w, h.logger, err, "Failed to send friend request")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]string{"status": "sent"})
}

// handleRespond 接受或拒绝请求，返回刷新后的列表
func (h *Handler) handleRespond(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status string `json:"status"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	out, err := h.friends.Respond(r.Context(), chi.URLParam(r, "requestID"), payload.Status)
	if err != nil {
		httperr.Write(w, h.logger, err, "Error updating friend request")
		return
	}
	utils.RespondJSON(w, http.StatusOK, out)
}
