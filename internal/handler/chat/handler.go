package chat

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/handler/httperr"
	"github.com/nestfeed/client/internal/logging"
	"github.com/nestfeed/client/internal/model/chat"
	chatService "github.com/nestfeed/client/internal/service/chat"
	"github.com/nestfeed/client/pkg/utils"
)

// heartbeatInterval SSE心跳间隔
const heartbeatInterval = 15 * time.Second

// Handler 聊天会话的HTTP处理器
type Handler struct {
	chatSvc  *chatService.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New 创建聊天处理器，checkOrigin为空时只接受同源websocket
func New(chatSvc *chatService.Service, checkOrigin func(*http.Request) bool, logger *zap.Logger) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		logger:  logging.OrNop(logger),
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/activate", h.handleActivate)
	r.Post("/chat/deactivate", h.handleDeactivate)
	r.Get("/chat/correspondents", h.handleCorrespondents)
	r.Post("/chat/select/{userID}", h.handleSelect)
	r.Get("/chat/messages", h.handleMessages)
	r.Post("/chat/send", h.handleSend)
	r.Get("/chat/stream", h.handleStream)
	r.Get("/chat/ws", h.handleWebSocket)
}

type stateResponse struct {
	Active         bool                 `json:"active"`
	Correspondents []chat.Correspondent `json:"correspondents"`
	Selected       *chat.Correspondent  `json:"selected,omitempty"`
	Messages       []chat.Message       `json:"messages"`
}

func (h *Handler) state() stateResponse {
	out := stateResponse{
		Active:         h.chatSvc.Active(),
		Correspondents: h.chatSvc.Correspondents(),
		Messages:       h.chatSvc.Messages(),
	}
	if selected, ok := h.chatSvc.Selected(); ok {
		out.Selected = &selected
	}
	return out
}

// handleActivate 建立中继连接，已激活时视为成功
func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	err := h.chatSvc.Activate(r.Context())
	if err != nil && !errors.Is(err, chatService.ErrAlreadyActive) {
		httperr.Write(w, h.logger, err, "Failed to connect to chat")
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.state())
}

// handleDeactivate 关闭中继连接
func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.chatSvc.Deactivate()
	utils.RespondJSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleCorrespondents(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{"correspondents": h.chatSvc.Correspondents()})
}

// handleSelect 切换会话对象并返回完整历史
func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatSvc.Select(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		httperr.Write(w, h.logger, err, "Failed to load conversation")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.state())
}

// handleSend 发送消息，返回本地待确认的副本
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	msg, err := h.chatSvc.Send(r.Context(), payload.Message)
	if err != nil {
		httperr.Write(w, h.logger, err, "Failed to send message")
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, map[string]any{"message": msg})
}

// handleStream 以SSE推送聊天事件，先发送一次当前会话快照；中继断开或会话结束后关闭流
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, cancel := h.chatSvc.Subscribe()
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	h.logger.Debug("chat stream opened")

	if err := utils.SendSSEEvent(w, flusher, "state", h.state()); err != nil {
		return
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("chat stream closed")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(ev.Type), ev); err != nil {
				h.logger.Debug("chat stream write failed", zap.Error(err))
				return
			}
			if ev.Type == chatService.EventDisconnected {
				h.logger.Debug("chat stream ended with the relay")
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
