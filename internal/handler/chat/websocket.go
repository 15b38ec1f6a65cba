package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/handler/httperr"
	chatService "github.com/nestfeed/client/internal/service/chat"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
	sendBuffer     = 32
)

// inboundFrame 前端通过websocket发来的指令
type inboundFrame struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	Message string `json:"message,omitempty"`
}

// outboundFrame 推送给前端的帧
type outboundFrame struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// handleWebSocket 双向通道：推送聊天事件，同时接受select/send指令
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	events, cancel := h.chatSvc.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	send := make(chan outboundFrame, sendBuffer)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer stop()
		h.writePump(ctx, conn, send, events)
	}()

	send <- outboundFrame{Type: "state", Data: h.state()}
	h.readPump(ctx, conn, send)

	stop()
	<-writerDone
	conn.Close()
	h.logger.Debug("chat websocket closed")
}

func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, send chan<- outboundFrame) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Info("websocket read failed", zap.Error(err))
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.reply(ctx, send, outboundFrame{Type: "error", Error: "invalid frame"})
			continue
		}
		h.reply(ctx, send, h.dispatch(ctx, frame))
	}
}

func (h *Handler) dispatch(ctx context.Context, frame inboundFrame) outboundFrame {
	switch frame.Type {
	case "select":
		messages, err := h.chatSvc.Select(ctx, frame.UserID)
		if err != nil {
			return errorFrame(err)
		}
		return outboundFrame{Type: "selected", Data: messages}
	case "send":
		msg, err := h.chatSvc.Send(ctx, frame.Message)
		if err != nil {
			return errorFrame(err)
		}
		return outboundFrame{Type: "sent", Data: msg}
	case "state":
		return outboundFrame{Type: "state", Data: h.state()}
	default:
		return outboundFrame{Type: "error", Error: "unsupported frame type: " + frame.Type}
	}
}

func errorFrame(err error) outboundFrame {
	if httperr.IsSessionError(err) {
		return outboundFrame{Type: "error", Error: err.Error(), Data: map[string]string{"redirect": httperr.LoginPath}}
	}
	if errors.Is(err, context.Canceled) {
		return outboundFrame{Type: "error", Error: "canceled"}
	}
	return outboundFrame{Type: "error", Error: err.Error()}
}

func (h *Handler) reply(ctx context.Context, send chan<- outboundFrame, frame outboundFrame) {
	select {
	case send <- frame:
	case <-ctx.Done():
	}
}

func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, send <-chan outboundFrame, events <-chan chatService.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(v interface{}) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(v); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-send:
			if !write(frame) {
				conn.Close()
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !write(outboundFrame{Type: string(ev.Type), Data: ev}) {
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
