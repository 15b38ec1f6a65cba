package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/logging"
	"github.com/nestfeed/client/internal/model/chat"
)

// Relay event names.
const (
	EventSetup          = "setup"
	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
)

// ErrClosed is returned when writing to a closed relay connection.
var ErrClosed = errors.New("relay connection closed")

// Envelope frames every relay event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives inbound chat messages on the relay's read goroutine.
// It must not call Close.
type Handler func(chat.WireMessage)

// Options tunes the relay connection.
type Options struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration // 0 disables keepalive pings and read deadlines
	Header           http.Header
}

// DefaultOptions returns the stock connection options.
func DefaultOptions() Options {
	return Options{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// Client is one live connection to the message relay. There is no reconnection:
// once the socket drops, the client is done.
type Client struct {
	conn   *websocket.Conn
	opts   Options
	logger *zap.Logger

	writeMu sync.Mutex

	handlerMu sync.RWMutex
	handler   Handler

	closeOnce sync.Once
	doneOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// Dial opens the relay connection and starts its read loop.
func Dial(ctx context.Context, url string, opts Options, logger *zap.Logger) (*Client, error) {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout: opts.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	c := &Client{
		conn:   conn,
		opts:   opts,
		logger: logging.OrNop(logger).With(zap.String("relay", url)),
		done:   make(chan struct{}),
	}

	if opts.PingInterval > 0 {
		readTimeout := 2 * opts.PingInterval
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(readTimeout))
			return nil
		})

		c.wg.Add(1)
		go c.pingLoop()
	}

	c.wg.Add(1)
	go c.readLoop()

	c.logger.Debug("relay connected")
	return c, nil
}

// Announce tells the relay who this connection belongs to.
func (c *Client) Announce(token string) error {
	return c.Emit(EventSetup, token)
}

// SendMessage pushes a chat message. No acknowledgment is awaited.
func (c *Client) SendMessage(msg chat.OutboundMessage) error {
	return c.Emit(EventSendMessage, msg)
}

// OnMessage registers the single inbound handler, replacing any previous one.
func (c *Client) OnMessage(h Handler) {
	c.handlerMu.Lock()
	c.handler = h
	c.handlerMu.Unlock()
}

// Off unregisters the inbound handler.
func (c *Client) Off() {
	c.OnMessage(nil)
}

// Done is closed once the connection has shut down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Emit writes one event envelope.
func (c *Client) Emit(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	if err := c.conn.WriteJSON(Envelope{Event: event, Data: payload}); err != nil {
		return fmt.Errorf("write %s: %w", event, err)
	}
	return nil
}

// Close shuts the connection down and waits for its goroutines. Safe to call twice.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.Off()
		c.markDone()

		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()

		err = c.conn.Close()
		c.wg.Wait()
		c.logger.Debug("relay closed")
	})
	return err
}

func (c *Client) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	defer c.markDone()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Warn("relay read failed", zap.Error(err))
				} else {
					c.logger.Info("relay connection ended", zap.Error(err))
				}
			}
			return
		}

		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("malformed relay frame", zap.Error(err), zap.Int("bytes", len(data)))
		return
	}

	if env.Event != EventReceiveMessage {
		c.logger.Debug("ignoring relay event", zap.String("event", env.Event))
		return
	}

	var msg chat.WireMessage
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		c.logger.Warn("malformed inbound message", zap.Error(err))
		return
	}

	c.handlerMu.RLock()
	handler := c.handler
	c.handlerMu.RUnlock()

	if handler != nil {
		handler(msg)
	}
}

func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Info("relay ping failed", zap.Error(err))
				return
			}
		}
	}
}
