package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/logging"
	"github.com/nestfeed/client/internal/model/chat"
	"github.com/nestfeed/client/internal/model/session"
	"github.com/nestfeed/client/internal/model/social"
	"github.com/nestfeed/client/internal/relay"
)

var (
	ErrAlreadyActive        = errors.New("chat session already active")
	ErrNotActive            = errors.New("chat session not active")
	ErrEmptyMessage         = errors.New("message is empty")
	ErrNoCorrespondent      = errors.New("no correspondent selected")
	ErrUnknownCorrespondent = errors.New("correspondent not found")
	ErrSelectionSuperseded  = errors.New("conversation changed before history arrived")
	ErrActivationCanceled   = errors.New("chat session ended while activating")
)

// Relay is the live channel used by an active chat session.
type Relay interface {
	Announce(token string) error
	SendMessage(msg chat.OutboundMessage) error
	OnMessage(h relay.Handler)
	Off()
	Done() <-chan struct{}
	Close() error
}

// RelayDialer opens one relay connection.
type RelayDialer func(ctx context.Context) (Relay, error)

// DialRelay returns a RelayDialer backed by the websocket relay client.
func DialRelay(url string, opts relay.Options, logger *zap.Logger) RelayDialer {
	return func(ctx context.Context) (Relay, error) {
		client, err := relay.Dial(ctx, url, opts, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// API is the slice of the REST API the chat session needs.
type API interface {
	AllFriends(ctx context.Context) ([]social.User, error)
	Conversation(ctx context.Context, userID string) ([]chat.WireMessage, error)
}

// SessionSource hands out the live session.
type SessionSource interface {
	Current(ctx context.Context) (session.Session, error)
}

// Service owns one chat session: a relay connection, a selected
// correspondent and the visible message list for that correspondent.
type Service struct {
	dial     RelayDialer
	api      API
	sessions SessionSource
	logger   *zap.Logger
	now      func() time.Time

	mu         sync.Mutex
	relay      Relay
	activating bool
	self       session.Identity
	directory  *chat.Directory
	selected   string
	messages   []chat.Message
	generation uint64

	subMu       sync.Mutex
	subscribers map[int]chan Event
	nextSub     int
}

// NewService wires the chat session component.
func NewService(dial RelayDialer, api API, sessions SessionSource, logger *zap.Logger) *Service {
	return &Service{
		dial:        dial,
		api:         api,
		sessions:    sessions,
		logger:      logging.OrNop(logger).With(zap.String("component", "chat")),
		now:         time.Now,
		directory:   chat.NewDirectory(nil),
		subscribers: make(map[int]chan Event),
	}
}

// Activate loads the correspondents, opens the relay, announces the session
// and registers the inbound handler. No lock is held across the network calls;
// a Deactivate that lands meanwhile cancels the activation.
func (s *Service) Activate(ctx context.Context) error {
	s.mu.Lock()
	if s.relay != nil || s.activating {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	s.activating = true
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	conn, current, friends, err := s.connect(ctx)

	s.mu.Lock()
	s.activating = false
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.generation != gen {
		s.mu.Unlock()
		conn.Close()
		s.logger.Info("chat activation abandoned, session ended meanwhile")
		return ErrActivationCanceled
	}
	s.relay = conn
	s.self = current.Identity
	s.directory.Replace(correspondentsFrom(friends, current.Identity.ID))
	s.selected = ""
	s.messages = nil
	s.generation++
	s.mu.Unlock()

	go s.watch(conn)

	s.logger.Info("chat session activated", zap.Int("correspondents", len(friends)))
	return nil
}

// connect does the network half of Activate. The returned relay already has
// the inbound handler; receive ignores it until it is installed.
func (s *Service) connect(ctx context.Context) (Relay, session.Session, []social.User, error) {
	current, err := s.sessions.Current(ctx)
	if err != nil {
		return nil, session.Session{}, nil, err
	}

	friends, err := s.api.AllFriends(ctx)
	if err != nil {
		s.logger.Warn("failed to load correspondents", zap.Error(err))
		return nil, session.Session{}, nil, fmt.Errorf("load correspondents: %w", err)
	}

	conn, err := s.dial(ctx)
	if err != nil {
		s.logger.Warn("relay dial failed", zap.Error(err))
		return nil, session.Session{}, nil, fmt.Errorf("dial relay: %w", err)
	}
	if err := conn.Announce(current.Token); err != nil {
		s.logger.Warn("relay announce failed", zap.Error(err))
		conn.Close()
		return nil, session.Session{}, nil, fmt.Errorf("announce: %w", err)
	}

	conn.OnMessage(func(msg chat.WireMessage) {
		s.receive(conn, msg)
	})
	return conn, current, friends, nil
}

func correspondentsFrom(users []social.User, selfID string) []chat.Correspondent {
	out := make([]chat.Correspondent, 0, len(users))
	for _, u := range users {
		if u.ID == "" || u.ID == selfID {
			continue
		}
		out = append(out, chat.Correspondent{ID: u.ID, Name: u.DisplayName(), ProfilePic: u.ProfilePic})
	}
	return out
}

// Deactivate unregisters the inbound handler and closes the relay. Safe to
// call when not active, and cancels an Activate still in flight.
func (s *Service) Deactivate() {
	s.mu.Lock()
	conn := s.relay
	s.relay = nil
	s.self = session.Identity{}
	s.selected = ""
	s.messages = nil
	s.generation++
	s.directory.Replace(nil)
	s.mu.Unlock()

	if conn == nil {
		return
	}

	// the read goroutine may be blocked on s.mu inside receive, so the
	// relay is closed only after the lock is released
	conn.Off()
	if err := conn.Close(); err != nil {
		s.logger.Debug("relay close returned error", zap.Error(err))
	}
	s.publish(Event{Type: EventDisconnected})
	s.logger.Info("chat session deactivated")
}

// watch notices a relay that dropped on its own. There is no reconnection;
// the session simply becomes inactive.
func (s *Service) watch(conn Relay) {
	<-conn.Done()

	s.mu.Lock()
	if s.relay != conn {
		s.mu.Unlock()
		return
	}
	s.relay = nil
	s.generation++
	s.mu.Unlock()

	conn.Off()
	conn.Close()
	s.logger.Warn("relay connection lost")
	s.publish(Event{Type: EventDisconnected})
}

// Active reports whether a relay connection is open.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relay != nil
}

// Correspondents lists who can be selected.
func (s *Service) Correspondents() []chat.Correspondent {
	return s.directory.List()
}

// Selected returns the active correspondent, if any.
func (s *Service) Selected() (chat.Correspondent, bool) {
	s.mu.Lock()
	id := s.selected
	s.mu.Unlock()
	if id == "" {
		return chat.Correspondent{}, false
	}
	return s.directory.FindByID(id)
}

// Select switches the conversation and replaces the visible list with the
// fetched history, oldest first.
func (s *Service) Select(ctx context.Context, correspondentID string) ([]chat.Message, error) {
	s.mu.Lock()
	if s.relay == nil {
		s.mu.Unlock()
		return nil, ErrNotActive
	}
	if _, ok := s.directory.FindByID(correspondentID); !ok {
		s.mu.Unlock()
		return nil, ErrUnknownCorrespondent
	}
	s.generation++
	gen := s.generation
	s.selected = correspondentID
	s.messages = nil
	self := s.self
	s.mu.Unlock()

	history, err := s.api.Conversation(ctx, correspondentID)
	if err != nil {
		s.logger.Warn("failed to load conversation",
			zap.String("correspondent", correspondentID), zap.Error(err))
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	// the API returns newest first
	messages := make([]chat.Message, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		messages = append(messages, s.fromWire(history[i], correspondentID, self))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		s.logger.Debug("discarding stale conversation", zap.String("correspondent", correspondentID))
		return nil, ErrSelectionSuperseded
	}
	s.messages = messages
	snapshot := cloneMessages(messages)
	s.publish(Event{Type: EventConversation, ConversationID: correspondentID, Messages: snapshot})
	return cloneMessages(messages), nil
}

// Send pushes text to the selected correspondent and appends a pending local
// copy. The relay does not acknowledge.
func (s *Service) Send(ctx context.Context, text string) (chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		return chat.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	conn, selected := s.relay, s.selected
	s.mu.Unlock()
	if conn == nil {
		return chat.Message{}, ErrNotActive
	}
	if selected == "" {
		return chat.Message{}, ErrNoCorrespondent
	}

	current, err := s.sessions.Current(ctx)
	if err != nil {
		return chat.Message{}, err
	}

	// the pending copy goes in before the write so that an echo racing the
	// write finds it
	s.mu.Lock()
	if s.relay != conn {
		s.mu.Unlock()
		return chat.Message{}, ErrNotActive
	}
	if s.selected != selected {
		s.mu.Unlock()
		return chat.Message{}, ErrSelectionSuperseded
	}
	msg := chat.Message{
		ID:             uuid.NewString(),
		ConversationID: selected,
		Sender:         chat.SenderSelf,
		Content:        text,
		Pending:        true,
		CreatedAt:      s.now().UTC(),
	}
	s.messages = append(s.messages, msg)
	s.publish(Event{Type: EventMessage, ConversationID: selected, Message: &msg})
	s.mu.Unlock()

	// a blocked write must not hold up receive or the snapshot readers
	err = conn.SendMessage(chat.OutboundMessage{
		From:    current.Token,
		To:      selected,
		Message: text,
	})
	if err == nil {
		return msg, nil
	}

	s.logger.Warn("relay send failed", zap.Error(err))
	s.mu.Lock()
	if s.removeMessage(msg.ID) {
		s.publish(Event{Type: EventConversation, ConversationID: selected, Messages: cloneMessages(s.messages)})
	}
	s.mu.Unlock()
	return chat.Message{}, fmt.Errorf("send message: %w", err)
}

func (s *Service) removeMessage(id string) bool {
	for i, msg := range s.messages {
		if msg.ID == id {
			s.messages = append(s.messages[:i:i], s.messages[i+1:]...)
			return true
		}
	}
	return false
}

// Messages returns a snapshot of the visible conversation.
func (s *Service) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMessages(s.messages)
}

func (s *Service) receive(conn Relay, wire chat.WireMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.relay != conn {
		return
	}
	selected := s.selected
	fromSelf := isSelf(wire.From, s.self)

	belongs := selected != "" &&
		((!fromSelf && wire.From.ID == selected) || (fromSelf && wire.To.ID == selected))
	if !belongs {
		s.logger.Debug("dropping message outside the open conversation",
			zap.String("from", wire.From.ID), zap.String("to", wire.To.ID))
		return
	}

	if fromSelf {
		if idx := s.oldestPending(wire.Message); idx >= 0 {
			confirmed := &s.messages[idx]
			confirmed.Pending = false
			if wire.ID != "" {
				confirmed.ID = wire.ID
			}
			if !wire.CreatedAt.IsZero() {
				confirmed.CreatedAt = wire.CreatedAt
			}
			msg := *confirmed
			s.publish(Event{Type: EventConfirmed, ConversationID: selected, Message: &msg})
			return
		}
	}

	msg := s.fromWire(wire, selected, s.self)
	s.messages = append(s.messages, msg)
	s.publish(Event{Type: EventMessage, ConversationID: selected, Message: &msg})
}

func (s *Service) oldestPending(content string) int {
	for i, msg := range s.messages {
		if msg.Pending && msg.Content == content {
			return i
		}
	}
	return -1
}

func (s *Service) fromWire(wire chat.WireMessage, conversationID string, self session.Identity) chat.Message {
	msg := chat.Message{
		ID:             wire.ID,
		ConversationID: conversationID,
		Sender:         chat.SenderOther,
		Content:        wire.Message,
		CreatedAt:      wire.CreatedAt,
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now().UTC()
	}
	if isSelf(wire.From, self) {
		msg.Sender = chat.SenderSelf
	}
	return msg
}

// isSelf compares ids when the session knows its own id and falls back to the
// display name otherwise.
func isSelf(from chat.Party, self session.Identity) bool {
	if self.ID != "" {
		return from.ID == self.ID
	}
	return from.Name != "" && from.Name == self.DisplayName
}

func cloneMessages(in []chat.Message) []chat.Message {
	out := make([]chat.Message, len(in))
	copy(out, in)
	return out
}
