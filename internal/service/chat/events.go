package chat

import (
	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/model/chat"
)

// EventType names what changed in the chat session.
type EventType string

const (
	EventMessage      EventType = "message"
	EventConfirmed    EventType = "confirmed"
	EventConversation EventType = "conversation"
	EventDisconnected EventType = "disconnected"
)

// Event is pushed to subscribers whenever the visible conversation changes.
type Event struct {
	Type           EventType      `json:"type"`
	ConversationID string         `json:"conversationId,omitempty"`
	Message        *chat.Message  `json:"message,omitempty"`
	Messages       []chat.Message `json:"messages,omitempty"`
}

const defaultSubscriberBuffer = 32

// Subscribe registers a listener. The returned cancel func unregisters it and
// closes the channel. Slow listeners miss events rather than block the session.
func (s *Service) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, defaultSubscriberBuffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	s.subMu.Unlock()

	var once bool
	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if once {
			return
		}
		once = true
		delete(s.subscribers, id)
		close(ch)
	}
	return ch, cancel
}

func (s *Service) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for id, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			s.logger.Warn("chat subscriber is full, dropping event",
				zap.Int("subscriber", id), zap.String("event", string(ev.Type)))
		}
	}
}
