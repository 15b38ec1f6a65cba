// Package relaytest runs an in-memory message relay for tests.
package relaytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nestfeed/client/internal/model/chat"
	"github.com/nestfeed/client/internal/relay"
)

// Server accepts relay connections and records every envelope it receives.
type Server struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    []*websocket.Conn
	writeMu  sync.Mutex
	received chan relay.Envelope
}

// New starts a relay that is shut down when t finishes.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		received: make(chan relay.Envelope, 64),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	t.Cleanup(s.closeConns)
	return s
}

// URL is the websocket URL of the relay.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

// Received yields envelopes in arrival order.
func (s *Server) Received() <-chan relay.Envelope {
	return s.received
}

// Next waits for the next envelope.
func (s *Server) Next(t testing.TB) relay.Envelope {
	t.Helper()
	select {
	case env := <-s.received:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("relay received nothing")
		return relay.Envelope{}
	}
}

// Connections reports how many clients are connected.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Push delivers msg to every connected client as receive_message.
func (s *Server) Push(msg chat.WireMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	env := relay.Envelope{Event: relay.EventReceiveMessage, Data: data}

	s.mu.Lock()
	conns := append([]*websocket.Conn(nil), s.conns...)
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	for _, conn := range conns {
		if err := conn.WriteJSON(env); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		for i, c := range s.conns {
			if c == conn {
				s.conns = append(s.conns[:i], s.conns[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		var env relay.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		select {
		case s.received <- env:
		default:
		}
	}
}

func (s *Server) closeConns() {
	s.mu.Lock()
	conns := append([]*websocket.Conn(nil), s.conns...)
	s.mu.Unlock()
	for _, conn := range conns {
		conn.Close()
	}
}
