package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nestfeed/client/internal/model/chat"
)

// fakeRelay records inbound envelopes and lets the test push frames.
type fakeRelay struct {
	srv      *httptest.Server
	received chan Envelope
	conns    chan *websocket.Conn
}

func newFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	f := &fakeRelay{
		received: make(chan Envelope, 16),
		conns:    make(chan *websocket.Conn, 1),
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		f.conns <- conn

		for {
			var env Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			f.received <- env
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeRelay) url() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func (f *fakeRelay) next(t *testing.T) Envelope {
	t.Helper()
	select {
	case env := <-f.received:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relay frame")
		return Envelope{}
	}
}

func TestAnnounceAndSend(t *testing.T) {
	relay := newFakeRelay(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	client, err := Dial(context.Background(), relay.url(), DefaultOptions(), nil)
	require.NoError(t, err)

	require.NoError(t, client.Announce("tok-1"))
	env := relay.next(t)
	assert.Equal(t, EventSetup, env.Event)
	assert.JSONEq(t, `"tok-1"`, string(env.Data))

	require.NoError(t, client.SendMessage(chat.OutboundMessage{From: "tok-1", To: "u1", Message: "hi"}))
	env = relay.next(t)
	assert.Equal(t, EventSendMessage, env.Event)

	var out chat.OutboundMessage
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, chat.OutboundMessage{From: "tok-1", To: "u1", Message: "hi"}, out)

	require.NoError(t, client.Close())
	assert.NoError(t, client.Close())
	assert.ErrorIs(t, client.SendMessage(chat.OutboundMessage{}), ErrClosed)
}

func TestInboundDispatchSkipsMalformedFrames(t *testing.T) {
	relay := newFakeRelay(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	client, err := Dial(context.Background(), relay.url(), DefaultOptions(), nil)
	require.NoError(t, err)
	defer client.Close()

	got := make(chan chat.WireMessage, 4)
	client.OnMessage(func(msg chat.WireMessage) { got <- msg })

	conn := <-relay.conns
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"receive_message","data":{"from":42}}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"typing","data":{}}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"receive_message","data":{"_id":"m1","from":{"_id":"u1","name":"Alice"},"to":"me","message":"hello"}}`)))

	select {
	case msg := <-got:
		assert.Equal(t, "m1", msg.ID)
		assert.Equal(t, "u1", msg.From.ID)
		assert.Equal(t, "hello", msg.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no inbound message dispatched")
	}
	assert.Empty(t, got)
}

func TestOffStopsDispatch(t *testing.T) {
	relay := newFakeRelay(t)
	client, err := Dial(context.Background(), relay.url(), Options{HandshakeTimeout: time.Second}, nil)
	require.NoError(t, err)
	defer client.Close()

	got := make(chan chat.WireMessage, 1)
	client.OnMessage(func(msg chat.WireMessage) { got <- msg })
	client.Off()

	conn := <-relay.conns
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"receive_message","data":{"_id":"m1","from":"u1","to":"me","message":"x"}}`)))

	select {
	case <-got:
		t.Fatal("handler invoked after Off")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestServerDropClosesDone(t *testing.T) {
	relay := newFakeRelay(t)
	client, err := Dial(context.Background(), relay.url(), DefaultOptions(), nil)
	require.NoError(t, err)
	defer client.Close()

	conn := <-relay.conns
	conn.Close()

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after server drop")
	}
	assert.ErrorIs(t, client.Announce("tok"), ErrClosed)
}

func TestDialFailure(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/ws", Options{HandshakeTimeout: 200 * time.Millisecond}, nil)
	assert.Error(t, err)
}
