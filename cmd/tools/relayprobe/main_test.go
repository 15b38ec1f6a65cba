package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/config"
	"github.com/nestfeed/client/internal/relay"
	"github.com/nestfeed/client/internal/relay/relaytest"
)

func TestProbeAnnouncesAndSends(t *testing.T) {
	rl := relaytest.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := probe(ctx, zap.NewNop(), rl.URL(), "tok", "u-bob", "ping", config.RelayConfig{HandshakeTimeout: time.Second})
	require.NoError(t, err)

	setup := rl.Next(t)
	assert.Equal(t, relay.EventSetup, setup.Event)
	assert.JSONEq(t, `"tok"`, string(setup.Data))

	sent := rl.Next(t)
	assert.Equal(t, relay.EventSendMessage, sent.Event)
	assert.JSONEq(t, `{"from":"tok","to":"u-bob","message":"ping"}`, string(sent.Data))
}

func TestProbeDialFailure(t *testing.T) {
	err := probe(context.Background(), zap.NewNop(), "ws://127.0.0.1:1/ws", "tok", "", "", config.RelayConfig{HandshakeTimeout: time.Second})
	assert.Error(t, err)
}
