package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireMessageDecodesPopulatedAndBareParties(t *testing.T) {
	raw := `{"_id":"m1","from":{"_id":"u1","name":"Alice"},"to":"u2","message":"hi"}`

	var msg WireMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, Party{ID: "u1", Name: "Alice"}, msg.From)
	assert.Equal(t, Party{ID: "u2"}, msg.To)
	assert.Equal(t, "hi", msg.Message)
}

func TestPartyAcceptsAltIDAndNull(t *testing.T) {
	var p Party
	require.NoError(t, json.Unmarshal([]byte(`{"id":"u9","name":"Bob"}`), &p))
	assert.Equal(t, "u9", p.ID)

	require.NoError(t, json.Unmarshal([]byte(`null`), &p))
	assert.Equal(t, Party{}, p)
}

func TestDirectoryFindByID(t *testing.T) {
	dir := NewDirectory([]Correspondent{{ID: "u1", Name: "Alice"}})

	got, ok := dir.FindByID("u1")
	require.True(t, ok)
	assert.Equal(t, "Alice", got.Name)

	_, ok = dir.FindByID("missing")
	assert.False(t, ok)

	dir.Replace(nil)
	assert.Empty(t, dir.List())
}
