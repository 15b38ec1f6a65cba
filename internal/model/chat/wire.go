package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Party identifies a message endpoint. The API sends either a bare id or a
// populated user object, so both forms decode into Party.
type Party struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON accepts `"id"` and `{"_id": "...", "name": "..."}`.
func (p *Party) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = Party{}
		return nil
	}

	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*p = Party{ID: id}
		return nil
	}

	var obj struct {
		ID   string `json:"_id"`
		Alt  string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode party: %w", err)
	}
	if obj.ID == "" {
		obj.ID = obj.Alt
	}
	*p = Party{ID: obj.ID, Name: obj.Name}
	return nil
}

// WireMessage is a chat message as returned by the conversation endpoint and
// pushed by the relay.
type WireMessage struct {
	ID        string    `json:"_id"`
	From      Party     `json:"from"`
	To        Party     `json:"to"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// OutboundMessage is what the client pushes to the relay. From carries the
// sender's session token; the relay resolves it to an identity.
type OutboundMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message"`
}
