// Package protocol is the signaling wire format: a JSON envelope with a type tag
// and an object payload. Payload contents are never interpreted.
package protocol

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/dkeye/Telemed/internal/core"
	"github.com/dkeye/Telemed/internal/domain"
)

// Keys the hub stamps onto every relayed payload.
const (
	KeyAppointmentID = "appointmentId"
	KeyRole          = "role"
)

var ErrMalformed = errors.New("malformed message")

// Envelope is one parsed inbound message.
type Envelope struct {
	Type    string
	Payload map[string]json.RawMessage
}

type wireIn struct {
	Type    *string         `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wireOut struct {
	Type    string                     `json:"type"`
	Payload map[string]json.RawMessage `json:"payload"`
}

// Parse decodes a raw frame. The frame must be a JSON object with a string
// "type"; "payload" must be an object when present.
func Parse(data []byte) (Envelope, error) {
	var in wireIn
	if err := json.Unmarshal(data, &in); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if in.Type == nil {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	env := Envelope{Type: *in.Type, Payload: map[string]json.RawMessage{}}
	raw := bytes.TrimSpace(in.Payload)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return env, nil
	}
	if raw[0] != '{' {
		return Envelope{}, fmt.Errorf("%w: payload is not an object", ErrMalformed)
	}
	if err := json.Unmarshal(raw, &env.Payload); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return env, nil
}

// Enrich renders the envelope for peers with the room and sender role merged
// into the payload. The stamped keys win over client-supplied ones.
func Enrich(env Envelope, room domain.RoomID, role domain.Role) (core.Frame, error) {
	payload := make(map[string]json.RawMessage, len(env.Payload)+2)
	for k, v := range env.Payload {
		payload[k] = v
	}
	id, err := json.Marshal(string(room))
	if err != nil {
		return nil, err
	}
	r, err := json.Marshal(string(role))
	if err != nil {
		return nil, err
	}
	payload[KeyAppointmentID] = id
	payload[KeyRole] = r

	return json.Marshal(wireOut{Type: env.Type, Payload: payload})
}
