package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GrEarl/CloverBINGO-sub000/internal/session"
)

// Frame types on the real-time channel.
const (
	TypeSnapshot = "snapshot"
	TypeError    = "error"
	TypePing     = "ping"
	TypePong     = "pong"
)

var ErrUnknownMessage = errors.New("unknown client message")

// ServerEnvelope wraps every server-to-client frame.
type ServerEnvelope struct {
	Type       string       `json:"type"`
	Role       session.Role `json:"role,omitempty"`
	Seq        uint64       `json:"seq,omitempty"`
	ServerTsMs int64        `json:"serverTsMs"`
	Data       any          `json:"data,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// ClientMessage is the only thing clients send: keepalives.
type ClientMessage struct {
	Type string `json:"type"`
}

// WrapSnapshot builds the envelope for one projected snapshot.
func WrapSnapshot(snap session.Snapshot) ServerEnvelope {
	h := snap.Header()
	return ServerEnvelope{
		Type:       TypeSnapshot,
		Role:       snap.Role(),
		Seq:        h.Seq,
		ServerTsMs: h.ServerTsMs,
		Data:       snap,
	}
}

func EncodeSnapshot(snap session.Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	return json.Marshal(WrapSnapshot(snap))
}

func EncodeError(msg string) ([]byte, error) {
	return json.Marshal(ServerEnvelope{Type: TypeError, ServerTsMs: time.Now().UnixMilli(), Error: msg})
}

func EncodePong() ([]byte, error) {
	return json.Marshal(ServerEnvelope{Type: TypePong, ServerTsMs: time.Now().UnixMilli()})
}

// DecodeClientMessage accepts {"type":"ping"}. Anything else is ErrUnknownMessage.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("decode client message: %w", err)
	}
	msg.Type = strings.ToLower(strings.TrimSpace(msg.Type))
	if msg.Type != TypePing {
		return msg, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	return msg, nil
}
