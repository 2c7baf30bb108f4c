package codec

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/GrEarl/CloverBINGO-sub000/internal/session"
)

func TestEncodeSnapshot_Envelope(t *testing.T) {
	snap := session.ObserverSnapshot{BaseView: session.BaseView{
		Code:        "ROOM",
		Status:      session.StatusActive,
		DrawCount:   2,
		LastNumbers: []int{9, 40},
		Seq:         7,
		ServerTsMs:  1700000000000,
	}}
	raw, err := EncodeSnapshot(snap)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var env struct {
		Type       string         `json:"type"`
		Role       string         `json:"role"`
		Seq        uint64         `json:"seq"`
		ServerTsMs int64          `json:"serverTsMs"`
		Data       map[string]any `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != TypeSnapshot || env.Role != "observer" || env.Seq != 7 || env.ServerTsMs != 1700000000000 {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Data["code"] != "ROOM" || env.Data["drawCount"] != float64(2) {
		t.Fatalf("unexpected data: %v", env.Data)
	}
	if _, ok := env.Data["seq"]; ok {
		t.Fatalf("seq belongs to the envelope, not the data")
	}
}

func TestDecodeClientMessage(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":" PING "}`))
	if err != nil || msg.Type != TypePing {
		t.Fatalf("expected ping, got %+v %v", msg, err)
	}
	if _, err := DecodeClientMessage([]byte(`{"type":"draw"}`)); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("expected ErrUnknownMessage, got %v", err)
	}
	if _, err := DecodeClientMessage([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestEncodePongAndError(t *testing.T) {
	raw, err := EncodePong()
	if err != nil {
		t.Fatal(err)
	}
	var env ServerEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type != TypePong {
		t.Fatalf("unexpected pong %s: %v", raw, err)
	}
	raw, err = EncodeError("boom")
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, &env); err != nil || env.Type != TypeError || env.Error != "boom" {
		t.Fatalf("unexpected error frame %s: %v", raw, err)
	}
}
