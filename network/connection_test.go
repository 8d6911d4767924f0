package network

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestEncodeDecodePacket(t *testing.T) {
	payload := []byte(`{"token":"abc"}`)
	raw, err := EncodePacket(MsgTypeRollDice, payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != headerSize+len(payload) {
		t.Fatalf("frame length %d", len(raw))
	}

	p, err := DecodePacket(raw)
	if err != nil {
		t.Fatal(err)
	}
	if p.MsgID != MsgTypeRollDice || int(p.Length) != len(payload) || !bytes.Equal(p.Data, payload) {
		t.Errorf("decoded %+v", p)
	}
}

func TestDecodePacket_Short(t *testing.T) {
	tests := [][]byte{
		nil,
		{0, 1, 0},
		{0, 1, 0, 5, 'a', 'b'},
	}
	for _, raw := range tests {
		if _, err := DecodePacket(raw); err != io.ErrShortBuffer {
			t.Errorf("DecodePacket(%v) = %v, want io.ErrShortBuffer", raw, err)
		}
	}
}

func TestEncodePacket_TooLarge(t *testing.T) {
	if _, err := EncodePacket(MsgTypeSendChat, make([]byte, 70000)); err != ErrPacketTooLarge {
		t.Errorf("got %v", err)
	}
}

func TestWSConnection_RoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewWSConnection(ws)
		defer conn.Close()
		conn.SetHeartbeat(time.Second)
		p, err := conn.ReadPacket()
		if err != nil {
			return
		}
		conn.Send(MsgTypeAuthResult, p.Data)
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	client := NewWSConnection(ws)
	defer client.Close()

	if err := client.Send(MsgTypeLogin, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	p, err := client.ReadPacket()
	if err != nil {
		t.Fatal(err)
	}
	if p.MsgID != MsgTypeAuthResult || string(p.Data) != "hello" {
		t.Errorf("echo = %d %q", p.MsgID, p.Data)
	}
	if MsgName(p.MsgID) != "auth_result" {
		t.Errorf("MsgName = %s", MsgName(p.MsgID))
	}
}
