package session

import (
	"net"
	"testing"
	"time"

	"github.com/wfunc/ludoserver/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	sent []uint16
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.sent = append(m.sent, msgID)
	return nil
}
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sess := NewSession("test_session_1", &MockConnection{})

	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	retrieved, exists := manager.Get(sess.ID)
	if !exists || retrieved != sess {
		t.Fatal("Get should return the added session")
	}

	manager.Remove(sess.ID)
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}
	if _, exists := manager.Get(sess.ID); exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManager_GetByUserID(t *testing.T) {
	manager := NewManager()

	sess1 := NewSession("session1", &MockConnection{})
	sess1.Bind("u100", "alice")
	sess2 := NewSession("session2", &MockConnection{})
	sess2.Bind("u200", "bob")
	sess3 := NewSession("session3", &MockConnection{})
	sess3.Bind("u100", "alice")
	anonymous := NewSession("session4", &MockConnection{})

	for _, s := range []*Session{sess1, sess2, sess3, anonymous} {
		manager.Add(s)
	}

	tests := []struct {
		userID string
		want   int
	}{
		{"u100", 2},
		{"u200", 1},
		{"u300", 0},
	}
	for _, tt := range tests {
		if got := len(manager.GetByUserID(tt.userID)); got != tt.want {
			t.Errorf("GetByUserID(%s) = %d sessions, want %d", tt.userID, got, tt.want)
		}
	}
	if len(manager.All()) != 4 {
		t.Errorf("All should list every session")
	}
}

func TestSession_IdentityAndRoom(t *testing.T) {
	conn := &MockConnection{}
	sess := NewSession("s", conn)

	if id, _ := sess.Identity(); id != "" {
		t.Errorf("new session should be anonymous, got %q", id)
	}
	sess.Bind("u1", "alice")
	if id, name := sess.Identity(); id != "u1" || name != "alice" {
		t.Errorf("Identity = %q, %q", id, name)
	}

	sess.SetRoom("ABCDEF")
	if sess.RoomCode() != "ABCDEF" {
		t.Errorf("RoomCode = %q", sess.RoomCode())
	}

	before := sess.LastActive()
	time.Sleep(time.Millisecond)
	sess.Touch()
	if !sess.LastActive().After(before) {
		t.Error("Touch should move LastActive forward")
	}

	if err := sess.Send(network.MsgTypeRoomState, nil); err != nil || len(conn.sent) != 1 {
		t.Error("Send should reach the connection")
	}
}
