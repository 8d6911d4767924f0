package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/ludoserver/broadcast"
	"github.com/wfunc/ludoserver/game"
	"github.com/wfunc/ludoserver/monitor"
	"github.com/wfunc/ludoserver/network"
	"github.com/wfunc/ludoserver/persistence"
	"github.com/wfunc/ludoserver/room"
	"github.com/wfunc/ludoserver/services"
	"github.com/wfunc/ludoserver/session"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	server *GameServer
	http   *httptest.Server
	rooms  *room.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := persistence.NewMemoryDatabase()
	sessions := session.NewManager()
	players := services.NewPlayerService(db)
	rooms := room.NewRoomManager(room.Options{
		Broadcaster: broadcast.NewRoomBroadcaster(sessions),
		Recorder:    players,
		NewDice: func() game.Dice {
			return game.DiceFunc(func() int { return 3 })
		},
	})
	s := NewGameServer(Options{
		Rooms:    rooms,
		Sessions: sessions,
		Identity: services.NewIdentityService(db, "test-secret", time.Hour, bcrypt.MinCost),
		Players:  players,
		Monitor:  monitor.NewMonitor("ludo_test"),
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{server: s, http: ts, rooms: rooms}
}

type testClient struct {
	t     *testing.T
	conn  *websocket.Conn
	token string
	id    string
}

func (e *testEnv) dial(t *testing.T) *testClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn}
}

func (c *testClient) send(msgID uint16, payload interface{}) {
	c.t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		c.t.Fatal(err)
	}
	packet, err := network.EncodePacket(msgID, data)
	if err != nil {
		c.t.Fatal(err)
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, packet); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

// expect reads until a packet with msgID arrives and decodes it into v.
func (c *testClient) expect(msgID uint16, v interface{}) {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.t.Fatalf("waiting for %s: %v", network.MsgName(msgID), err)
		}
		packet, err := network.DecodePacket(data)
		if err != nil {
			c.t.Fatal(err)
		}
		if packet.MsgID != msgID {
			continue
		}
		if v != nil {
			if err := json.Unmarshal(packet.Data, v); err != nil {
				c.t.Fatalf("decode %s: %v", network.MsgName(msgID), err)
			}
		}
		return
	}
}

func (c *testClient) expectError(code string) {
	c.t.Helper()
	var reply errorReply
	c.expect(network.MsgTypeError, &reply)
	if reply.Code != code {
		c.t.Fatalf("error code = %q (%s), want %q", reply.Code, reply.Message, code)
	}
}

func (c *testClient) register(name string) {
	c.t.Helper()
	c.send(network.MsgTypeRegister, credentialRequest{Username: name, Password: "password"})
	var res authResult
	c.expect(network.MsgTypeAuthResult, &res)
	if !res.Success || res.Token == "" {
		c.t.Fatalf("register %s failed: %+v", name, res)
	}
	c.token, c.id = res.Token, res.UserID
}

func (c *testClient) intent(msgID uint16, req intentRequest) {
	c.t.Helper()
	req.Token = c.token
	c.send(msgID, req)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)
	c := env.dial(t)

	c.send(network.MsgTypeRegister, credentialRequest{Username: "al", Password: "password"})
	var res authResult
	c.expect(network.MsgTypeAuthResult, &res)
	if res.Success || res.Error == "" {
		t.Fatalf("short name should be refused: %+v", res)
	}

	c.register("alice")

	c.send(network.MsgTypeLogin, credentialRequest{Username: "alice", Password: "wrong"})
	res = authResult{}
	c.expect(network.MsgTypeAuthResult, &res)
	if res.Success {
		t.Fatal("wrong password should be refused")
	}

	c.send(network.MsgTypeVerify, intentRequest{Token: c.token})
	res = authResult{}
	c.expect(network.MsgTypeAuthResult, &res)
	if !res.Success || res.UserID != c.id {
		t.Fatalf("verify failed: %+v", res)
	}

	c.send(network.MsgTypeCreateRoom, intentRequest{Token: "garbage"})
	c.expectError("invalid_session")

	c.send(999, nil)
	c.expectError("unknown_message")
}

func TestRoomAndMatchFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.dial(t)
	bob := env.dial(t)
	alice.register("alice")
	bob.register("bob")

	alice.intent(network.MsgTypeCreateRoom, intentRequest{})
	var created room.RoomView
	alice.expect(network.MsgTypeRoomCreated, &created)
	if created.Code == "" || created.HostID != alice.id {
		t.Fatalf("unexpected room %+v", created)
	}

	bob.intent(network.MsgTypeRollDice, intentRequest{})
	bob.expectError("not_in_room")

	bob.intent(network.MsgTypeJoinRoom, intentRequest{Code: strings.ToLower(created.Code)})
	var joined room.RoomView
	bob.expect(network.MsgTypeRoomJoined, &joined)
	if len(joined.Members) != 2 {
		t.Fatalf("expected 2 members, got %+v", joined.Members)
	}

	bob.intent(network.MsgTypeStartMatch, intentRequest{})
	bob.expectError("not_host")

	alice.intent(network.MsgTypeStartMatch, intentRequest{})
	var start game.Snapshot
	bob.expect(network.MsgTypeGameStart, &start)
	if start.CurrentUserID != alice.id || start.Phase != game.PhaseRoll {
		t.Fatalf("unexpected start snapshot %+v", start)
	}

	bob.intent(network.MsgTypeRollDice, intentRequest{})
	bob.expectError("not_your_turn")

	alice.intent(network.MsgTypeRollDice, intentRequest{})
	var rolled map[string]interface{}
	bob.expect(network.MsgTypeDiceRolled, &rolled)

	// 掷出 3 没有可走的棋子，轮到 bob
	snap, err := env.rooms.Snapshot(created.Code)
	if err != nil {
		t.Fatal(err)
	}
	if snap.CurrentUserID != bob.id {
		t.Fatalf("turn should pass to bob, current is %s", snap.CurrentUserID)
	}

	alice.intent(network.MsgTypeMoveToken, intentRequest{TokenID: 0})
	alice.expectError("not_your_turn")

	bob.intent(network.MsgTypeSendChat, intentRequest{Text: "  hi there  "})
	var line room.ChatEntry
	alice.expect(network.MsgTypeChatMessage, &line)
	if line.Text != "hi there" || line.UserID != bob.id {
		t.Fatalf("unexpected chat %+v", line)
	}

	bob.intent(network.MsgTypeLeaveRoom, intentRequest{})
	var left leftRoom
	bob.expect(network.MsgTypeLeaveRoom, &left)
	if left.Code != created.Code {
		t.Fatalf("left %q, want %q", left.Code, created.Code)
	}
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func TestHTTPRoutes(t *testing.T) {
	env := newTestEnv(t)
	alice := env.dial(t)
	alice.register("alice")
	alice.intent(network.MsgTypeCreateRoom, intentRequest{})
	var created room.RoomView
	alice.expect(network.MsgTypeRoomCreated, &created)

	var health map[string]interface{}
	if code := getJSON(t, env.http.URL+"/healthz", &health); code != http.StatusOK {
		t.Fatalf("healthz status %d", code)
	}
	if health["rooms"] != float64(1) || health["sessions"] != float64(1) {
		t.Errorf("unexpected health %+v", health)
	}

	var rooms []room.RoomSummary
	getJSON(t, env.http.URL+"/api/rooms", &rooms)
	if len(rooms) != 1 || rooms[0].Code != created.Code || rooms[0].Status != room.StatusWaiting {
		t.Errorf("unexpected room list %+v", rooms)
	}

	var detail roomDetail
	if code := getJSON(t, env.http.URL+"/api/rooms/"+created.Code, &detail); code != http.StatusOK {
		t.Fatalf("room detail status %d", code)
	}
	if detail.Room.Code != created.Code || detail.Match != nil {
		t.Errorf("unexpected detail %+v", detail)
	}
	if code := getJSON(t, env.http.URL+"/api/rooms/ZZZZZZ", nil); code != http.StatusNotFound {
		t.Errorf("missing room status %d, want 404", code)
	}

	var profile services.PlayerProfile
	if code := getJSON(t, env.http.URL+"/api/players/"+alice.id+"/stats", &profile); code != http.StatusOK {
		t.Fatalf("stats status %d", code)
	}
	if profile.Name != "alice" {
		t.Errorf("unexpected profile %+v", profile)
	}
	if code := getJSON(t, env.http.URL+"/api/players/nobody/stats", nil); code != http.StatusNotFound {
		t.Errorf("missing player status %d, want 404", code)
	}

	resp, err := http.Get(env.http.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status %d", resp.StatusCode)
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{services.ErrCredentialExpired, "session_expired"},
		{services.ErrInvalidOrExpiredCredential, "invalid_session"},
		{room.ErrRoomFull, "room_full"},
		{services.ErrNameTooLong, "name_too_long"},
		{room.ErrNotInGame, "not_in_game"},
		{errBadRequest, "bad_request"},
		{http.ErrBodyNotAllowed, "internal"},
	}
	for _, tt := range tests {
		if got := errorCode(tt.err); got != tt.want {
			t.Errorf("errorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
