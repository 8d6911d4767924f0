package rpc

import (
	"context"
	"net"
	"net/rpc"
	"strings"
	"testing"
	"time"

	"github.com/wfunc/ludoserver/broadcast"
	"github.com/wfunc/ludoserver/network"
	"github.com/wfunc/ludoserver/persistence"
	"github.com/wfunc/ludoserver/room"
	"github.com/wfunc/ludoserver/services"
	"github.com/wfunc/ludoserver/session"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

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

func TestGameService_OverNetRPC(t *testing.T) {
	db := persistence.NewMemoryDatabase()
	ids := services.NewIdentityService(db, "secret", time.Hour, bcrypt.MinCost)
	alice, err := ids.Register("alice", "password")
	if err != nil {
		t.Fatal(err)
	}

	sessions := session.NewManager()
	conn := &MockConnection{}
	sess := session.NewSession("s1", conn)
	sess.Bind(alice.UserID, alice.Name)
	sessions.Add(sess)
	b := broadcast.NewRoomBroadcaster(sessions)

	rooms := room.NewRoomManager(room.Options{Broadcaster: b})
	created := rooms.CreateRoom(room.Participant{UserID: alice.UserID, Name: alice.Name})
	sess.SetRoom(created.Code)

	srv, err := NewServer("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Register(NewGameService(services.NewPlayerService(db), rooms, b)); err != nil {
		t.Fatal(err)
	}
	go srv.Start()
	defer srv.Stop()

	client, err := rpc.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	var players GetPlayerReply
	if err := client.Call("GameService.GetPlayerStats", &GetPlayerArgs{UserID: alice.UserID}, &players); err != nil {
		t.Fatalf("GetPlayerStats: %v", err)
	}
	if players.Profile.Name != "alice" || players.Profile.Stats.TotalGames != 0 {
		t.Errorf("unexpected profile %+v", players.Profile)
	}

	err = client.Call("GameService.GetPlayerStats", &GetPlayerArgs{UserID: "nobody"}, &GetPlayerReply{})
	if err == nil || err.Error() != services.ErrUserNotFound.Error() {
		t.Errorf("unknown player: got %v", err)
	}

	var list ListRoomsReply
	if err := client.Call("GameService.ListRooms", &ListRoomsArgs{}, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Rooms) != 1 || list.Rooms[0].Code != created.Code {
		t.Errorf("unexpected rooms %+v", list.Rooms)
	}

	var inGame ListRoomsReply
	if err := client.Call("GameService.ListRooms", &ListRoomsArgs{Status: room.StatusInGame}, &inGame); err != nil {
		t.Fatal(err)
	}
	if len(inGame.Rooms) != 0 {
		t.Errorf("no room is in game, got %+v", inGame.Rooms)
	}

	before := len(conn.sent)
	args := &AnnounceArgs{RoomCode: strings.ToLower(created.Code), Text: "server restarts in 5 minutes"}
	var announced AnnounceReply
	if err := client.Call("GameService.Announce", args, &announced); err != nil {
		t.Fatal(err)
	}
	if announced.Scope != "room" {
		t.Errorf("scope = %q", announced.Scope)
	}
	if err := client.Call("GameService.Announce", &AnnounceArgs{Text: "hello all"}, &AnnounceReply{}); err != nil {
		t.Fatal(err)
	}
	if len(conn.sent) != before+2 || conn.sent[len(conn.sent)-1] != network.MsgTypeChatMessage {
		t.Errorf("announcements not delivered: %v", conn.sent)
	}
	if err := client.Call("GameService.Announce", &AnnounceArgs{Text: "  "}, &AnnounceReply{}); err == nil {
		t.Error("empty announcement should fail")
	}

	err = client.Call("GameService.Announce", &AnnounceArgs{RoomCode: "ZZZZZZ", Text: "hi"}, &AnnounceReply{})
	if err == nil || err.Error() != room.ErrRoomNotFound.Error() {
		t.Errorf("unknown room: got %v", err)
	}
	roster, err := rooms.Roster(created.Code)
	if err != nil {
		t.Fatal(err)
	}
	if len(roster.Chat) != 1 || !roster.Chat[0].System || roster.Chat[0].Text != "server restarts in 5 minutes" {
		t.Errorf("room announcement should be kept in the chat log, got %+v", roster.Chat)
	}
}

func TestHealthServer(t *testing.T) {
	hs, err := NewHealthServer("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go hs.Start()
	defer hs.Stop()

	conn, err := grpc.NewClient(hs.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := healthpb.NewHealthClient(conn)
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatal(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %s", resp.GetStatus())
	}

	hs.SetServing(false)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status after SetServing(false) = %s", resp.GetStatus())
	}
}
