package rpc

import (
	"encoding/json"
	"errors"
	"net"
	"net/rpc"
	"strings"
	"time"

	"github.com/wfunc/ludoserver/broadcast"
	"github.com/wfunc/ludoserver/logger"
	"github.com/wfunc/ludoserver/network"
	"github.com/wfunc/ludoserver/room"
	"github.com/wfunc/ludoserver/services"
)

var ErrEmptyAnnouncement = errors.New("announcement text is empty")

// Server manages the admin RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr. Services are added with Register before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      rpc.NewServer(),
	}, nil
}

func (s *Server) Register(service interface{}) error {
	return s.rpc.Register(service)
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// GameService exposes admin queries over net/rpc.
type GameService struct {
	playerService *services.PlayerService
	roomManager   *room.Manager
	broadcaster   broadcast.Broadcaster
}

func NewGameService(ps *services.PlayerService, rm *room.Manager, b broadcast.Broadcaster) *GameService {
	return &GameService{playerService: ps, roomManager: rm, broadcaster: b}
}

type GetPlayerArgs struct {
	UserID string
}

type GetPlayerReply struct {
	Profile *services.PlayerProfile
}

// GetPlayerStats returns a player's profile with match statistics.
func (gs *GameService) GetPlayerStats(args *GetPlayerArgs, reply *GetPlayerReply) error {
	profile, err := gs.playerService.GetPlayerWithStats(args.UserID)
	if err != nil {
		return err
	}
	reply.Profile = profile
	return nil
}

type ListRoomsArgs struct {
	// Status filters the list. Empty lists every room.
	Status room.RoomStatus
}

type ListRoomsReply struct {
	Rooms []room.RoomSummary
}

func (gs *GameService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	for _, r := range gs.roomManager.ListRooms() {
		if args.Status == "" || r.Status == args.Status {
			reply.Rooms = append(reply.Rooms, r)
		}
	}
	return nil
}

type AnnounceArgs struct {
	// RoomCode limits the announcement to one room. Empty means everyone online.
	RoomCode string
	Text     string
}

type AnnounceReply struct {
	// Scope is "room" or "all".
	Scope string
}

// Announce pushes a system chat line to connected players.
func (gs *GameService) Announce(args *AnnounceArgs, reply *AnnounceReply) error {
	text := strings.TrimSpace(args.Text)
	if text == "" {
		return ErrEmptyAnnouncement
	}
	if args.RoomCode != "" {
		// 房间公告进入聊天记录，后加入的成员也能看到
		if _, err := gs.roomManager.Announce(args.RoomCode, text); err != nil {
			return err
		}
		reply.Scope = "room"
		return nil
	}
	data, err := json.Marshal(room.ChatEntry{
		Name:   "system",
		Color:  "gray",
		Text:   text,
		System: true,
		Time:   time.Now(),
	})
	if err != nil {
		return err
	}
	reply.Scope = "all"
	return gs.broadcaster.BroadcastToAll(network.MsgTypeChatMessage, data)
}
