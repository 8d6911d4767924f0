package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/wfunc/ludoserver/logger"
	"github.com/wfunc/ludoserver/monitor"
	"github.com/wfunc/ludoserver/network"
	"github.com/wfunc/ludoserver/room"
	"github.com/wfunc/ludoserver/services"
	"github.com/wfunc/ludoserver/session"
)

const defaultHeartbeat = 30 * time.Second

// Options 服务器依赖，由 main 组装
type Options struct {
	Addr      string
	Rooms     *room.Manager
	Sessions  *session.Manager
	Identity  *services.IdentityService
	Players   *services.PlayerService
	Monitor   *monitor.Monitor
	Heartbeat time.Duration
}

type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	router         *mux.Router
	httpServer     *http.Server
	roomManager    *room.Manager
	sessionManager *session.Manager
	identity       *services.IdentityService
	playerService  *services.PlayerService
	monitor        *monitor.Monitor
	heartbeat      time.Duration
	shutdownChan   chan struct{}
}

func NewGameServer(opts Options) *GameServer {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = defaultHeartbeat
	}
	s := &GameServer{
		addr:           opts.Addr,
		roomManager:    opts.Rooms,
		sessionManager: opts.Sessions,
		identity:       opts.Identity,
		playerService:  opts.Players,
		monitor:        opts.Monitor,
		heartbeat:      opts.Heartbeat,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	s.router = s.routes()
	return s
}

func (s *GameServer) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWebSocket)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rooms", s.handleListRooms).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}", s.handleGetRoom).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}/stats", s.handlePlayerStats).Methods(http.MethodGet)

	if s.monitor != nil {
		r.Handle("/metrics", s.monitor.Handler())
	}
	return r
}

// Handler exposes the router, mainly for tests.
func (s *GameServer) Handler() http.Handler {
	return s.router
}

func (s *GameServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Log.Infof("Game server listening on %s", s.addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and ends the read loops.
func (s *GameServer) Shutdown(ctx context.Context) error {
	close(s.shutdownChan)
	for _, sess := range s.sessionManager.All() {
		sess.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(s.heartbeat)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.leaveOnDisconnect(sess)
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

// leaveOnDisconnect removes the user from their room unless another of
// their connections is still inside it.
func (s *GameServer) leaveOnDisconnect(sess *session.Session) {
	userID := sess.UserID()
	code := sess.RoomCode()
	if userID == "" || code == "" {
		return
	}
	for _, other := range s.sessionManager.GetByUserID(userID) {
		if other.RoomCode() == code {
			return
		}
	}
	if err := s.roomManager.LeaveRoom(code, userID); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
		logger.Log.Warnf("User %s could not leave room %s on disconnect: %v", userID, code, err)
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	sess.Touch()
	if s.monitor != nil {
		s.monitor.IncMessagesReceived(packet.MsgID)
		defer func() { s.monitor.ObserveMessageLatency(time.Since(start)) }()
	}

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Conn.SetHeartbeat(s.heartbeat)
		sess.Send(network.MsgTypeHeartbeat, nil)
	case network.MsgTypeRegister, network.MsgTypeLogin:
		s.handleCredentials(sess, packet)
	case network.MsgTypeVerify:
		s.handleVerify(sess, packet)
	case network.MsgTypeCreateRoom, network.MsgTypeJoinRoom, network.MsgTypeLeaveRoom,
		network.MsgTypeStartMatch, network.MsgTypeRollDice, network.MsgTypeMoveToken,
		network.MsgTypeSendChat:
		s.handleIntent(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
		s.sendError(sess, packet.MsgID, errUnknownMessage)
	}
}

func (s *GameServer) reply(sess *session.Session, msgID uint16, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("encode %s: %v", network.MsgName(msgID), err)
		return
	}
	if err := sess.Send(msgID, data); err != nil {
		logger.Log.Debugf("send %s to %s: %v", network.MsgName(msgID), sess.GetID(), err)
	}
}

// sendError reports a rejected request to the originating session only.
func (s *GameServer) sendError(sess *session.Session, request uint16, err error) {
	code := errorCode(err)
	if s.monitor != nil {
		s.monitor.IncRejected(code)
	}
	logger.Log.Warnf("Session %s %s rejected: %v", sess.GetID(), network.MsgName(request), err)
	s.reply(sess, network.MsgTypeError, errorReply{
		Request: network.MsgName(request),
		Code:    code,
		Message: err.Error(),
	})
}
