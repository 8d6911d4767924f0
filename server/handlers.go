package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/wfunc/ludoserver/game"
	"github.com/wfunc/ludoserver/logger"
	"github.com/wfunc/ludoserver/network"
	"github.com/wfunc/ludoserver/persistence"
	"github.com/wfunc/ludoserver/room"
	"github.com/wfunc/ludoserver/services"
	"github.com/wfunc/ludoserver/session"
	"github.com/wfunc/ludoserver/state"
)

var (
	errBadRequest     = errors.New("malformed request")
	errUnknownMessage = errors.New("unknown message type")
	errNotInRoom      = errors.New("not in a room")
)

type credentialRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// intentRequest carries every room and game intent. Token is the session credential.
type intentRequest struct {
	Token   string `json:"token"`
	Code    string `json:"code,omitempty"`
	TokenID int    `json:"token_id,omitempty"`
	Text    string `json:"text,omitempty"`
}

type authResult struct {
	Success   bool      `json:"success"`
	UserID    string    `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type errorReply struct {
	Request string `json:"request"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type leftRoom struct {
	Code string `json:"code"`
}

// errorCode maps an error to a stable client-facing code.
func errorCode(err error) string {
	codes := []struct {
		err  error
		code string
	}{
		{services.ErrCredentialExpired, "session_expired"},
		{services.ErrInvalidOrExpiredCredential, "invalid_session"},
		{services.ErrNameTooShort, "name_too_short"},
		{services.ErrNameTooLong, "name_too_long"},
		{services.ErrSecretTooShort, "password_too_short"},
		{services.ErrNameTaken, "name_taken"},
		{services.ErrUserNotFound, "user_not_found"},
		{services.ErrWrongSecret, "wrong_password"},
		{room.ErrRoomNotFound, "room_not_found"},
		{room.ErrMatchAlreadyStarted, "match_already_started"},
		{room.ErrRoomFull, "room_full"},
		{room.ErrAlreadyMember, "already_member"},
		{room.ErrNotMember, "not_member"},
		{room.ErrNotHost, "not_host"},
		{room.ErrNotEnoughPlayers, "not_enough_players"},
		{room.ErrAlreadyStarted, "already_started"},
		{room.ErrEmptyMessage, "empty_message"},
		{state.ErrNotInGame, "not_in_game"},
		{state.ErrNotYourTurn, "not_your_turn"},
		{state.ErrWrongPhase, "wrong_phase"},
		{state.ErrIllegalMove, "illegal_move"},
		{state.ErrUnknownAction, "unknown_action"},
		{errNotInRoom, "not_in_room"},
		{errBadRequest, "bad_request"},
		{errUnknownMessage, "unknown_message"},
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

func (s *GameServer) handleCredentials(sess *session.Session, packet *network.Packet) {
	var req credentialRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.reply(sess, network.MsgTypeAuthResult, authResult{Error: errBadRequest.Error()})
		return
	}

	var cred *services.Credential
	var err error
	if packet.MsgID == network.MsgTypeRegister {
		cred, err = s.identity.Register(req.Username, req.Password)
	} else {
		cred, err = s.identity.Authenticate(req.Username, req.Password)
	}
	if err != nil {
		logger.Log.Infof("Session %s %s failed: %v", sess.GetID(), network.MsgName(packet.MsgID), err)
		s.reply(sess, network.MsgTypeAuthResult, authResult{Error: err.Error()})
		return
	}

	s.bind(sess, cred.Identity)
	s.reply(sess, network.MsgTypeAuthResult, authResult{
		Success:   true,
		UserID:    cred.UserID,
		Username:  cred.Name,
		Token:     cred.Token,
		ExpiresAt: cred.ExpiresAt,
	})
}

func (s *GameServer) handleVerify(sess *session.Session, packet *network.Packet) {
	var req intentRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.reply(sess, network.MsgTypeAuthResult, authResult{Error: errBadRequest.Error()})
		return
	}
	id, ok := s.authenticate(sess, packet.MsgID, req.Token)
	if !ok {
		return
	}
	s.reply(sess, network.MsgTypeAuthResult, authResult{
		Success:  true,
		UserID:   id.UserID,
		Username: id.Name,
		Token:    req.Token,
	})
}

// authenticate verifies the credential of a request and binds it to the
// connection. Expired sessions get their own message so clients can log in again.
func (s *GameServer) authenticate(sess *session.Session, request uint16, token string) (services.Identity, bool) {
	id, err := s.identity.Verify(token)
	if err != nil {
		if errors.Is(err, services.ErrCredentialExpired) {
			if s.monitor != nil {
				s.monitor.IncRejected(errorCode(err))
			}
			s.reply(sess, network.MsgTypeAuthExpired, errorReply{
				Request: network.MsgName(request),
				Code:    errorCode(err),
				Message: err.Error(),
			})
			return services.Identity{}, false
		}
		s.sendError(sess, request, err)
		return services.Identity{}, false
	}
	s.bind(sess, id)
	return id, true
}

// bind attaches id to the connection. Switching users leaves the old user's room.
func (s *GameServer) bind(sess *session.Session, id services.Identity) {
	if previous := sess.UserID(); previous != "" && previous != id.UserID {
		if code := sess.RoomCode(); code != "" {
			s.roomManager.LeaveRoom(code, previous)
			sess.SetRoom("")
		}
	}
	sess.Bind(id.UserID, id.Name)
}

func (s *GameServer) handleIntent(sess *session.Session, packet *network.Packet) {
	var req intentRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, packet.MsgID, errBadRequest)
		return
	}
	id, ok := s.authenticate(sess, packet.MsgID, req.Token)
	if !ok {
		return
	}
	participant := room.Participant{UserID: id.UserID, Name: id.Name}

	var err error
	switch packet.MsgID {
	case network.MsgTypeCreateRoom:
		s.leaveCurrentRoom(sess, id.UserID)
		created := s.roomManager.CreateRoom(participant)
		sess.SetRoom(created.Code)
		s.reply(sess, network.MsgTypeRoomCreated, created.View())
	case network.MsgTypeJoinRoom:
		code := room.NormalizeCode(req.Code)
		if code == sess.RoomCode() {
			err = room.ErrAlreadyMember
			break
		}
		var joined *room.Room
		joined, err = s.roomManager.JoinRoom(code, participant)
		if err != nil {
			break
		}
		s.leaveCurrentRoom(sess, id.UserID)
		sess.SetRoom(joined.Code)
		s.reply(sess, network.MsgTypeRoomJoined, joined.View())
	case network.MsgTypeLeaveRoom:
		code := sess.RoomCode()
		if code == "" {
			err = errNotInRoom
			break
		}
		if err = s.roomManager.LeaveRoom(code, id.UserID); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
			break
		}
		err = nil
		sess.SetRoom("")
		s.reply(sess, network.MsgTypeLeaveRoom, leftRoom{Code: code})
	case network.MsgTypeStartMatch:
		err = s.inRoom(sess, func(code string) error {
			return s.roomManager.StartMatch(code, id.UserID)
		})
	case network.MsgTypeRollDice:
		err = s.inRoom(sess, func(code string) error {
			_, err := s.roomManager.RollDice(code, id.UserID)
			return err
		})
	case network.MsgTypeMoveToken:
		err = s.inRoom(sess, func(code string) error {
			_, err := s.roomManager.MoveToken(code, id.UserID, req.TokenID)
			return err
		})
	case network.MsgTypeSendChat:
		err = s.inRoom(sess, func(code string) error {
			_, err := s.roomManager.SendChat(code, id.UserID, req.Text)
			return err
		})
	}

	if err != nil {
		s.sendError(sess, packet.MsgID, err)
	}
}

func (s *GameServer) inRoom(sess *session.Session, fn func(code string) error) error {
	code := sess.RoomCode()
	if code == "" {
		return errNotInRoom
	}
	return fn(code)
}

// leaveCurrentRoom drops the connection's previous room before it enters another.
func (s *GameServer) leaveCurrentRoom(sess *session.Session, userID string) {
	code := sess.RoomCode()
	if code == "" {
		return
	}
	if err := s.roomManager.LeaveRoom(code, userID); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
		logger.Log.Warnf("User %s could not leave room %s: %v", userID, code, err)
	}
	sess.SetRoom("")
}

// --- HTTP ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debugf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"code": errorCode(err), "error": err.Error()})
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"rooms":    s.roomManager.RoomCount(),
		"sessions": s.sessionManager.Count(),
	})
}

func (s *GameServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.roomManager.ListRooms())
}

type roomDetail struct {
	Room  room.RoomView  `json:"room"`
	Match *game.Snapshot `json:"match,omitempty"`
}

func (s *GameServer) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	view, err := s.roomManager.Roster(code)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	detail := roomDetail{Room: view}
	if snap, err := s.roomManager.Snapshot(code); err == nil {
		detail.Match = &snap
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *GameServer) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	profile, err := s.playerService.GetPlayerWithStats(mux.Vars(r)["id"])
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrUserNotFound) || errors.Is(err, persistence.ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
