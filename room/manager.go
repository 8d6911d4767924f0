package room

import (
	"errors"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wfunc/ludoserver/game"
	"github.com/wfunc/ludoserver/logger"
	"github.com/wfunc/ludoserver/state"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrMatchAlreadyStarted = errors.New("match already started")
	ErrRoomFull            = errors.New("room is full")
	ErrAlreadyMember       = errors.New("already in this room")
	ErrNotMember           = errors.New("not a member of this room")
	ErrNotHost             = errors.New("only the host can start the match")
	ErrNotEnoughPlayers    = errors.New("at least 2 players are needed")
	ErrAlreadyStarted      = errors.New("match already started")
	ErrEmptyMessage        = errors.New("empty chat message")

	// ErrNotInGame is returned for game actions outside a running match.
	ErrNotInGame = state.ErrNotInGame
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
	minPlayers   = 2
	maxPlayers   = 4
	maxNameRunes = 32
)

// Options 房间管理器的依赖和参数
type Options struct {
	Broadcaster Broadcaster
	Recorder    MatchRecorder
	Scheduler   Scheduler
	Observer    Observer

	// ForfeitDelay holds a forfeited turn before it passes. Zero passes it at once.
	ForfeitDelay time.Duration

	// NewDice supplies the die of each new match. Nil means a random die.
	NewDice func() game.Dice

	MaxPlayers    int
	ChatHistory   int
	ChatTail      int
	ChatMaxLength int
	Clock         func() time.Time
}

func (o *Options) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

func (o *Options) maxPlayers() int {
	if o.MaxPlayers < minPlayers || o.MaxPlayers > maxPlayers {
		return maxPlayers
	}
	return o.MaxPlayers
}

// RoomSummary is one line of the room list.
type RoomSummary struct {
	Code      string     `json:"code"`
	HostID    string     `json:"host_id"`
	Status    RoomStatus `json:"status"`
	Players   int        `json:"players"`
	CreatedAt time.Time  `json:"created_at"`
}

// Manager 管理所有房间
type Manager struct {
	rooms map[string]*Room
	opts  *Options
	mutex sync.RWMutex
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(opts Options) *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
		opts:  &opts,
	}
}

// NormalizeCode upper-cases a room code typed by a player.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (m *Manager) newCode() string {
	b := make([]byte, codeLength)
	for {
		for i := range b {
			b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
		}
		if _, taken := m.rooms[string(b)]; !taken {
			return string(b)
		}
	}
}

// CreateRoom 创建一个新房间，房主是唯一成员
func (m *Manager) CreateRoom(host Participant) *Room {
	m.mutex.Lock()
	room := newRoom(m.newCode(), host, m.opts)
	m.rooms[room.Code] = room
	m.mutex.Unlock()

	logger.Log.Infof("房间 %s 已创建，房主 %s", room.Code, host.Name)
	room.mu.Lock()
	room.broadcastRoster()
	room.mu.Unlock()
	return room
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[NormalizeCode(code)]
	return room, exists
}

func (m *Manager) mustRoom(code string) (*Room, error) {
	room, ok := m.GetRoom(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// JoinRoom 加入等待中的房间
func (m *Manager) JoinRoom(code string, p Participant) (*Room, error) {
	room, err := m.mustRoom(code)
	if err != nil {
		return nil, err
	}
	if err := room.join(p); err != nil {
		return nil, err
	}
	logger.Log.Infof("%s 加入房间 %s", p.Name, room.Code)
	return room, nil
}

// LeaveRoom removes a member and destroys the room when it becomes empty.
func (m *Manager) LeaveRoom(code, userID string) error {
	room, err := m.mustRoom(code)
	if err != nil {
		return err
	}
	empty, err := room.leave(userID)
	if err != nil {
		return err
	}
	logger.Log.Infof("用户 %s 离开房间 %s", userID, room.Code)
	if empty {
		m.RemoveRoom(room.Code)
	}
	return nil
}

// StartMatch 房主开局，按加入顺序分配颜色
func (m *Manager) StartMatch(code, userID string) error {
	room, err := m.mustRoom(code)
	if err != nil {
		return err
	}
	return room.start(userID)
}

// RollDice applies a roll intent from userID.
func (m *Manager) RollDice(code, userID string) (game.RollResult, error) {
	room, err := m.mustRoom(code)
	if err != nil {
		return game.RollResult{}, err
	}
	out, err := room.act(userID, state.Action{Type: state.ActionRoll})
	if err != nil {
		return game.RollResult{}, err
	}
	return *out.Roll, nil
}

// MoveToken applies a move intent from userID.
func (m *Manager) MoveToken(code, userID string, tokenID int) (game.MoveResult, error) {
	room, err := m.mustRoom(code)
	if err != nil {
		return game.MoveResult{}, err
	}
	out, err := room.act(userID, state.Action{Type: state.ActionMove, TokenID: tokenID})
	if err != nil {
		return game.MoveResult{}, err
	}
	return *out.Move, nil
}

// SendChat 追加并广播一条聊天
func (m *Manager) SendChat(code, userID, text string) (ChatEntry, error) {
	room, err := m.mustRoom(code)
	if err != nil {
		return ChatEntry{}, err
	}
	return room.say(userID, text)
}

// Announce posts a system chat line to a room.
func (m *Manager) Announce(code, text string) (ChatEntry, error) {
	room, err := m.mustRoom(code)
	if err != nil {
		return ChatEntry{}, err
	}
	return room.announce(text)
}

// Roster 获取房间花名册
func (m *Manager) Roster(code string) (RoomView, error) {
	room, err := m.mustRoom(code)
	if err != nil {
		return RoomView{}, err
	}
	return room.View(), nil
}

// Snapshot returns the current match snapshot of a room.
func (m *Manager) Snapshot(code string) (game.Snapshot, error) {
	room, err := m.mustRoom(code)
	if err != nil {
		return game.Snapshot{}, err
	}
	snap, ok := room.Snapshot()
	if !ok {
		return game.Snapshot{}, ErrNotInGame
	}
	return snap, nil
}

// ListRooms lists every room ordered by code.
func (m *Manager) ListRooms() []RoomSummary {
	m.mutex.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mutex.RUnlock()

	list := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		list = append(list, r.summary())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list
}

// RoomCount 当前房间数
func (m *Manager) RoomCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// RemoveRoom 从管理器中移除并关闭一个房间
func (m *Manager) RemoveRoom(code string) {
	m.mutex.Lock()
	room, exists := m.rooms[code]
	delete(m.rooms, code)
	m.mutex.Unlock()

	if exists {
		room.Close()
		logger.Log.Infof("房间 %s 已销毁", code)
	}
}

// Close 关闭所有房间
func (m *Manager) Close() {
	m.mutex.Lock()
	rooms := m.rooms
	m.rooms = make(map[string]*Room)
	m.mutex.Unlock()

	for _, r := range rooms {
		r.Close()
	}
}
