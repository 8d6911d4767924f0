// room/room.go
package room

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/wfunc/ludoserver/board"
	"github.com/wfunc/ludoserver/game"
	"github.com/wfunc/ludoserver/logger"
	"github.com/wfunc/ludoserver/models"
	"github.com/wfunc/ludoserver/network"
	"github.com/wfunc/ludoserver/state"
)

// RoomStatus 房间的业务状态
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusInGame   RoomStatus = "in_game"
	StatusFinished RoomStatus = "finished"
)

// Participant is an authenticated identity entering a room.
type Participant struct {
	UserID string
	Name   string
}

// Member 房间成员，开局后分配颜色
type Member struct {
	UserID   string
	Name     string
	Color    board.Color
	JoinedAt time.Time
}

// GetID implements state.Player.
func (m *Member) GetID() string {
	return m.UserID
}

// MemberView is the roster entry of one member.
type MemberView struct {
	UserID string      `json:"user_id"`
	Name   string      `json:"name"`
	Color  board.Color `json:"color"`
	Host   bool        `json:"host"`
}

// RoomView 房间花名册，与对局快照分开发布
type RoomView struct {
	Code    string       `json:"code"`
	HostID  string       `json:"host_id"`
	Status  RoomStatus   `json:"status"`
	Members []MemberView `json:"members"`
	Chat    []ChatEntry  `json:"chat"`
}

// Room 是游戏房间的核心结构，mu 串行化房间内的所有变更
type Room struct {
	Code         string
	CreatedAt    time.Time
	StateMachine state.StateMachine

	hostID  string
	members []*Member
	match   *game.Match
	chat    *chatLog
	timers  map[int64]struct{}
	closed  bool
	opts    *Options
	mu      sync.Mutex

	// 已结束待保存的对局，释放 mu 之后交给 Recorder
	finished []*models.MatchRecord
}

func newRoom(code string, host Participant, opts *Options) *Room {
	r := &Room{
		Code:      code,
		CreatedAt: opts.now(),
		hostID:    host.UserID,
		chat:      newChatLog(opts.ChatHistory),
		timers:    make(map[int64]struct{}),
		opts:      opts,
	}
	r.members = append(r.members, &Member{
		UserID:   host.UserID,
		Name:     displayName(host.Name),
		Color:    board.NoColor,
		JoinedAt: r.CreatedAt,
	})
	// 初始化状态机，将房间自身作为上下文传入
	r.StateMachine = state.NewRoomStateMachine(r)
	return r
}

// --- 实现 state.RoomContext 接口，调用方已持有 mu ---

// GetID 返回房间号
func (r *Room) GetID() string {
	return r.Code
}

// ChangeState switches the lifecycle state and republishes the roster.
func (r *Room) ChangeState(newState state.State) error {
	if err := r.StateMachine.ChangeState(newState); err != nil {
		return err
	}
	r.broadcastRoster()
	return nil
}

// Broadcast sends payload as JSON to every current member.
func (r *Room) Broadcast(msgID uint16, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", network.MsgName(msgID), err)
	}
	if len(data) > math.MaxUint16 {
		return fmt.Errorf("encode %s: %w", network.MsgName(msgID), network.ErrPacketTooLarge)
	}
	if r.opts.Observer != nil {
		r.opts.Observer.OnRoomEvent(msgID)
	}
	if r.opts.Broadcaster == nil {
		return nil
	}
	userIDs := make([]string, 0, len(r.members))
	for _, m := range r.members {
		userIDs = append(userIDs, m.UserID)
	}
	return r.opts.Broadcaster.BroadcastToUsers(userIDs, msgID, data)
}

// ScheduleUpdate drives the current state's OnUpdate at t.
func (r *Room) ScheduleUpdate(t time.Time) {
	if r.opts.Scheduler == nil || r.closed {
		return
	}
	var id int64
	id = r.opts.Scheduler.AddTimer(t.Sub(r.opts.now()), 0, func() {
		r.mu.Lock()
		delete(r.timers, id)
		r.mu.Unlock()
		r.Update()
	})
	r.timers[id] = struct{}{}
}

// RecordMatch queues a finished match. It is saved once mu is released.
func (r *Room) RecordMatch(record *models.MatchRecord) {
	r.finished = append(r.finished, record)
}

// unlock releases mu, then hands queued match records to the recorder.
func (r *Room) unlock() {
	records := r.finished
	r.finished = nil
	r.mu.Unlock()

	if r.opts.Recorder == nil {
		return
	}
	for _, record := range records {
		if err := r.opts.Recorder.RecordMatch(record); err != nil {
			logger.Log.Errorf("房间 %s 保存对局记录失败: %v", r.Code, err)
		}
	}
}

// Now returns the room clock.
func (r *Room) Now() time.Time {
	return r.opts.now()
}

// --- 房间核心逻辑 ---

// Update 由定时器调用，驱动状态机更新
func (r *Room) Update() {
	r.mu.Lock()
	defer r.unlock()
	if r.closed {
		return
	}
	if currentState := r.StateMachine.GetCurrentState(); currentState != nil {
		currentState.OnUpdate()
	}
}

// Status 由状态机当前状态推导
func (r *Room) Status() RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status()
}

func (r *Room) status() RoomStatus {
	switch r.StateMachine.GetCurrentState().GetID() {
	case state.StateGaming:
		return StatusInGame
	case state.StateFinished:
		return StatusFinished
	default:
		return StatusWaiting
	}
}

func (r *Room) member(userID string) (int, *Member) {
	for i, m := range r.members {
		if m.UserID == userID {
			return i, m
		}
	}
	return -1, nil
}

func (r *Room) join(p Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	if r.status() != StatusWaiting {
		return ErrMatchAlreadyStarted
	}
	if _, m := r.member(p.UserID); m != nil {
		return ErrAlreadyMember
	}
	if len(r.members) >= r.opts.maxPlayers() {
		return ErrRoomFull
	}

	r.members = append(r.members, &Member{
		UserID:   p.UserID,
		Name:     displayName(p.Name),
		Color:    board.NoColor,
		JoinedAt: r.opts.now(),
	})
	r.broadcastRoster()
	return nil
}

// leave removes a member. It reports whether the room is now empty and closed.
func (r *Room) leave(userID string) (bool, error) {
	r.mu.Lock()
	defer r.unlock()

	if r.closed {
		return false, ErrRoomNotFound
	}
	i, m := r.member(userID)
	if m == nil {
		return false, ErrNotMember
	}
	r.members = append(r.members[:i], r.members[i+1:]...)

	if len(r.members) == 0 {
		r.close()
		return true, nil
	}
	if r.hostID == userID {
		r.hostID = r.members[0].UserID
	}

	r.appendChat(ChatEntry{
		Name:   "system",
		Color:  chatColorUnassigned,
		Text:   fmt.Sprintf("%s left the room", m.Name),
		System: true,
		Time:   r.opts.now(),
	})
	r.broadcastRoster()

	if gs, ok := r.StateMachine.GetCurrentState().(*state.GamingState); ok {
		gs.HandOver(userID)
	}
	return false, nil
}

func (r *Room) start(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	if r.hostID != userID {
		return ErrNotHost
	}
	if r.status() != StatusWaiting {
		return ErrAlreadyStarted
	}
	if len(r.members) < minPlayers {
		return ErrNotEnoughPlayers
	}

	seats := make([]game.Seat, len(r.members))
	for i, m := range r.members {
		m.Color = board.Colors[i]
		seats[i] = game.Seat{Color: m.Color, UserID: m.UserID, Name: m.Name, Controller: game.ControllerHuman}
	}
	opts := []game.Option{
		game.WithForfeitDelay(r.opts.ForfeitDelay),
		game.WithClock(r.opts.now),
	}
	if r.opts.NewDice != nil {
		opts = append(opts, game.WithDice(r.opts.NewDice()))
	}
	match, err := game.NewMatch(seats, opts...)
	if err != nil {
		return err
	}
	r.match = match
	return r.ChangeState(state.NewGamingState(r, match))
}

func (r *Room) act(userID string, action state.Action) (state.Outcome, error) {
	r.mu.Lock()
	defer r.unlock()

	if r.closed {
		return state.Outcome{}, ErrRoomNotFound
	}
	_, m := r.member(userID)
	if m == nil {
		return state.Outcome{}, ErrNotMember
	}
	return r.StateMachine.GetCurrentState().HandleAction(m, action)
}

func (r *Room) say(userID, text string) (ChatEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ChatEntry{}, ErrRoomNotFound
	}
	_, m := r.member(userID)
	if m == nil {
		return ChatEntry{}, ErrNotMember
	}
	text = sanitizeChat(text, r.opts.ChatMaxLength)
	if text == "" {
		return ChatEntry{}, ErrEmptyMessage
	}

	color := chatColorUnassigned
	if m.Color.Valid() {
		color = m.Color.String()
	}
	entry := ChatEntry{
		UserID: m.UserID,
		Name:   m.Name,
		Color:  color,
		Text:   text,
		Time:   r.opts.now(),
	}
	r.appendChat(entry)
	return entry, nil
}

// announce posts a system line to the room chat.
func (r *Room) announce(text string) (ChatEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ChatEntry{}, ErrRoomNotFound
	}
	text = sanitizeChat(text, r.opts.ChatMaxLength)
	if text == "" {
		return ChatEntry{}, ErrEmptyMessage
	}
	entry := ChatEntry{
		Name:   "system",
		Color:  chatColorUnassigned,
		Text:   text,
		System: true,
		Time:   r.opts.now(),
	}
	r.appendChat(entry)
	return entry, nil
}

func (r *Room) appendChat(entry ChatEntry) {
	r.chat.append(entry)
	r.Broadcast(network.MsgTypeChatMessage, entry)
}

// View returns the roster with the recent chat tail.
func (r *Room) View() RoomView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view()
}

// view builds the roster. The chat tail is cut so the encoded roster fits in one packet.
func (r *Room) view() RoomView {
	v := RoomView{
		Code:    r.Code,
		HostID:  r.hostID,
		Status:  r.status(),
		Members: make([]MemberView, len(r.members)),
		Chat:    []ChatEntry{},
	}
	for i, m := range r.members {
		v.Members[i] = MemberView{
			UserID: m.UserID,
			Name:   m.Name,
			Color:  m.Color,
			Host:   m.UserID == r.hostID,
		}
	}
	base, err := json.Marshal(v)
	if err != nil {
		return v
	}
	v.Chat = r.chat.tailWithin(r.opts.ChatTail, math.MaxUint16-len(base))
	return v
}

// summary is the list entry of the room.
func (r *Room) summary() RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomSummary{
		Code:      r.Code,
		HostID:    r.hostID,
		Status:    r.status(),
		Players:   len(r.members),
		CreatedAt: r.CreatedAt,
	}
}

// Snapshot returns the match snapshot once a match has started.
func (r *Room) Snapshot() (game.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.match == nil {
		return game.Snapshot{}, false
	}
	return r.match.Snapshot(), true
}

func (r *Room) broadcastRoster() {
	if err := r.Broadcast(network.MsgTypeRoomState, r.view()); err != nil {
		logger.Log.Warnf("房间 %s 广播花名册失败: %v", r.Code, err)
	}
}

// Close 关闭房间，取消未触发的定时器
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.close()
}

func (r *Room) close() {
	if r.closed {
		return
	}
	r.closed = true
	if r.opts.Scheduler != nil {
		for id := range r.timers {
			r.opts.Scheduler.RemoveTimer(id)
		}
	}
	r.timers = nil
}
