package state

import (
	"time"

	"github.com/wfunc/ludoserver/ai"
	"github.com/wfunc/ludoserver/board"
	"github.com/wfunc/ludoserver/game"
	"github.com/wfunc/ludoserver/logger"
	"github.com/wfunc/ludoserver/models"
	"github.com/wfunc/ludoserver/network"
)

const (
	ActionRoll = "roll"
	ActionMove = "move"
)

// Action is a player intent routed to the current state.
type Action struct {
	Type    string `json:"type"`
	TokenID int    `json:"token_id"`
}

// Outcome reports what an accepted action did.
type Outcome struct {
	Roll *game.RollResult `json:"roll,omitempty"`
	Move *game.MoveResult `json:"move,omitempty"`
}

// CaptureEvent 吃子通知
type CaptureEvent struct {
	Color    board.Color    `json:"color"`
	TokenID  int            `json:"token_id"`
	Captured []game.Capture `json:"captured"`
}

// WinEvent 胜利通知
type WinEvent struct {
	Color  board.Color `json:"color"`
	UserID string      `json:"user_id"`
	Name   string      `json:"name"`
}

// GamingState 对局进行中，持有唯一的 Match 并串行处理掷骰和走子
type GamingState struct {
	RoomStateBase
	Match     *game.Match
	StartedAt time.Time
}

// NewGamingState 创建新的游戏状态
func NewGamingState(room RoomContext, match *game.Match) *GamingState {
	return &GamingState{
		RoomStateBase: RoomStateBase{
			ID:   StateGaming,
			Room: room,
		},
		Match: match,
	}
}

// OnEnter 进入游戏状态
func (s *GamingState) OnEnter() {
	s.StartedAt = s.Room.Now()
	logger.Log.Infof("房间 %s 开局，玩家数: %d", s.Room.GetID(), s.Match.PlayerCount())
	s.Room.Broadcast(network.MsgTypeGameStart, s.Match.Snapshot())
}

// OnExit 退出游戏状态
func (s *GamingState) OnExit() {
	logger.Log.Infof("房间 %s 退出游戏状态", s.Room.GetID())
}

// OnUpdate completes a forfeited turn once its deadline has passed and
// resumes computer seats.
func (s *GamingState) OnUpdate() {
	if s.Match.Tick(s.Room.Now()) {
		s.syncGameState()
	}
	s.autoplay()
}

// HandleAction authorizes and applies a roll or move from player.
// A rejected action leaves the match untouched and publishes nothing.
func (s *GamingState) HandleAction(player Player, action Action) (Outcome, error) {
	if action.Type != ActionRoll && action.Type != ActionMove {
		return Outcome{}, ErrUnknownAction
	}
	if s.Match.Phase() == game.PhaseDone {
		return Outcome{}, ErrNotInGame
	}
	current := s.Match.CurrentPlayer()
	if current.Controller != game.ControllerHuman || current.UserID != player.GetID() {
		return Outcome{}, ErrNotYourTurn
	}

	var out Outcome
	switch action.Type {
	case ActionRoll:
		if s.Match.Phase() != game.PhaseRoll {
			return Outcome{}, ErrWrongPhase
		}
		roll, ok := s.Match.RollDice()
		if !ok {
			return Outcome{}, ErrWrongPhase
		}
		s.publishRoll(roll)
		out.Roll = &roll
	case ActionMove:
		if s.Match.Phase() != game.PhaseMove {
			return Outcome{}, ErrWrongPhase
		}
		move, ok := s.Match.MoveToken(action.TokenID)
		if !ok {
			return Outcome{}, ErrIllegalMove
		}
		s.publishMove(move)
		out.Move = &move
	}

	s.autoplay()
	return out, nil
}

// HandOver gives a departed player's seat to the move advisor.
func (s *GamingState) HandOver(userID string) bool {
	if s.Match.Phase() == game.PhaseDone {
		return false
	}
	if !s.Match.SetController(userID, game.ControllerComputer) {
		return false
	}
	logger.Log.Infof("房间 %s 玩家 %s 离开，由电脑接管", s.Room.GetID(), userID)
	s.syncGameState()
	s.autoplay()
	return true
}

// autoplay acts for computer seats until a person must act, a forfeited
// turn is held, or the match ends. A burst cut short by the step cap
// continues on the next update.
func (s *GamingState) autoplay() {
	more := ai.PlayComputerTurns(s.Match, func(step ai.Step) {
		if step.Roll != nil {
			s.publishRoll(*step.Roll)
		}
		if step.Move != nil {
			s.publishMove(*step.Move)
		}
	})
	if more {
		s.Room.ScheduleUpdate(s.Room.Now())
	}
}

func (s *GamingState) publishRoll(roll game.RollResult) {
	s.Room.Broadcast(network.MsgTypeDiceRolled, roll)
	s.syncGameState()
	if deadline, pending := s.Match.Pending(); pending {
		s.Room.ScheduleUpdate(deadline)
	}
}

func (s *GamingState) publishMove(move game.MoveResult) {
	s.syncGameState()
	if move.Captured() {
		s.Room.Broadcast(network.MsgTypeCapture, CaptureEvent{
			Color:    move.Color,
			TokenID:  move.TokenID,
			Captured: move.Captures,
		})
	}
	if move.Won {
		s.endGame(move.Color)
	}
}

func (s *GamingState) syncGameState() {
	if err := s.Room.Broadcast(network.MsgTypeGameSync, s.Match.Snapshot()); err != nil {
		logger.Log.Errorf("房间 %s 同步状态失败: %v", s.Room.GetID(), err)
	}
}

func (s *GamingState) endGame(winner board.Color) {
	snap := s.Match.Snapshot()
	record := &models.MatchRecord{
		RoomCode:    s.Room.GetID(),
		WinnerColor: winner.String(),
		StartedAt:   s.StartedAt,
		FinishedAt:  s.Room.Now(),
	}
	event := WinEvent{Color: winner}
	for _, p := range snap.Players {
		if p.Color == winner {
			event.UserID = p.UserID
			event.Name = p.Name
			record.WinnerID = p.UserID
		}
		record.Players = append(record.Players, models.MatchParticipant{
			UserID:        p.UserID,
			Name:          p.Name,
			Color:         p.Color.String(),
			FinishedCount: p.FinishedCount,
		})
	}

	logger.Log.Infof("房间 %s 对局结束，胜者 %s (%s)", s.Room.GetID(), event.Name, winner)
	s.Room.Broadcast(network.MsgTypeGameEnd, event)
	s.Room.RecordMatch(record)

	if err := s.Room.ChangeState(NewFinishedState(s.Room, winner)); err != nil {
		logger.Log.Errorf("房间 %s 切换到结束状态失败: %v", s.Room.GetID(), err)
	}
}
