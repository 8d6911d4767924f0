package state

import (
	"github.com/wfunc/ludoserver/board"
	"github.com/wfunc/ludoserver/logger"
)

// FinishedState 对局已分出胜负，房间只保留花名册和聊天
type FinishedState struct {
	RoomStateBase
	Winner board.Color
}

func NewFinishedState(room RoomContext, winner board.Color) *FinishedState {
	return &FinishedState{
		RoomStateBase: RoomStateBase{
			ID:   StateFinished,
			Room: room,
		},
		Winner: winner,
	}
}

func (s *FinishedState) OnEnter() {
	logger.Log.Infof("房间 %s 进入结束状态，胜者 %s", s.Room.GetID(), s.Winner)
}
