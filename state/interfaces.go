// state/interfaces.go
package state

import (
	"time"

	"github.com/wfunc/ludoserver/models"
)

// Player is the identity a state authorizes actions against.
type Player interface {
	GetID() string
}

// RoomContext defines what a Room must expose to be driven by the state machine.
// This breaks the import cycle between room and state.
type RoomContext interface {
	GetID() string
	ChangeState(newState State) error
	// Broadcast encodes payload and delivers it to every current member.
	Broadcast(msgID uint16, payload interface{}) error
	// ScheduleUpdate asks the room to call OnUpdate on its current state at t.
	ScheduleUpdate(t time.Time)
	RecordMatch(record *models.MatchRecord)
	Now() time.Time
}
