package room

import (
	"time"

	"github.com/wfunc/ludoserver/models"
)

// Broadcaster delivers an encoded packet to every session of the given users.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToUsers(userIDs []string, msgID uint16, data []byte) error
}

// MatchRecorder stores a finished match.
type MatchRecorder interface {
	RecordMatch(record *models.MatchRecord) error
}

// Scheduler runs delayed callbacks. timer.TimerManager satisfies it.
type Scheduler interface {
	AddTimer(delay time.Duration, interval time.Duration, callback func()) int64
	RemoveTimer(timerId int64)
}

// Observer is told about every packet a room publishes.
type Observer interface {
	OnRoomEvent(msgID uint16)
}
