// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/ludoserver/logger"
	"github.com/wfunc/ludoserver/session"
)

// 广播接口
type Broadcaster interface {
	BroadcastToRoom(roomCode string, msgID uint16, data []byte) error
	BroadcastToAll(msgID uint16, data []byte) error
	BroadcastToUsers(userIDs []string, msgID uint16, data []byte) error
}

// 基于会话的广播器，房间成员按用户投递到他的所有连接
type RoomBroadcaster struct {
	sessionManager *session.Manager
}

func NewRoomBroadcaster(sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		sessionManager: sessionManager,
	}
}

// BroadcastToRoom sends to every connection currently inside roomCode.
func (b *RoomBroadcaster) BroadcastToRoom(roomCode string, msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.All() {
		if s.RoomCode() == roomCode {
			b.send(s, msgID, data)
		}
	}
	return nil
}

// BroadcastToAll sends to every authenticated connection.
func (b *RoomBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.All() {
		if s.UserID() != "" {
			b.send(s, msgID, data)
		}
	}
	return nil
}

func (b *RoomBroadcaster) BroadcastToUsers(userIDs []string, msgID uint16, data []byte) error {
	for _, userID := range userIDs {
		for _, s := range b.sessionManager.GetByUserID(userID) {
			b.send(s, msgID, data)
		}
	}
	return nil
}

// send 发送失败只记录日志，断开由连接的读循环处理
func (b *RoomBroadcaster) send(s *session.Session, msgID uint16, data []byte) {
	if err := s.Send(msgID, data); err != nil {
		logger.Log.Debugf("发送消息 %d 到会话 %s 失败: %v", msgID, s.ID, err)
	}
}
