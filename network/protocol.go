package network

// 客户端 -> 服务器
const (
	MsgTypeHeartbeat  = 1
	MsgTypeRegister   = 11
	MsgTypeLogin      = 12
	MsgTypeVerify     = 13
	MsgTypeCreateRoom = 101
	MsgTypeJoinRoom   = 102
	MsgTypeLeaveRoom  = 103
	MsgTypeStartMatch = 104
	MsgTypeRollDice   = 201
	MsgTypeMoveToken  = 202
	MsgTypeSendChat   = 203
)

// 服务器 -> 客户端
const (
	MsgTypeAuthResult  = 14
	MsgTypeAuthExpired = 15
	MsgTypeRoomCreated = 105
	MsgTypeRoomJoined  = 106
	MsgTypeRoomState   = 301
	MsgTypeGameStart   = 303
	MsgTypeGameSync    = 304
	MsgTypeGameEnd     = 305
	MsgTypeCapture     = 306
	MsgTypeDiceRolled  = 307
	MsgTypeChatMessage = 308
	MsgTypeError       = 500
)

// MsgName returns a short label for metrics and logs.
func MsgName(msgID uint16) string {
	switch msgID {
	case MsgTypeHeartbeat:
		return "heartbeat"
	case MsgTypeRegister:
		return "register"
	case MsgTypeLogin:
		return "login"
	case MsgTypeVerify:
		return "verify"
	case MsgTypeCreateRoom:
		return "create_room"
	case MsgTypeJoinRoom:
		return "join_room"
	case MsgTypeLeaveRoom:
		return "leave_room"
	case MsgTypeStartMatch:
		return "start_match"
	case MsgTypeRollDice:
		return "roll_dice"
	case MsgTypeMoveToken:
		return "move_token"
	case MsgTypeSendChat:
		return "send_chat"
	case MsgTypeAuthResult:
		return "auth_result"
	case MsgTypeAuthExpired:
		return "auth_expired"
	case MsgTypeRoomCreated:
		return "room_created"
	case MsgTypeRoomJoined:
		return "room_joined"
	case MsgTypeRoomState:
		return "room_state"
	case MsgTypeGameStart:
		return "game_start"
	case MsgTypeGameSync:
		return "game_sync"
	case MsgTypeGameEnd:
		return "game_end"
	case MsgTypeCapture:
		return "capture"
	case MsgTypeDiceRolled:
		return "dice_rolled"
	case MsgTypeChatMessage:
		return "chat_message"
	case MsgTypeError:
		return "error"
	default:
		return "unknown"
	}
}
