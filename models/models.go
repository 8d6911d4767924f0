// models/models.go
package models

import (
	"time"
)

// User 注册用户
type User struct {
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	NameKey      string    `json:"-"` // lower-cased name used for lookups
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// MatchRecord 一局结束后的记录
type MatchRecord struct {
	MatchID     string             `json:"match_id"`
	RoomCode    string             `json:"room_code"`
	Players     []MatchParticipant `json:"players"`
	WinnerID    string             `json:"winner_id"`
	WinnerColor string             `json:"winner_color"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
}

// MatchParticipant 参与者信息（用于对局记录）
type MatchParticipant struct {
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	Color         string `json:"color"`
	FinishedCount int    `json:"finished_count"`
	Outcome       string `json:"outcome"` // win/lose
}

// Duration returns how long the match ran.
func (r MatchRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// PlayerStats 玩家统计信息
type PlayerStats struct {
	UserID     string `json:"user_id"`
	TotalGames int    `json:"total_games"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	PlayTime   int    `json:"play_time"` // 总游戏时长(秒)
}
