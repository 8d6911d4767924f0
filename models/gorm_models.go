// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormUser 用户表
type GormUser struct {
	gorm.Model
	UserID       string `gorm:"uniqueIndex;not null"`
	Name         string `gorm:"not null"`
	NameKey      string `gorm:"uniqueIndex;not null"`
	PasswordHash []byte `gorm:"not null"`
}

func (GormUser) TableName() string { return "users" }

// GormMatchRecord 对局记录表
type GormMatchRecord struct {
	gorm.Model
	MatchID      string                 `gorm:"uniqueIndex;not null"`
	RoomCode     string                 `gorm:"index;not null"`
	WinnerID     string                 `gorm:"index"`
	WinnerColor  string                 `gorm:"not null"`
	StartedAt    time.Time              `gorm:"not null"`
	FinishedAt   time.Time              `gorm:"not null"`
	Participants []GormMatchParticipant `gorm:"foreignKey:MatchRecordID"`
}

func (GormMatchRecord) TableName() string { return "match_records" }

// GormMatchParticipant 对局参与者，一行一个玩家
type GormMatchParticipant struct {
	gorm.Model
	MatchRecordID uint   `gorm:"index;not null"`
	UserID        string `gorm:"index;not null"`
	Name          string `gorm:"not null"`
	Color         string `gorm:"not null"`
	FinishedCount int    `gorm:"default:0"`
	Outcome       string `gorm:"not null"`
}

func (GormMatchParticipant) TableName() string { return "match_participants" }

// ToUser converts the row into the domain record.
func (u GormUser) ToUser() *User {
	return &User{
		UserID:       u.UserID,
		Name:         u.Name,
		NameKey:      u.NameKey,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

// NewGormMatchRecord converts a domain record into rows.
func NewGormMatchRecord(r *MatchRecord) *GormMatchRecord {
	row := &GormMatchRecord{
		MatchID:     r.MatchID,
		RoomCode:    r.RoomCode,
		WinnerID:    r.WinnerID,
		WinnerColor: r.WinnerColor,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
	}
	for _, p := range r.Players {
		row.Participants = append(row.Participants, GormMatchParticipant{
			UserID:        p.UserID,
			Name:          p.Name,
			Color:         p.Color,
			FinishedCount: p.FinishedCount,
			Outcome:       p.Outcome,
		})
	}
	return row
}
