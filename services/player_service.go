// services/player_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wfunc/ludoserver/models"
	"github.com/wfunc/ludoserver/persistence"
)

type PlayerService struct {
	db persistence.Database
}

func NewPlayerService(db persistence.Database) *PlayerService {
	return &PlayerService{db: db}
}

// PlayerProfile 玩家信息和统计
type PlayerProfile struct {
	UserID string              `json:"user_id"`
	Name   string              `json:"name"`
	Stats  *models.PlayerStats `json:"stats"`
}

// GetPlayerWithStats 获取玩家信息和统计
func (s *PlayerService) GetPlayerWithStats(userID string) (*PlayerProfile, error) {
	user, err := s.db.FindUserByID(userID)
	if err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	stats, err := s.db.GetPlayerStats(userID)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	return &PlayerProfile{UserID: user.UserID, Name: user.Name, Stats: stats}, nil
}

// RecordMatch 保存一局结束后的结果
func (s *PlayerService) RecordMatch(record *models.MatchRecord) error {
	if record.MatchID == "" {
		record.MatchID = uuid.New().String()
	}
	for i := range record.Players {
		if record.Players[i].UserID == record.WinnerID {
			record.Players[i].Outcome = "win"
		} else {
			record.Players[i].Outcome = "lose"
		}
	}
	return s.db.SaveMatchRecord(record)
}
