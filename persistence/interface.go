// persistence/interface.go
package persistence

import (
	"errors"
	"fmt"

	"github.com/wfunc/ludoserver/config"
	"github.com/wfunc/ludoserver/models"
)

// Database 数据库接口
type Database interface {
	CreateUser(user *models.User) error
	FindUserByName(nameKey string) (*models.User, error)
	FindUserByID(userID string) (*models.User, error)
	SaveMatchRecord(record *models.MatchRecord) error
	GetPlayerStats(userID string) (*models.PlayerStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrDuplicateRecord = errors.New("duplicate record")
)

// Open 根据配置选择存储实现
func Open(cfg config.DatabaseConfig) (Database, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryDatabase(), nil
	case "gorm":
		return NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "postgres":
		return NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func statsFromRecords(userID string, records []*models.MatchRecord) *models.PlayerStats {
	stats := &models.PlayerStats{UserID: userID}
	for _, r := range records {
		for _, p := range r.Players {
			if p.UserID != userID {
				continue
			}
			stats.TotalGames++
			if r.WinnerID == userID {
				stats.Wins++
			} else {
				stats.Losses++
			}
			stats.PlayTime += int(r.Duration().Seconds())
		}
	}
	return stats
}
