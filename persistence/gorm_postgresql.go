// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/wfunc/ludoserver/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormUser{},
		&models.GormMatchRecord{},
		&models.GormMatchParticipant{},
	)
}

func (p *GormPostgreSQL) CreateUser(user *models.User) error {
	row := models.GormUser{
		UserID:       user.UserID,
		Name:         user.Name,
		NameKey:      user.NameKey,
		PasswordHash: user.PasswordHash,
	}
	if err := p.db.Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateRecord
		}
		return err
	}
	return nil
}

func (p *GormPostgreSQL) FindUserByName(nameKey string) (*models.User, error) {
	return p.findUser("name_key = ?", nameKey)
}

func (p *GormPostgreSQL) FindUserByID(userID string) (*models.User, error) {
	return p.findUser("user_id = ?", userID)
}

func (p *GormPostgreSQL) findUser(query string, arg string) (*models.User, error) {
	var row models.GormUser
	if err := p.db.Where(query, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return row.ToUser(), nil
}

// SaveMatchRecord 在一个事务里写入对局和参与者
func (p *GormPostgreSQL) SaveMatchRecord(record *models.MatchRecord) error {
	return p.Transaction(func(tx *gorm.DB) error {
		row := models.NewGormMatchRecord(record)
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateRecord
			}
			return err
		}
		return nil
	})
}

// GetPlayerStats 汇总玩家的对局统计
func (p *GormPostgreSQL) GetPlayerStats(userID string) (*models.PlayerStats, error) {
	var row struct {
		TotalGames int
		Wins       int
		PlayTime   float64
	}
	err := p.db.Raw(`
        SELECT
            COUNT(*) AS total_games,
            COALESCE(SUM(CASE WHEN mp.outcome = 'win' THEN 1 ELSE 0 END), 0) AS wins,
            COALESCE(SUM(EXTRACT(EPOCH FROM (mr.finished_at - mr.started_at))), 0) AS play_time
        FROM match_participants mp
        JOIN match_records mr ON mr.id = mp.match_record_id
        WHERE mp.user_id = ? AND mp.deleted_at IS NULL`,
		userID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return &models.PlayerStats{
		UserID:     userID,
		TotalGames: row.TotalGames,
		Wins:       row.Wins,
		Losses:     row.TotalGames - row.Wins,
		PlayTime:   int(row.PlayTime),
	}, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction 事务支持
func (p *GormPostgreSQL) Transaction(fn func(tx *gorm.DB) error) error {
	return p.db.Transaction(fn)
}
