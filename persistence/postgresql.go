// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/wfunc/ludoserver/models"
)

// pq 的唯一约束冲突错误码
const uniqueViolation = "23505"

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            user_id VARCHAR(64) UNIQUE NOT NULL,
            name VARCHAR(255) NOT NULL,
            name_key VARCHAR(255) UNIQUE NOT NULL,
            password_hash BYTEA NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS match_records (
            id SERIAL PRIMARY KEY,
            match_id VARCHAR(64) UNIQUE NOT NULL,
            room_code VARCHAR(16) NOT NULL,
            winner_id VARCHAR(64),
            winner_color VARCHAR(16) NOT NULL,
            started_at TIMESTAMP NOT NULL,
            finished_at TIMESTAMP NOT NULL
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS match_participants (
            id SERIAL PRIMARY KEY,
            match_record_id INTEGER NOT NULL REFERENCES match_records(id),
            user_id VARCHAR(64) NOT NULL,
            name VARCHAR(255) NOT NULL,
            color VARCHAR(16) NOT NULL,
            finished_count INTEGER DEFAULT 0,
            outcome VARCHAR(8) NOT NULL
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_match_records_room_code ON match_records(room_code);
        CREATE INDEX IF NOT EXISTS idx_match_participants_user_id ON match_participants(user_id);
    `)

	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (p *PostgreSQL) CreateUser(user *models.User) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `INSERT INTO users (user_id, name, name_key, password_hash) VALUES ($1, $2, $3, $4)`
	_, err := p.db.ExecContext(ctx, query, user.UserID, user.Name, user.NameKey, user.PasswordHash)
	if isUniqueViolation(err) {
		return ErrDuplicateRecord
	}
	return err
}

func (p *PostgreSQL) FindUserByName(nameKey string) (*models.User, error) {
	return p.findUser(`SELECT user_id, name, name_key, password_hash, created_at FROM users WHERE name_key = $1`, nameKey)
}

func (p *PostgreSQL) FindUserByID(userID string) (*models.User, error) {
	return p.findUser(`SELECT user_id, name, name_key, password_hash, created_at FROM users WHERE user_id = $1`, userID)
}

func (p *PostgreSQL) findUser(query, arg string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var u models.User
	err := p.db.QueryRowContext(ctx, query, arg).Scan(&u.UserID, &u.Name, &u.NameKey, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &u, nil
}

// SaveMatchRecord 保存对局记录
func (p *PostgreSQL) SaveMatchRecord(record *models.MatchRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
        INSERT INTO match_records (match_id, room_code, winner_id, winner_color, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`,
		record.MatchID, record.RoomCode, record.WinnerID, record.WinnerColor, record.StartedAt, record.FinishedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateRecord
		}
		return err
	}

	for _, pl := range record.Players {
		_, err = tx.ExecContext(ctx, `
            INSERT INTO match_participants (match_record_id, user_id, name, color, finished_count, outcome)
            VALUES ($1, $2, $3, $4, $5, $6)`,
			id, pl.UserID, pl.Name, pl.Color, pl.FinishedCount, pl.Outcome)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetPlayerStats 汇总玩家的对局统计
func (p *PostgreSQL) GetPlayerStats(userID string) (*models.PlayerStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats := &models.PlayerStats{UserID: userID}
	var playTime float64
	err := p.db.QueryRowContext(ctx, `
        SELECT
            COUNT(*),
            COALESCE(SUM(CASE WHEN mp.outcome = 'win' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(EXTRACT(EPOCH FROM (mr.finished_at - mr.started_at))), 0)
        FROM match_participants mp
        JOIN match_records mr ON mr.id = mp.match_record_id
        WHERE mp.user_id = $1`, userID,
	).Scan(&stats.TotalGames, &stats.Wins, &playTime)
	if err != nil {
		return nil, err
	}
	stats.Losses = stats.TotalGames - stats.Wins
	stats.PlayTime = int(playTime)
	return stats, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
