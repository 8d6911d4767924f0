// persistence/memory.go
package persistence

import (
	"sync"

	"github.com/wfunc/ludoserver/models"
)

// MemoryDatabase keeps everything in process memory and loses it on restart.
type MemoryDatabase struct {
	users   map[string]*models.User // userID -> user
	byName  map[string]string       // nameKey -> userID
	records []*models.MatchRecord
	mutex   sync.RWMutex
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		users:  make(map[string]*models.User),
		byName: make(map[string]string),
	}
}

func (m *MemoryDatabase) CreateUser(user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.byName[user.NameKey]; exists {
		return ErrDuplicateRecord
	}
	if _, exists := m.users[user.UserID]; exists {
		return ErrDuplicateRecord
	}
	u := *user
	m.users[u.UserID] = &u
	m.byName[u.NameKey] = u.UserID
	return nil
}

func (m *MemoryDatabase) FindUserByName(nameKey string) (*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	userID, exists := m.byName[nameKey]
	if !exists {
		return nil, ErrRecordNotFound
	}
	u := *m.users[userID]
	return &u, nil
}

func (m *MemoryDatabase) FindUserByID(userID string) (*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	user, exists := m.users[userID]
	if !exists {
		return nil, ErrRecordNotFound
	}
	u := *user
	return &u, nil
}

func (m *MemoryDatabase) SaveMatchRecord(record *models.MatchRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, r := range m.records {
		if r.MatchID == record.MatchID {
			return ErrDuplicateRecord
		}
	}
	r := *record
	r.Players = append([]models.MatchParticipant(nil), record.Players...)
	m.records = append(m.records, &r)
	return nil
}

func (m *MemoryDatabase) GetPlayerStats(userID string) (*models.PlayerStats, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return statsFromRecords(userID, m.records), nil
}

func (m *MemoryDatabase) Close() error {
	return nil
}
