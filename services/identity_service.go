// services/identity_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/form3tech-oss/jwt-go"
	"github.com/google/uuid"
	"github.com/wfunc/ludoserver/models"
	"github.com/wfunc/ludoserver/persistence"
	"golang.org/x/crypto/bcrypt"
)

const (
	minNameLength   = 3
	maxNameLength   = 24
	minSecretLength = 4
)

var (
	ErrNameTooShort               = errors.New("username must be at least 3 characters")
	ErrNameTooLong                = errors.New("username must be at most 24 characters")
	ErrSecretTooShort             = errors.New("password must be at least 4 characters")
	ErrNameTaken                  = errors.New("username already taken")
	ErrUserNotFound               = errors.New("user not found")
	ErrWrongSecret                = errors.New("wrong password")
	ErrInvalidOrExpiredCredential = errors.New("invalid or expired session")
	// ErrCredentialExpired matches ErrInvalidOrExpiredCredential with errors.Is.
	ErrCredentialExpired = fmt.Errorf("%w: session expired, please login again", ErrInvalidOrExpiredCredential)
)

// Identity is the authenticated user behind a credential.
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"username"`
}

// Credential 登录或注册成功后发放的会话凭证
type Credential struct {
	Identity
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IdentityService 负责注册、登录和会话校验
type IdentityService struct {
	db         persistence.Database
	secret     []byte
	ttl        time.Duration
	bcryptCost int
	now        func() time.Time
}

func NewIdentityService(db persistence.Database, secret string, ttl time.Duration, bcryptCost int) *IdentityService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &IdentityService{
		db:         db,
		secret:     []byte(secret),
		ttl:        ttl,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register creates a user and returns a fresh session credential.
func (s *IdentityService) Register(name, secret string) (*Credential, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < minNameLength {
		return nil, ErrNameTooShort
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, ErrNameTooLong
	}
	if len(secret) < minSecretLength {
		return nil, ErrSecretTooShort
	}

	key := nameKey(name)
	if _, err := s.db.FindUserByName(key); err == nil {
		return nil, ErrNameTaken
	} else if !errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		UserID:       uuid.New().String(),
		Name:         name,
		NameKey:      key,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.db.CreateUser(user); err != nil {
		if errors.Is(err, persistence.ErrDuplicateRecord) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(Identity{UserID: user.UserID, Name: user.Name})
}

// Authenticate checks a name and secret and returns a fresh session credential.
func (s *IdentityService) Authenticate(name, secret string) (*Credential, error) {
	user, err := s.db.FindUserByName(nameKey(name))
	if err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(secret)); err != nil {
		return nil, ErrWrongSecret
	}

	return s.issue(Identity{UserID: user.UserID, Name: user.Name})
}

// Verify resolves a credential to its identity. Expired credentials fail with
// ErrCredentialExpired, anything else unusable with ErrInvalidOrExpiredCredential.
func (s *IdentityService) Verify(token string) (Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return Identity{}, ErrCredentialExpired
		}
		return Identity{}, ErrInvalidOrExpiredCredential
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return Identity{}, ErrInvalidOrExpiredCredential
	}
	userID, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)
	if userID == "" {
		return Identity{}, ErrInvalidOrExpiredCredential
	}
	return Identity{UserID: userID, Name: name}, nil
}

func (s *IdentityService) issue(id Identity) (*Credential, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub":  id.UserID,
		"name": id.Name,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &Credential{Identity: id, Token: signed, ExpiresAt: expiresAt}, nil
}
