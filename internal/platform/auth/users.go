package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinic/clinic/internal/platform/db"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameTaken  = errors.New("username already exists")
	ErrWeakPassword   = errors.New("password must be at least 8 characters")
	ErrInvalidLogin   = errors.New("invalid credentials")
	errUsernameFormat = errors.New("username must be 1-150 characters without spaces")
)

const minPasswordLen = 8

// bcryptCost is lowered in tests.
var bcryptCost = bcrypt.DefaultCost

// User is a staff account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserStore interface {
	Create(ctx context.Context, u *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
}

func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", ErrWeakPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CreateUser validates the credentials and stores a new staff account.
func CreateUser(ctx context.Context, store UserStore, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > 150 || strings.ContainsAny(username, " \t") {
		return nil, errUsernameFormat
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &User{Username: username, PasswordHash: hash}
	if err := store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

type userStorePG struct{ db db.Querier }

func NewUserStorePG(q db.Querier) UserStore { return &userStorePG{db: q} }

func (s *userStorePG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	err := s.db.QueryRow(ctx, `
		INSERT INTO staff_user (id, username, password_hash) VALUES ($1, $2, $3)
		RETURNING created_at`,
		u.ID, u.Username, u.PasswordHash).Scan(&u.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return err
}

func (s *userStorePG) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.db.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at FROM staff_user WHERE username = $1`,
		username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
