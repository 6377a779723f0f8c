package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type Claims struct {
	UserID uuid.UUID
	Role   Role
	Exp    time.Time
}

type TokenProvider interface {
	SignAccess(ctx context.Context, sub uuid.UUID, role Role, ttl time.Duration) (token string, exp time.Time, err error)
	ParseAndValidateAccess(ctx context.Context, token string) (*Claims, error)
}

// SessionStore: серверные сессии для cookie-аутентификации.
type SessionStore interface {
	Create(ctx context.Context, id Identity, ttl time.Duration) (string, error)
	// Get возвращает ErrSessionNotFound для неизвестной или истёкшей сессии.
	Get(ctx context.Context, sessionID string) (*Identity, error)
	Delete(ctx context.Context, sessionID string) error
}
