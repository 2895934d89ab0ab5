package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayscape/internal/domain/user"
)

var (
	ErrTokenRequired   = errors.New("auth: token is required")
	ErrUserRequired    = errors.New("auth: user is required")
	ErrTTLInvalid      = errors.New("auth: ttl must be positive")
	ErrSessionNotFound = errors.New("auth: session not found")
	ErrSessionExpired  = errors.New("auth: session expired")
)

// Token is an opaque bearer credential.
type Token string

type Session struct {
	Token     Token
	UserID    user.ID
	CreatedAt time.Time
	ExpiresAt time.Time
}

func NewSession(token Token, userID user.ID, ttl time.Duration, now time.Time) (*Session, error) {
	trimmed := strings.TrimSpace(string(token))
	if trimmed == "" {
		return nil, ErrTokenRequired
	}
	if strings.TrimSpace(string(userID)) == "" {
		return nil, ErrUserRequired
	}
	if ttl <= 0 {
		return nil, ErrTTLInvalid
	}
	now = now.UTC()
	return &Session{Token: Token(trimmed), UserID: userID, CreatedAt: now, ExpiresAt: now.Add(ttl)}, nil
}

func (s *Session) Expired(at time.Time) bool {
	return !s.ExpiresAt.After(at)
}

type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, token Token) (*Session, error)
	Delete(ctx context.Context, token Token) error
}
