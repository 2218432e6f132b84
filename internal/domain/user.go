package domain

import (
	"context"
	"time"
)

// User represents a registered account known to the auth service.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// MagicLink is a single-use emailed sign-in token. Only the token hash is stored.
type MagicLink struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	UsedAt    *time.Time
}

type MagicLinkRepository interface {
	Create(ctx context.Context, link *MagicLink) error
	// Consume marks the link used and returns it. Expired, used or unknown
	// links return ErrLinkExpired.
	Consume(ctx context.Context, tokenHash string, now time.Time) (*MagicLink, error)
}
