package session

import (
	"context"
	"time"
)

// Record is the server-side state of one session.
type Record struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Live reports whether the record has not expired at now.
func (r Record) Live(now time.Time) bool {
	return r.ExpiresAt.After(now)
}

// Store persists session records under a digest key.
//
// Get returns ErrSessionNotFound for missing and expired records alike, and
// may drop an expired record while reading it.
// Delete returns ErrSessionNotFound when nothing was removed.
type Store interface {
	Create(ctx context.Context, key string, rec Record) error
	Get(ctx context.Context, key string, now time.Time) (Record, error)
	Delete(ctx context.Context, key string) error
	DeleteUser(ctx context.Context, userID string) error
}

// Sweeper is implemented by stores that need expired rows removed explicitly.
type Sweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
