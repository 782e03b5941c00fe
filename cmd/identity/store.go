package identity

import (
	"context"
	"time"
)

// User is a credential record. PasswordHash is the only mutable field.
type User struct {
	ID           string
	Username     string
	UsernameNorm string
	PasswordHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PutUserInput carries an already-hashed verifier to the store.
type PutUserInput struct {
	ID           string
	Username     string
	PasswordHash string
	Now          time.Time
}

// Store is the credential persistence boundary.
//
// CreateUser must fail with a ConflictError when the normalized username exists,
// atomically with the insert. UpsertUser must create-or-replace atomically and
// report whether a row was created.
type Store interface {
	CreateUser(ctx context.Context, in PutUserInput) (User, error)
	UpsertUser(ctx context.Context, in PutUserInput) (u User, created bool, err error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	DeleteUser(ctx context.Context, username string) error
}
