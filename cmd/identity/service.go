package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/munni1406/Blog-Template/cmd/security/password"
)

const maxUsernameRunes = 64

// PasswordHasher produces and checks password verifiers.
// password.Config satisfies it.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(encodedHash, password string) (bool, error)
}

// rehasher is implemented by hashers that can tell an outdated verifier apart.
// password.Config satisfies it.
type rehasher interface {
	NeedsRehash(encodedHash string) bool
}

// Service is the credential store used by the HTTP layer.
type Service struct {
	store  Store
	hasher PasswordHasher
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService wires a Store and a PasswordHasher.
func NewService(store Store, hasher PasswordHasher) *Service {
	return &Service{
		store:  store,
		hasher: hasher,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a new user. The existence check is a fast path only;
// a concurrent duplicate is still rejected by the store with a ConflictError.
func (s *Service) Register(ctx context.Context, username, pw string) (User, error) {
	const op = "identity.Register"

	username, err := checkCredentials(op, username, pw)
	if err != nil {
		return User{}, err
	}

	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return User{}, ConflictError{Op: op, Field: "username"}
	} else if !IsNotFound(err) {
		return User{}, err
	}

	hash, err := s.hash(op, pw)
	if err != nil {
		return User{}, err
	}

	now := s.now()
	id, err := NewUserID(now)
	if err != nil {
		return User{}, err
	}

	return s.store.CreateUser(ctx, PutUserInput{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
		Now:          now,
	})
}

// Validate checks a username/password pair. Unknown users and mismatches both
// return ErrInvalidCredentials, and both pay one verifier comparison.
func (s *Service) Validate(ctx context.Context, username, pw string) (User, error) {
	const op = "identity.Validate"

	username, err := checkCredentials(op, username, pw)
	if err != nil {
		return User{}, err
	}

	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			s.burnVerify(pw)
			return User{}, invalidCredentials(op)
		}
		return User{}, err
	}

	ok, err := s.hasher.Verify(u.PasswordHash, pw)
	if err != nil || !ok {
		return User{}, invalidCredentials(op)
	}
	return s.rehash(ctx, u, pw), nil
}

// rehash upgrades a verifier written under an older hasher configuration.
// Failures keep the old verifier; the login itself already succeeded.
func (s *Service) rehash(ctx context.Context, u User, pw string) User {
	rh, ok := s.hasher.(rehasher)
	if !ok || !rh.NeedsRehash(u.PasswordHash) {
		return u
	}
	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return u
	}
	now := s.now()
	id, err := NewUserID(now)
	if err != nil {
		return u
	}
	updated, _, err := s.store.UpsertUser(ctx, PutUserInput{
		ID:           id,
		Username:     u.Username,
		PasswordHash: hash,
		Now:          now,
	})
	if err != nil {
		return u
	}
	return updated
}

// Upsert sets the password of username, creating the user when missing.
func (s *Service) Upsert(ctx context.Context, username, pw string) (User, bool, error) {
	const op = "identity.Upsert"

	username, err := checkCredentials(op, username, pw)
	if err != nil {
		return User{}, false, err
	}

	hash, err := s.hash(op, pw)
	if err != nil {
		return User{}, false, err
	}

	now := s.now()
	id, err := NewUserID(now)
	if err != nil {
		return User{}, false, err
	}

	return s.store.UpsertUser(ctx, PutUserInput{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
		Now:          now,
	})
}

// Lookup returns the user registered under username.
func (s *Service) Lookup(ctx context.Context, username string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, invalid("identity.Lookup", "username is required")
	}
	return s.store.GetUserByUsername(ctx, username)
}

// Delete removes the user registered under username.
func (s *Service) Delete(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return invalid("identity.Delete", "username is required")
	}
	return s.store.DeleteUser(ctx, username)
}

func (s *Service) hash(op, pw string) (string, error) {
	hash, err := s.hasher.Hash(pw)
	if err != nil {
		switch {
		case errors.Is(err, password.ErrPasswordEmpty):
			return "", invalid(op, "password is required")
		case errors.Is(err, password.ErrPasswordTooLong):
			return "", invalid(op, "password is too long")
		case errors.Is(err, password.ErrWeakPassword):
			return "", invalid(op, "password is too weak")
		default:
			return "", err
		}
	}
	return hash, nil
}

func (s *Service) burnVerify(pw string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("blog-dummy-password")
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(s.dummyHash, pw)
	}
}

func checkCredentials(op, username, pw string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(pw) == "" {
		return "", invalid(op, "username and password are required")
	}
	if utf8.RuneCountInString(username) > maxUsernameRunes {
		return "", invalid(op, "username is too long")
	}
	return username, nil
}
