package identity

import (
	"context"
	"sync"
)

// MemoryStore keeps users in a map keyed by normalized username.
// It is used when no database is configured and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

func (s *MemoryStore) CreateUser(ctx context.Context, in PutUserInput) (User, error) {
	const op = "identity.CreateUser"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	norm := NormalizeUsername(in.Username)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[norm]; ok {
		return User{}, ConflictError{Op: op, Field: "username"}
	}
	u := User{
		ID:           in.ID,
		Username:     in.Username,
		UsernameNorm: norm,
		PasswordHash: in.PasswordHash,
		CreatedAt:    in.Now,
		UpdatedAt:    in.Now,
	}
	s.users[norm] = u
	return u, nil
}

func (s *MemoryStore) UpsertUser(ctx context.Context, in PutUserInput) (User, bool, error) {
	if err := ctx.Err(); err != nil {
		return User{}, false, err
	}

	norm := NormalizeUsername(in.Username)
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[norm]; ok {
		u.PasswordHash = in.PasswordHash
		u.UpdatedAt = in.Now
		s.users[norm] = u
		return u, false, nil
	}
	u := User{
		ID:           in.ID,
		Username:     in.Username,
		UsernameNorm: norm,
		PasswordHash: in.PasswordHash,
		CreatedAt:    in.Now,
		UpdatedAt:    in.Now,
	}
	s.users[norm] = u
	return u, true, nil
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[NormalizeUsername(username)]
	if !ok {
		return User{}, NotFoundError{Op: "identity.GetUserByUsername", Resource: "user"}
	}
	return u, nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	norm := NormalizeUsername(username)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[norm]; !ok {
		return NotFoundError{Op: "identity.DeleteUser", Resource: "user"}
	}
	delete(s.users, norm)
	return nil
}

// Len returns the number of stored users.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
