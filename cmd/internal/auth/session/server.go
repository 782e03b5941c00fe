package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/munni1406/Blog-Template/cmd/security/token"
)

// ServerIssuer issues opaque session ids backed by a Store.
// The store is keyed by a digest of the id; the raw id only exists in the cookie.
type ServerIssuer struct {
	store   Store
	digest  token.Digester
	ttl     time.Duration
	idBytes int
	now     func() time.Time
}

// NewServerIssuer builds a ServerIssuer. An empty SessionSecret falls back to
// unkeyed SHA-256 digests.
func NewServerIssuer(cfg Config, store Store, opts ...Option) (*ServerIssuer, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil session store", ErrConfig)
	}
	if cfg.SessionTTL <= 0 {
		return nil, ErrConfig
	}
	idBytes := cfg.SessionIDBytes
	if idBytes < 32 {
		idBytes = 32
	}
	o := buildOptions(opts)

	return &ServerIssuer{
		store:   store,
		digest:  token.NewDigester(cfg.SessionSecret),
		ttl:     cfg.SessionTTL,
		idBytes: idBytes,
		now:     o.now,
	}, nil
}

func (s *ServerIssuer) Issue(ctx context.Context, id Identity) (Credential, error) {
	if id.UserID == "" || id.Username == "" {
		return Credential{}, fmt.Errorf("session: issue: empty identity")
	}

	raw, err := token.NewOpaque(s.idBytes)
	if err != nil {
		return Credential{}, err
	}

	now := s.now()
	rec := Record{
		UserID:    id.UserID,
		Username:  id.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, s.digest.Digest(raw), rec); err != nil {
		return Credential{}, err
	}
	return Credential{Value: raw, ExpiresAt: rec.ExpiresAt}, nil
}

func (s *ServerIssuer) Authenticate(ctx context.Context, value string) (Identity, error) {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > 256 {
		return Identity{}, ErrUnauthenticated
	}

	rec, err := s.store.Get(ctx, s.digest.Digest(value), s.now())
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Identity{}, ErrUnauthenticated
		}
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	return Identity{UserID: rec.UserID, Username: rec.Username}, nil
}

func (s *ServerIssuer) Revoke(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	err := s.store.Delete(ctx, s.digest.Digest(value))
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}

func (s *ServerIssuer) RevokeUser(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return s.store.DeleteUser(ctx, userID)
}
