package session

import (
	"context"
	"time"
)

// Identity is what a credential resolves to.
type Identity struct {
	UserID   string
	Username string
}

// Credential is the opaque value handed to the client plus its expiry.
type Credential struct {
	Value     string
	ExpiresAt time.Time
}

// Issuer mints, resolves and revokes credentials.
//
// Authenticate returns an error matching ErrUnauthenticated for every failure.
// Revoke is idempotent. RevokeUser drops every credential the issuer can still
// reach for a user; strategies without server state treat it as a no-op.
type Issuer interface {
	Issue(ctx context.Context, id Identity) (Credential, error)
	Authenticate(ctx context.Context, value string) (Identity, error)
	Revoke(ctx context.Context, value string) error
	RevokeUser(ctx context.Context, userID string) error
}

// Option customizes an issuer.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now. Used by tests to step over expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// NewIssuer builds the issuer selected by cfg.Strategy. store is required only
// for StrategySession.
func NewIssuer(cfg Config, store Store, opts ...Option) (Issuer, error) {
	switch cfg.Strategy {
	case StrategyToken, "":
		return NewTokenIssuer(cfg, opts...)
	case StrategySession:
		return NewServerIssuer(cfg, store, opts...)
	default:
		return nil, ErrConfig
	}
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != ""
}
