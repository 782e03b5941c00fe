package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/munni1406/Blog-Template/cmd/security/token"
)

// Claims is the JWT payload. Subject carries the user id.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenIssuer issues stateless HS256 JWTs.
type TokenIssuer struct {
	issuer string
	ttl    time.Duration
	skew   time.Duration
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer requires a secret of at least token.MinKeyBytes.
func NewTokenIssuer(cfg Config, opts ...Option) (*TokenIssuer, error) {
	if err := token.CheckKey(cfg.JWTSecret, token.MinKeyBytes); err != nil {
		return nil, fmt.Errorf("%w: jwt secret: %w", ErrConfig, err)
	}
	if cfg.TokenTTL <= 0 {
		return nil, ErrConfig
	}
	o := buildOptions(opts)

	secret := make([]byte, len(cfg.JWTSecret))
	copy(secret, cfg.JWTSecret)

	return &TokenIssuer{
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		skew:   cfg.ClockSkew,
		secret: secret,
		now:    o.now,
	}, nil
}

func (t *TokenIssuer) Issue(ctx context.Context, id Identity) (Credential, error) {
	if id.UserID == "" || id.Username == "" {
		return Credential{}, fmt.Errorf("session: issue: empty identity")
	}

	now := t.now()
	exp := now.Add(t.ttl)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	signed, err := tok.SignedString(t.secret)
	if err != nil {
		return Credential{}, err
	}
	// NumericDate has second precision; report what the token actually says.
	return Credential{Value: signed, ExpiresAt: exp.Truncate(time.Second)}, nil
}

func (t *TokenIssuer) Authenticate(ctx context.Context, value string) (Identity, error) {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > 4096 {
		return Identity{}, ErrUnauthenticated
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithLeeway(t.skew),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrUnauthenticated
	}
	if claims.Subject == "" || claims.Username == "" {
		return Identity{}, ErrUnauthenticated
	}

	return Identity{UserID: claims.Subject, Username: claims.Username}, nil
}

// Revoke is a no-op: a JWT cannot be recalled without server state.
func (t *TokenIssuer) Revoke(context.Context, string) error { return nil }

// RevokeUser is a no-op for the same reason as Revoke.
func (t *TokenIssuer) RevokeUser(context.Context, string) error { return nil }
