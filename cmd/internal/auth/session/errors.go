package session

import "errors"

var (
	// ErrUnauthenticated is returned by Authenticate for any credential that does
	// not resolve to an identity: malformed, expired, revoked or unknown.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrSessionNotFound is returned by stores when no live record matches a key.
	ErrSessionNotFound = errors.New("session not found")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
