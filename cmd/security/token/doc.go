// Package token provides opaque credential primitives: random identifiers and the
// digests under which they are stored server-side.
//
// A session identifier handed to a client as a cookie is never persisted as-is.
// Stores key records by Digest(id): HMAC-SHA256 when a secret key is configured,
// plain SHA-256 otherwise. Digests are always 64 hex characters.
package token
