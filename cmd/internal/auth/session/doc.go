// Package session issues and checks the credential that represents a logged-in user.
//
// Two strategies share the Issuer interface:
//   - TokenIssuer mints HS256 JWTs. Nothing is stored server-side, so Revoke is
//     a no-op and a token stays valid until it expires or the secret rotates.
//   - ServerIssuer mints opaque random ids backed by a Store. Only an HMAC
//     digest of the id is persisted; revocation deletes the record.
//
// The strategy is chosen once from configuration. Callers never branch on it.
package session
