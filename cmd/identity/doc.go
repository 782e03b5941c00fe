// Package identity is the credential store: one record per user holding a
// username and a salted password verifier.
//
// Uniqueness of usernames is a storage-layer invariant. Service performs an
// existence check for a fast, friendly error, but correctness under concurrent
// registrations comes from the store (a unique index in Postgres, a single
// locked map in memory).
package identity
