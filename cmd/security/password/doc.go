// Package password hashes and verifies user passwords.
//
// Two verifier formats are supported:
//   - bcrypt ("$2a$"/"$2b$"/"$2y$"), the default for new hashes
//   - Argon2id in a PHC-like string ("$argon2id$v=19$m=...,t=...,p=...$salt$hash")
//
// Verify dispatches on the stored format, so switching the configured algorithm
// never locks out users whose verifier was produced by the other one.
// Stored hashes are treated as untrusted input and decoded strictly.
package password
