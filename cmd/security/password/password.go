package password

import (
	"strings"
)

// Hash validates the password and returns a salted verifier in the configured format.
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}

	switch c.algorithm() {
	case AlgorithmBcrypt:
		return c.hashBcrypt(password)
	case AlgorithmArgon2id:
		return c.hashArgon2id(password)
	default:
		return "", ErrUnknownAlgorithm
	}
}

// Verify reports whether password matches encodedHash.
// Returns (true, nil) for a match, (false, nil) for a mismatch,
// and (false, ErrInvalidHash) for malformed or unsupported verifiers.
// Comparison is always delegated to the format's constant-time compare.
func (c Config) Verify(encodedHash, password string) (bool, error) {
	switch {
	case isBcryptHash(encodedHash):
		return verifyBcrypt(encodedHash, password)
	case strings.HasPrefix(encodedHash, "$argon2id$"):
		return c.verifyArgon2id(encodedHash, password)
	default:
		return false, ErrInvalidHash
	}
}

// NeedsRehash reports whether encodedHash was produced by a different algorithm
// than the configured one, or by bcrypt at a different cost.
func (c Config) NeedsRehash(encodedHash string) bool {
	switch c.algorithm() {
	case AlgorithmBcrypt:
		return !isBcryptHash(encodedHash) || bcryptCost(encodedHash) != c.bcryptCost()
	case AlgorithmArgon2id:
		return !strings.HasPrefix(encodedHash, "$argon2id$")
	default:
		return false
	}
}

func (c Config) algorithm() Algorithm {
	if c.Algorithm == "" {
		return AlgorithmBcrypt
	}
	return c.Algorithm
}
