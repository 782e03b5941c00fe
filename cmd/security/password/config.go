package password

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Algorithm names the verifier format produced by Hash.
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

// bcryptMaxBytes is the input limit of bcrypt; longer passwords are rejected, not truncated.
const bcryptMaxBytes = 72

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls password acceptance.
type Policy struct {
	MaxLength      int
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Algorithm  Algorithm
	BcryptCost int
	Argon2     Argon2idParams
	Policy     Policy
}

// DefaultConfig returns bcrypt at its default cost plus Argon2id parameters
// used when the algorithm is switched.
func DefaultConfig() Config {
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Algorithm:  AlgorithmBcrypt,
		BcryptCost: bcrypt.DefaultCost,
		Argon2: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MaxLength: 256,
		},
	}
}

// FromEnv loads config from environment variables on top of DefaultConfig.
//
// Env surface:
//   - BLOG_PASSWORD_HASHER (bcrypt|argon2id)
//   - BLOG_BCRYPT_COST
//   - BLOG_PASSWORD_MAX_LEN
//   - BLOG_PASSWORD_REJECT_VERY_WEAK
//   - BLOG_ARGON2_MEMORY_KIB, BLOG_ARGON2_ITERATIONS, BLOG_ARGON2_PARALLELISM
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := lookup("BLOG_PASSWORD_HASHER"); ok {
		alg, err := ParseAlgorithm(v)
		if err != nil {
			return Config{}, fmt.Errorf("BLOG_PASSWORD_HASHER: %w", err)
		}
		cfg.Algorithm = alg
	}

	if v, ok := lookup("BLOG_BCRYPT_COST"); ok {
		n, err := atoiRange(v, bcrypt.MinCost, bcrypt.MaxCost)
		if err != nil {
			return Config{}, fmt.Errorf("BLOG_BCRYPT_COST: %w", err)
		}
		cfg.BcryptCost = n
	}

	if v, ok := lookup("BLOG_PASSWORD_MAX_LEN"); ok {
		n, err := atoiRange(v, 1, 4096)
		if err != nil {
			return Config{}, fmt.Errorf("BLOG_PASSWORD_MAX_LEN: %w", err)
		}
		cfg.Policy.MaxLength = n
	}

	if v, ok := lookup("BLOG_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("BLOG_PASSWORD_REJECT_VERY_WEAK: %w", err)
		}
		cfg.Policy.RejectVeryWeak = b
	}

	if v, ok := lookup("BLOG_ARGON2_MEMORY_KIB"); ok {
		n, err := atoiRange(v, 8*1024, 1024*1024)
		if err != nil {
			return Config{}, fmt.Errorf("BLOG_ARGON2_MEMORY_KIB: %w", err)
		}
		cfg.Argon2.MemoryKiB = uint32(n) // #nosec G115 -- range checked above.
	}

	if v, ok := lookup("BLOG_ARGON2_ITERATIONS"); ok {
		n, err := atoiRange(v, 1, 20)
		if err != nil {
			return Config{}, fmt.Errorf("BLOG_ARGON2_ITERATIONS: %w", err)
		}
		cfg.Argon2.Iterations = uint32(n) // #nosec G115 -- range checked above.
	}

	if v, ok := lookup("BLOG_ARGON2_PARALLELISM"); ok {
		n, err := atoiRange(v, 1, math.MaxUint8)
		if err != nil {
			return Config{}, fmt.Errorf("BLOG_ARGON2_PARALLELISM: %w", err)
		}
		cfg.Argon2.Parallelism = uint8(n) // #nosec G115 -- range checked above.
	}

	return cfg, nil
}

// ParseAlgorithm maps a configuration string to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case AlgorithmBcrypt:
		return AlgorithmBcrypt, nil
	case AlgorithmArgon2id:
		return AlgorithmArgon2id, nil
	default:
		return "", ErrUnknownAlgorithm
	}
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func atoiRange(s string, minVal, maxVal int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if n < minVal || n > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return n, nil
}
