package session

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Strategy selects the Issuer implementation.
type Strategy string

const (
	StrategyToken   Strategy = "token"
	StrategySession Strategy = "session"
)

// StoreKind selects the Store backing StrategySession.
type StoreKind string

const (
	StoreAuto     StoreKind = ""
	StoreMemory   StoreKind = "memory"
	StorePostgres StoreKind = "postgres"
	StoreRedis    StoreKind = "redis"
)

// Config is the runtime configuration of the session subsystem.
//
// JWTSecret and SessionSecret may be left empty by LoadConfigFromEnv; the
// application decides whether to fail or generate per-process keys.
type Config struct {
	Strategy Strategy

	// Issuer is the "iss" claim of tokens and is checked on parse.
	Issuer    string
	TokenTTL  time.Duration
	ClockSkew time.Duration
	JWTSecret []byte

	SessionTTL     time.Duration
	SessionIDBytes int
	SessionSecret  []byte

	Store         StoreKind
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// DefaultConfig returns the token strategy with seven-day credentials.
func DefaultConfig() Config {
	return Config{
		Strategy:       StrategyToken,
		Issuer:         "blog",
		TokenTTL:       7 * 24 * time.Hour,
		ClockSkew:      30 * time.Second,
		SessionTTL:     7 * 24 * time.Hour,
		SessionIDBytes: 32,
		RedisPrefix:    "blog:session:",
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional (durations must be valid Go duration strings):
//   - BLOG_AUTH_STRATEGY (token|session)
//   - BLOG_AUTH_ISSUER
//   - BLOG_JWT_SECRET, BLOG_TOKEN_TTL, BLOG_AUTH_CLOCK_SKEW
//   - BLOG_SESSION_SECRET, BLOG_SESSION_TTL, BLOG_SESSION_ID_BYTES
//   - BLOG_SESSION_STORE (memory|postgres|redis)
//   - BLOG_REDIS_ADDR, BLOG_REDIS_PASSWORD, BLOG_REDIS_DB, BLOG_REDIS_PREFIX
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := env("BLOG_AUTH_STRATEGY"); v != "" {
		switch Strategy(strings.ToLower(v)) {
		case StrategyToken:
			cfg.Strategy = StrategyToken
		case StrategySession:
			cfg.Strategy = StrategySession
		default:
			return Config{}, ErrConfig
		}
	}

	if v := env("BLOG_AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	var err error
	if cfg.TokenTTL, err = envDuration("BLOG_TOKEN_TTL", cfg.TokenTTL, false); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = envDuration("BLOG_SESSION_TTL", cfg.SessionTTL, false); err != nil {
		return Config{}, err
	}
	if cfg.ClockSkew, err = envDuration("BLOG_AUTH_CLOCK_SKEW", cfg.ClockSkew, true); err != nil {
		return Config{}, err
	}

	if v := env("BLOG_SESSION_ID_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 32 || n > 64 {
			return Config{}, ErrConfig
		}
		cfg.SessionIDBytes = n
	}

	if v := env("BLOG_JWT_SECRET"); v != "" {
		cfg.JWTSecret = []byte(v)
	}
	if v := env("BLOG_SESSION_SECRET"); v != "" {
		cfg.SessionSecret = []byte(v)
	}

	if v := env("BLOG_SESSION_STORE"); v != "" {
		switch StoreKind(strings.ToLower(v)) {
		case StoreMemory:
			cfg.Store = StoreMemory
		case StorePostgres:
			cfg.Store = StorePostgres
		case StoreRedis:
			cfg.Store = StoreRedis
		default:
			return Config{}, ErrConfig
		}
	}

	cfg.RedisAddr = env("BLOG_REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("BLOG_REDIS_PASSWORD")
	if v := env("BLOG_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, ErrConfig
		}
		cfg.RedisDB = n
	}
	if v := env("BLOG_REDIS_PREFIX"); v != "" {
		cfg.RedisPrefix = v
	}

	if cfg.Store == StoreRedis && cfg.RedisAddr == "" {
		return Config{}, ErrConfig
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envDuration(key string, def time.Duration, allowZero bool) (time.Duration, error) {
	v := env(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, ErrConfig
	}
	return d, nil
}
