package app

import (
	"errors"
	"fmt"

	"github.com/munni1406/Blog-Template/cmd/internal/auth/session"
	"github.com/munni1406/Blog-Template/cmd/security/token"
)

// ResolveSecrets enforces the signing-secret policy at startup.
//
// In production the secret of the active strategy must be configured and at
// least token.MinKeyBytes long. Outside production a missing secret is replaced
// by a random per-process key, so credentials do not survive a restart.
func ResolveSecrets(cfg Config, scfg *session.Config, log Logger) error {
	if scfg == nil {
		return errors.New("security policy: nil session config")
	}

	required := map[session.Strategy]bool{
		session.StrategyToken:   scfg.Strategy == session.StrategyToken,
		session.StrategySession: scfg.Strategy == session.StrategySession,
	}

	secrets := []struct {
		env      string
		strategy session.Strategy
		key      *[]byte
	}{
		{env: "BLOG_JWT_SECRET", strategy: session.StrategyToken, key: &scfg.JWTSecret},
		{env: "BLOG_SESSION_SECRET", strategy: session.StrategySession, key: &scfg.SessionSecret},
	}

	for _, s := range secrets {
		err := token.CheckKey(*s.key, token.MinKeyBytes)
		if err == nil {
			continue
		}

		if errors.Is(err, token.ErrKeyTooShort) || (cfg.Production && required[s.strategy]) {
			switch {
			case errors.Is(err, token.ErrKeyMissing):
				return fmt.Errorf("security policy: BLOG_PRODUCTION=true but %s is missing", s.env)
			case errors.Is(err, token.ErrKeyTooShort):
				return fmt.Errorf("security policy: %s is too short (min %d bytes)", s.env, token.MinKeyBytes)
			default:
				return err
			}
		}

		key, err := token.RandomKey(token.MinKeyBytes)
		if err != nil {
			return err
		}
		*s.key = key
		if required[s.strategy] {
			log.Warn("security.secret.generated", "env", s.env, "note", "credentials will not survive a restart")
		}
	}

	return nil
}
