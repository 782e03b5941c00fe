package app

import (
	"net"
	"strings"
	"time"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	// DBSchema holds the blog tables; it is also the connection search_path,
	// so migrations and stores agree.
	DBSchema string
	Migrate  bool

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Production turns on Secure cookies and makes signing secrets mandatory.
	Production bool

	StaticDir string

	AdminUsername string
	AdminPassword string

	// SessionSweepInterval is how often expired server sessions are purged
	// from stores that need it. Zero disables the sweeper.
	SessionSweepInterval time.Duration
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  listenAddr(),
		LogLevel:  EnvString("BLOG_LOG_LEVEL", "info"),
		LogFormat: EnvString("BLOG_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("BLOG_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("BLOG_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("BLOG_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("BLOG_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("BLOG_HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),

		MaxHeaderBytes: EnvInt("BLOG_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("BLOG_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("BLOG_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("BLOG_DB_MIN_CONNS", 0),
		DBSchema:    EnvString("BLOG_DB_SCHEMA", "public"),
		Migrate:     EnvBool("BLOG_MIGRATE", true),

		ReadinessRequireDB: EnvBool("BLOG_READINESS_REQUIRE_DB", false),

		Production: EnvBool("BLOG_PRODUCTION", false),

		StaticDir: EnvString("BLOG_STATIC_DIR", "."),

		AdminUsername: EnvString("BLOG_ADMIN_USERNAME", ""),
		AdminPassword: EnvString("BLOG_ADMIN_PASSWORD", ""),

		SessionSweepInterval: EnvDuration("BLOG_SESSION_SWEEP_INTERVAL", 10*time.Minute),
	}
}

// listenAddr prefers BLOG_HTTP_ADDR, then the platform PORT convention.
func listenAddr() string {
	if v := EnvString("BLOG_HTTP_ADDR", ""); v != "" {
		return v
	}
	if port := EnvString("PORT", ""); port != "" {
		if strings.Contains(port, ":") {
			return port
		}
		return net.JoinHostPort("", port)
	}
	return "0.0.0.0:3000"
}
