// Package config loads client configuration from the environment.
//
// Values come from STOREFRONT_* environment variables, parsed with
// github.com/caarlos0/env; a .env file in the working directory is loaded
// first when present. Command-line flags override what is loaded here.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends for the two session scopes.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ClientConfig holds configuration for the storefront client.
type ClientConfig struct {
	// BaseURL is the API root every request path is appended to.
	BaseURL string `env:"STOREFRONT_API_URL" envDefault:"http://localhost:8080/api"`

	// Timeout bounds connect plus response time of one request.
	Timeout time.Duration `env:"STOREFRONT_TIMEOUT" envDefault:"10s"`

	// StateDir holds the durable session database. Defaults to ~/.storefront.
	StateDir string `env:"STOREFRONT_STATE_DIR"`

	// DurableBackend stores remembered sessions: sqlite, redis or memory.
	DurableBackend string `env:"STOREFRONT_DURABLE_BACKEND" envDefault:"sqlite"`

	// EphemeralBackend stores sessions for the current terminal session: sqlite or memory.
	EphemeralBackend string `env:"STOREFRONT_EPHEMERAL_BACKEND" envDefault:"sqlite"`

	// DefaultSessionTTL applies when a login response carries no expiry.
	DefaultSessionTTL time.Duration `env:"STOREFRONT_DEFAULT_SESSION_TTL" envDefault:"720h"`

	// RoutesFile replaces the built-in route table.
	RoutesFile string `env:"STOREFRONT_ROUTES_FILE"`

	// ShellAddr is the listen address of the preview shell.
	ShellAddr string `env:"STOREFRONT_SHELL_ADDR" envDefault:"127.0.0.1:5173"`

	Redis RedisConfig `envPrefix:"STOREFRONT_REDIS_"`

	LogLevel  string `env:"STOREFRONT_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"STOREFRONT_LOG_FORMAT" envDefault:"text"`
}

// RedisConfig configures the redis durable backend.
type RedisConfig struct {
	Addr      string `env:"ADDR" envDefault:"localhost:6379"`
	Password  string `env:"PASSWORD"`
	DB        int    `env:"DB" envDefault:"0"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"storefront"`
}

// DevAPIConfig holds configuration for the development backend.
type DevAPIConfig struct {
	Addr string `env:"DEVAPI_ADDR" envDefault:":8080"`

	// Secret signs issued tokens. A random secret is generated when empty.
	Secret string `env:"DEVAPI_SECRET"`

	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration `env:"DEVAPI_TOKEN_TTL" envDefault:"2h"`

	// OmitExpire leaves "expire" out of login responses, exercising the client's fallback.
	OmitExpire bool `env:"DEVAPI_OMIT_EXPIRE" envDefault:"false"`

	// Users is a comma-separated list of name:password[:role] accounts.
	Users string `env:"DEVAPI_USERS" envDefault:"alice:secret:user,admin:admin:admin"`

	LogLevel  string `env:"DEVAPI_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"DEVAPI_LOG_FORMAT" envDefault:"text"`
}

// DefaultClientConfig returns the defaults without reading the environment.
func DefaultClientConfig() ClientConfig {
	var cfg ClientConfig
	// Defaults only; an empty environment cannot fail to parse.
	_ = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})
	cfg.Sanitize()
	return cfg
}

// LoadClientConfig loads the client configuration from .env and the environment.
// It does not validate: callers apply their overrides first, then call Validate.
func LoadClientConfig() (ClientConfig, error) {
	if err := loadDotEnv(); err != nil {
		return ClientConfig{}, err
	}
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// LoadDevAPIConfig loads the development backend configuration.
func LoadDevAPIConfig() (DevAPIConfig, error) {
	if err := loadDotEnv(); err != nil {
		return DevAPIConfig{}, err
	}
	var cfg DevAPIConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 2 * time.Hour
	}
	return cfg, nil
}

// loadDotEnv loads .env if it exists (development).
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return fmt.Errorf("load .env file: %w", err)
		}
	}
	return nil
}

// Sanitize applies guardrails to configuration values loaded from env.
func (c *ClientConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.DefaultSessionTTL <= 0 {
		c.DefaultSessionTTL = 30 * 24 * time.Hour
	}
	c.DurableBackend = strings.ToLower(strings.TrimSpace(c.DurableBackend))
	c.EphemeralBackend = strings.ToLower(strings.TrimSpace(c.EphemeralBackend))
	if c.StateDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.StateDir = filepath.Join(home, ".storefront")
		} else {
			c.StateDir = ".storefront"
		}
	}
}

// Validate reports configuration values no component can work with.
func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("STOREFRONT_API_URL must not be empty")
	}
	switch c.DurableBackend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown durable backend %q (want sqlite, redis or memory)", c.DurableBackend)
	}
	switch c.EphemeralBackend {
	case BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown ephemeral backend %q (want sqlite or memory)", c.EphemeralBackend)
	}
	return nil
}

// DurablePath is the SQLite file holding remembered sessions.
func (c *ClientConfig) DurablePath() string {
	return filepath.Join(c.StateDir, "session.db")
}

// EphemeralPath is the SQLite file holding the session of the current
// terminal. It is keyed by the parent process (the shell), so a new terminal
// starts logged out and the OS temp cleanup removes stale files.
func (c *ClientConfig) EphemeralPath() string {
	return filepath.Join(os.TempDir(), "storefront-"+strconv.Itoa(os.Getppid()), "session.db")
}
