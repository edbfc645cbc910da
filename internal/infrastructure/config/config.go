package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`
	AuditWorkers    int           `env:"AUDIT_WORKERS,    default=4"`

	JWT       JWTConfig
	SQLite    SQLiteConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

type JWTConfig struct {
	Secret        string        `env:"JWT_SECRET, required"`
	Issuer        string        `env:"JWT_ISSUER,         default=caseperl-api"`
	AccessTTL     time.Duration `env:"JWT_ACCESS_TTL,     default=5m"`
	RefreshTTL    time.Duration `env:"JWT_REFRESH_TTL,    default=24h"`
	RotateRefresh bool          `env:"JWT_ROTATE_REFRESH, default=false"`
}

type SQLiteConfig struct {
	DSN string `env:"SQLITE_DSN, default=caseperl.db"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=caseperl"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	DB       int    `env:"REDIS_DB,       default=0"`
	Password string `env:"REDIS_PASSWORD"`
}

// RateLimitConfig bounds register and login calls per client IP: Requests
// per Window, with Burst extra requests allowed at once.
type RateLimitConfig struct {
	Requests int           `env:"RATELIMIT_AUTH_REQUESTS, default=10"`
	Window   time.Duration `env:"RATELIMIT_AUTH_WINDOW,   default=1m"`
	Burst    int           `env:"RATELIMIT_AUTH_BURST,    default=5"`
}

// IsDevelopment reports whether the service runs in a local environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "local"
}

// Load reads a .env file when present and then the environment.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith processes configuration from lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT_ACCESS_TTL and JWT_REFRESH_TTL must be positive")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("JWT_ACCESS_TTL must be shorter than JWT_REFRESH_TTL")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("RATELIMIT_AUTH_REQUESTS and RATELIMIT_AUTH_WINDOW must be positive")
	}
	if c.AuditWorkers <= 0 {
		return errors.New("AUDIT_WORKERS must be positive")
	}
	return nil
}
