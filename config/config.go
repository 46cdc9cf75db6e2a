// Package config loads the service configuration from environment variables
// and exposes typed views for each subsystem.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	httpiface "github.com/artpromedia/aivo-v5-sub002/internal/interface/http"
	"github.com/artpromedia/aivo-v5-sub002/internal/infrastructure/external/brainprofile"
	"github.com/artpromedia/aivo-v5-sub002/internal/infrastructure/persistence/postgres"
	"github.com/artpromedia/aivo-v5-sub002/internal/infrastructure/persistence/redis"
	"github.com/artpromedia/aivo-v5-sub002/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION STRUCTURE
// ══════════════════════════════════════════════════════════════════════════════

// Config is the complete service configuration.
type Config struct {
	App          AppConfig          `envPrefix:"APP_"`
	Database     DatabaseConfig     `envPrefix:"DB_"`
	Redis        RedisConfig        `envPrefix:"REDIS_"`
	Auth         AuthConfig         `envPrefix:"AUTH_"`
	BrainProfile BrainProfileConfig `envPrefix:"BRAIN_PROFILE_"`
	HTTP         HTTPConfig         `envPrefix:"HTTP_"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name            string        `env:"NAME" envDefault:"tutoring-workflow"`
	Environment     string        `env:"ENV" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// DatabaseConfig contains PostgreSQL settings.
type DatabaseConfig struct {
	Host              string        `env:"HOST" envDefault:"localhost"`
	Port              int           `env:"PORT" envDefault:"5432"`
	Name              string        `env:"NAME" envDefault:"tutoring"`
	User              string        `env:"USER" envDefault:"postgres"`
	Password          string        `env:"PASSWORD"`
	SSLMode           string        `env:"SSL_MODE" envDefault:"require"`
	MaxConns          int32         `env:"MAX_CONNS" envDefault:"10"`
	MinConns          int32         `env:"MIN_CONNS" envDefault:"2"`
	MaxConnLifetime   time.Duration `env:"MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime   time.Duration `env:"MAX_CONN_IDLE_TIME" envDefault:"30m"`
	HealthCheckPeriod time.Duration `env:"HEALTH_CHECK_PERIOD" envDefault:"1m"`
	ConnectTimeout    time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
}

// RedisConfig contains Redis settings.
type RedisConfig struct {
	Enabled      bool          `env:"ENABLED" envDefault:"true"`
	Host         string        `env:"HOST" envDefault:"localhost"`
	Port         int           `env:"PORT" envDefault:"6379"`
	Password     string        `env:"PASSWORD"`
	DB           int           `env:"DB" envDefault:"0"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
	PoolTimeout  time.Duration `env:"POOL_TIMEOUT" envDefault:"4s"`
}

// AuthConfig contains credential verification settings. ServiceKeys uses the
// form "keyID:name:bcryptHash" with entries separated by commas.
type AuthConfig struct {
	JWTSecret    string   `env:"JWT_SECRET"`
	APIKeyHeader string   `env:"API_KEY_HEADER" envDefault:"X-API-Key"`
	ServiceKeys  []string `env:"SERVICE_KEYS" envSeparator:","`
}

// BrainProfileConfig contains settings for the brain profile client.
type BrainProfileConfig struct {
	BaseURL string        `env:"BASE_URL"`
	APIKey  string        `env:"API_KEY"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`

	// CacheTTL overrides the profile cache lifetime when positive.
	CacheTTL time.Duration `env:"CACHE_TTL"`
}

// HTTPConfig contains HTTP server settings.
type HTTPConfig struct {
	Host               string        `env:"HOST" envDefault:"0.0.0.0"`
	Port               int           `env:"PORT" envDefault:"8080"`
	ReadTimeout        time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout       time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout        time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	EnableCORS         bool          `env:"ENABLE_CORS" envDefault:"true"`
	AllowedOrigins     []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	EnableMetrics      bool          `env:"ENABLE_METRICS" envDefault:"true"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"300"`
}

// ══════════════════════════════════════════════════════════════════════════════
// LOADING AND VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration invariants that env tags cannot express.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("config: database host is required")
	}
	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: AUTH_JWT_SECRET is required in production")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: invalid HTTP port %d", c.HTTP.Port)
	}
	for _, entry := range c.Auth.ServiceKeys {
		if strings.Count(entry, ":") != 2 {
			return fmt.Errorf("config: malformed service key entry (want keyID:name:hash)")
		}
	}
	return nil
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBSYSTEM VIEWS
// ══════════════════════════════════════════════════════════════════════════════

// PostgresConfig converts to the connection pool configuration.
func (c *Config) PostgresConfig() postgres.Config {
	return postgres.Config{
		Host:              c.Database.Host,
		Port:              c.Database.Port,
		Database:          c.Database.Name,
		User:              c.Database.User,
		Password:          c.Database.Password,
		SSLMode:           c.Database.SSLMode,
		MaxConns:          c.Database.MaxConns,
		MinConns:          c.Database.MinConns,
		MaxConnLifetime:   c.Database.MaxConnLifetime,
		MaxConnIdleTime:   c.Database.MaxConnIdleTime,
		HealthCheckPeriod: c.Database.HealthCheckPeriod,
		ConnectTimeout:    c.Database.ConnectTimeout,
	}
}

// RedisCacheConfig converts to the cache client configuration.
func (c *Config) RedisCacheConfig() redis.Config {
	return redis.Config{
		Host:         c.Redis.Host,
		Port:         c.Redis.Port,
		Password:     c.Redis.Password,
		DB:           c.Redis.DB,
		PoolSize:     c.Redis.PoolSize,
		MinIdleConns: c.Redis.MinIdleConns,
		MaxRetries:   c.Redis.MaxRetries,
		DialTimeout:  c.Redis.DialTimeout,
		ReadTimeout:  c.Redis.ReadTimeout,
		WriteTimeout: c.Redis.WriteTimeout,
		PoolTimeout:  c.Redis.PoolTimeout,
	}
}

// ServerConfig converts to the HTTP server configuration.
func (c *Config) ServerConfig() httpiface.Config {
	cfg := httpiface.DefaultConfig()
	cfg.Host = c.HTTP.Host
	cfg.Port = c.HTTP.Port
	cfg.ReadTimeout = c.HTTP.ReadTimeout
	cfg.WriteTimeout = c.HTTP.WriteTimeout
	cfg.IdleTimeout = c.HTTP.IdleTimeout
	cfg.EnableCORS = c.HTTP.EnableCORS
	cfg.AllowedOrigins = c.HTTP.AllowedOrigins
	cfg.EnableMetrics = c.HTTP.EnableMetrics
	cfg.RateLimitPerMinute = c.HTTP.RateLimitPerMinute
	return cfg
}

// AuthenticatorConfig converts to the HTTP authenticator configuration.
func (c *Config) AuthenticatorConfig() httpiface.AuthConfig {
	keys := make(map[string]httpiface.ServiceKey, len(c.Auth.ServiceKeys))
	for _, entry := range c.Auth.ServiceKeys {
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			continue
		}
		keys[parts[0]] = httpiface.ServiceKey{Name: parts[1], SecretHash: parts[2]}
	}
	return httpiface.AuthConfig{
		JWTSecret:    c.Auth.JWTSecret,
		APIKeyHeader: c.Auth.APIKeyHeader,
		ServiceKeys:  keys,
	}
}

// BrainProfileClientConfig converts to the profile client configuration.
func (c *Config) BrainProfileClientConfig() brainprofile.ClientConfig {
	cfg := brainprofile.DefaultClientConfig(c.BrainProfile.BaseURL)
	cfg.APIKey = c.BrainProfile.APIKey
	cfg.Timeout = c.BrainProfile.Timeout
	return cfg
}

// LoggerOptions converts to logger options.
func (c *Config) LoggerOptions() logger.Options {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(c.App.LogLevel)
	return opts
}
