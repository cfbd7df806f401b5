package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	// HTTP server
	Port int

	// Storage
	DataBackend       string
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Auth
	JWTSecret string

	// Seed maintenance
	RedisURL        string
	SeedSchedule    string
	SeedConcurrency int
	SeedLockTTL     time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadDotEnv reads a .env file into the process environment when one exists.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded, continuing with system environment variables", "error", err)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("data_backend", BackendPostgres)
	v.SetDefault("db_max_open_conns", 50)
	v.SetDefault("db_max_idle_conns", 25)
	v.SetDefault("db_conn_max_lifetime", "5m")
	v.SetDefault("seed_schedule", "@every 6h")
	v.SetDefault("seed_concurrency", 4)
	v.SetDefault("seed_lock_ttl", "10m")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// Load builds the configuration from v. Environment variables win over config file values,
// which win over defaults.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	lifetime, err := durationValue(v, "db_conn_max_lifetime")
	if err != nil {
		return nil, err
	}
	lockTTL, err := durationValue(v, "seed_lock_ttl")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:              v.GetInt("port"),
		DataBackend:       strings.ToLower(v.GetString("data_backend")),
		DatabaseURL:       v.GetString("db_connection_string"),
		DBMaxOpenConns:    v.GetInt("db_max_open_conns"),
		DBMaxIdleConns:    v.GetInt("db_max_idle_conns"),
		DBConnMaxLifetime: lifetime,
		JWTSecret:         v.GetString("jwt_secret"),
		RedisURL:          v.GetString("redis_url"),
		SeedSchedule:      v.GetString("seed_schedule"),
		SeedConcurrency:   v.GetInt("seed_concurrency"),
		SeedLockTTL:       lockTTL,
		LogLevel:          strings.ToLower(v.GetString("log_level")),
		LogFormat:         strings.ToLower(v.GetString("log_format")),
	}
	return cfg, nil
}

func durationValue(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q", strings.ToUpper(key), raw)
	}
	return d, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	var problems []string

	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Port))
	}

	switch c.DataBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DB_CONNECTION_STRING is required when using the postgres backend")
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendPostgres, BackendMemory))
	}

	if c.SeedConcurrency < 1 {
		problems = append(problems, fmt.Sprintf("invalid seed concurrency %d: must be at least 1", c.SeedConcurrency))
	}
	if c.SeedLockTTL < time.Second {
		problems = append(problems, fmt.Sprintf("invalid seed lock ttl %v: must be at least 1 second", c.SeedLockTTL))
	}
	if c.DBMaxIdleConns > c.DBMaxOpenConns {
		problems = append(problems, "DB_MAX_IDLE_CONNS cannot exceed DB_MAX_OPEN_CONNS")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

var ErrMissingJWTSecret = errors.New("no JWT_SECRET provided")

// ValidateServer adds the checks the HTTP server needs on top of Validate.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.SeedSchedule == "" {
		return errors.New("SEED_SCHEDULE cannot be empty")
	}
	return nil
}
