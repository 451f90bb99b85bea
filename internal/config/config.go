// Package config loads service settings from CALC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const Prefix = "CALC"

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type HTTPConfig struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`
}

type LogConfig struct {
	Level       string `envconfig:"LEVEL" default:"info"`
	Development bool   `envconfig:"DEVELOPMENT" default:"false"`
}

type TelemetryConfig struct {
	Enabled     bool   `envconfig:"ENABLED" default:"false"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"go-chi-calculations"`
}

// StorageConfig selects the record and user store.
type StorageConfig struct {
	Driver      string `envconfig:"DRIVER" default:"memory"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"data/calculations.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`
}

type AuthConfig struct {
	JWTSecret         string        `envconfig:"JWT_SECRET"`
	TokenTTL          time.Duration `envconfig:"TOKEN_TTL" default:"30m"`
	MinPasswordLength int           `envconfig:"MIN_PASSWORD_LENGTH" default:"8"`
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"ENABLED" default:"false"`
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     string `envconfig:"PORT" default:"6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

// Addr joins host and port for redis.Options.
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type KafkaConfig struct {
	Enabled bool   `envconfig:"ENABLED" default:"false"`
	Brokers string `envconfig:"BROKERS" default:"localhost:9092"`
	Topic   string `envconfig:"TOPIC" default:"calculations"`
}

type Config struct {
	HTTP      HTTPConfig      `envconfig:"HTTP"`
	Log       LogConfig       `envconfig:"LOG"`
	Telemetry TelemetryConfig `envconfig:"TELEMETRY"`
	Storage   StorageConfig   `envconfig:"STORAGE"`
	Auth      AuthConfig      `envconfig:"AUTH"`
	Redis     RedisConfig     `envconfig:"REDIS"`
	Kafka     KafkaConfig     `envconfig:"KAFKA"`
}

// Load fills a Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("CALC_STORAGE_SQLITE_PATH is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("CALC_STORAGE_POSTGRES_DSN is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("CALC_AUTH_JWT_SECRET is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("CALC_AUTH_TOKEN_TTL must be positive"))
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("CALC_HTTP_SHUTDOWN_TIMEOUT must be positive"))
	}
	if c.Kafka.Enabled && strings.TrimSpace(c.Kafka.Brokers) == "" {
		errs = append(errs, errors.New("CALC_KAFKA_BROKERS is required when kafka is enabled"))
	}

	return errors.Join(errs...)
}
