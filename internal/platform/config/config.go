package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	platformstrings "giftexchange/pkg/platform/strings"
)

// Prefix is prepended to every environment variable, e.g. GIFTEXCHANGE_ADDR.
const Prefix = "GIFTEXCHANGE"

// Store kinds.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	TracingStdout   bool          `envconfig:"TRACING_STDOUT" default:"false"`

	Store       string `envconfig:"STORE" default:"sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"giftexchange.db"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	Redis RedisConfig `envconfig:"REDIS"`
	Kafka KafkaConfig `envconfig:"KAFKA"`

	MaxAttempts  int `envconfig:"MAX_ATTEMPTS" default:"1000"`
	HistoryDepth int `envconfig:"HISTORY_DEPTH" default:"3"`
	MinRoster    int `envconfig:"MIN_ROSTER" default:"5"`
	AuditBuffer  int `envconfig:"AUDIT_BUFFER" default:"256"`
}

// RedisConfig enables the shared generation lock when URL is set.
type RedisConfig struct {
	URL          string        `envconfig:"URL"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
	LockTTL      time.Duration `envconfig:"LOCK_TTL" default:"30s"`
}

// KafkaConfig enables the audit sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `envconfig:"BROKERS"`
	Topic   string   `envconfig:"TOPIC" default:"giftexchange.audit"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.Kafka.Brokers = platformstrings.CleanList(cfg.Kafka.Brokers)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New(Prefix+"_DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("%s_STORE must be one of memory, sqlite, postgres; got %q", Prefix, c.Store))
	}
	if c.Store == StoreSQLite && c.SQLitePath == "" {
		errs = append(errs, errors.New(Prefix+"_SQLITE_PATH is required for the sqlite store"))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, errors.New(Prefix+"_MAX_ATTEMPTS must be positive"))
	}
	if c.HistoryDepth < 0 {
		errs = append(errs, errors.New(Prefix+"_HISTORY_DEPTH must not be negative"))
	}
	if c.MinRoster < 2 {
		errs = append(errs, errors.New(Prefix+"_MIN_ROSTER must be at least 2"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New(Prefix+"_KAFKA_TOPIC is required when brokers are set"))
	}
	return errors.Join(errs...)
}
