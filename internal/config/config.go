// Package config reads the service configuration from the environment.
// Values may come from a .env file loaded by godotenv in cmd/*.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/mickarin/internal/auth"
	"github.com/jason-s-yu/mickarin/internal/cache"
	"github.com/jason-s-yu/mickarin/internal/database"
	"github.com/sirupsen/logrus"
)

// Store drivers accepted in STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config is the typed view of the environment.
type Config struct {
	Port      string
	LogLevel  logrus.Level
	PublicURL string // base URL embedded in invite QR codes; empty encodes the bare code

	StoreDriver string
	DatabaseURL string
	MongoURI    string
	MongoDB     string

	// RedisAddr empty disables the action log.
	RedisAddr string
	RedisDB   int
	QueueName string

	TurnTimeout time.Duration
	RevealDelay time.Duration
	TokenExpire time.Duration // 0 => session tokens never expire

	// Ed25519 key files. Both empty => a key pair is generated at startup.
	PrivateKeyPath string
	PublicKeyPath  string

	HistorianBatchSize int
	HistorianFlush     time.Duration
}

// Load builds a Config from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		PublicURL:      strings.TrimRight(os.Getenv("PUBLIC_URL"), "/"),
		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getEnv("MONGO_DB", "mickarin"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		QueueName:      getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName),
		PrivateKeyPath: os.Getenv("PRIVATE_KEY_PATH"),
		PublicKeyPath:  os.Getenv("PUBLIC_KEY_PATH"),

		HistorianBatchSize: getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlush:     time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
	}

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = database.ConnectionString(
			getEnv("POSTGRES_USER", "postgres"),
			os.Getenv("POSTGRES_PASSWORD"),
			getEnv("PG_HOST", "localhost"),
			getEnv("PG_PORT", "5432"),
			getEnv("PG_DATABASE", "mickarin"),
		)
	}

	if cfg.TurnTimeout, err = getEnvDuration("TURN_TIMEOUT", 90*time.Second); err != nil {
		return nil, err
	}
	if cfg.RevealDelay, err = getEnvDuration("REVEAL_DELAY", 1500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.TokenExpire, err = auth.ParseExpire(os.Getenv("TOKEN_EXPIRE_TIME")); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory, StorePostgres, StoreMongo:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if (c.PrivateKeyPath == "") != (c.PublicKeyPath == "") {
		return fmt.Errorf("PRIVATE_KEY_PATH and PUBLIC_KEY_PATH must be set together")
	}
	if c.HistorianBatchSize <= 0 {
		return fmt.Errorf("HISTORIAN_BATCH_SIZE must be positive")
	}
	if c.HistorianFlush <= 0 {
		return fmt.Errorf("HISTORIAN_FLUSH_MS must be positive")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}

// getEnvDuration accepts a Go duration ("90s") or a bare number of milliseconds.
func getEnvDuration(key string, defVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defVal, nil
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
