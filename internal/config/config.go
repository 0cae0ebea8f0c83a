package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"sc-provisioner/internal/datastore"
	"sc-provisioner/internal/provisioning"
)

// DefaultEnvFiles are loaded, when present, before the environment is parsed.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Config holds the settings read from the environment. CLI flags override them.
type Config struct {
	StoreType        string `env:"SCP_STORE_TYPE" envDefault:"postgresql"`
	ConnectionString string `env:"DB_CONN_STRING" envDefault:"postgres://localhost:5432/postgres?sslmode=disable"`
	SQLitePath       string `env:"SCP_SQLITE_PATH" envDefault:"sc-provisioner.db"`

	Provider        string `env:"SCP_PROVIDER"`
	DefaultType     string `env:"SCP_DEFAULT_TYPE" envDefault:"Equipment"`
	ServiceCodeType string `env:"SCP_SERVICE_CODE_TYPE" envDefault:"payroll"`
	VerboseNames    bool   `env:"SCP_VERBOSE_NAMES" envDefault:"false"`
	MatchPolicy     string `env:"SCP_MATCH_POLICY" envDefault:"full"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadEnv loads the env files that exist and returns how many were found.
// Variables already set in the process environment are not overridden.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			existing = append(existing, file)
		}
	}

	if len(existing) == 0 {
		return 0, nil
	}

	return len(existing), godotenv.Load(existing...)
}

// Load reads envFiles (DefaultEnvFiles when none are given) and parses the
// environment into a Config.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if _, err := provisioning.ParseMatchPolicy(c.MatchPolicy); err != nil {
		return nil, err
	}
	return c, nil
}

// GetDataStoreConfig returns the data store configuration for the configured store type.
func (c *Config) GetDataStoreConfig() datastore.Config {
	config := datastore.Config{}

	switch strings.ToLower(c.StoreType) {
	case "memory", "mem":
		config.Type = datastore.MemoryStore
	case "sqlite", "sqlite3":
		config.Type = datastore.SQLiteStore
		config.SQLitePath = c.SQLitePath
	case "postgresql", "postgres", "db":
		config.Type = datastore.PostgreSQLStore
		config.ConnectionString = c.ConnectionString
	default:
		// Default to PostgreSQL if unknown type
		config.Type = datastore.PostgreSQLStore
		config.ConnectionString = c.ConnectionString
	}

	return config
}

// IsMemoryMode returns true if the store lives only in process memory.
func (c *Config) IsMemoryMode() bool {
	return c.GetDataStoreConfig().Type == datastore.MemoryStore
}

// Policy returns the parsed match policy.
func (c *Config) Policy() provisioning.MatchPolicy {
	p, err := provisioning.ParseMatchPolicy(c.MatchPolicy)
	if err != nil {
		return provisioning.MatchFull
	}
	return p
}

// LogrusLogLevel maps LOG_LEVEL onto a logrus level.
func (c *Config) LogrusLogLevel() logrus.Level {
	switch strings.ToLower(c.LogLevel) {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

// Logger builds a stderr logger at the configured level.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(c.LogrusLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}
