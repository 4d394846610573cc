// Package config loads gateway configuration from defaults, an optional YAML
// file and the environment.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	ServerPort string         `yaml:"server_port"`
	DataDir    string         `yaml:"data_dir"`
	Database   DatabaseConfig `yaml:"database"`
	Logging    LoggingConfig  `yaml:"logging"`
	Session    SessionConfig  `yaml:"session"`
	Media      MediaConfig    `yaml:"media"`
	CORS       CORSConfig     `yaml:"cors"`
}

// DatabaseConfig selects the driver backing the session store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite3 or postgres
	DSN    string `yaml:"dsn"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	Dir         string `yaml:"dir"`
	ClientLevel string `yaml:"client_level"` // whatsmeow's own log level
}

// SessionConfig tunes the session lifecycle.
type SessionConfig struct {
	StoreTimeout    time.Duration `yaml:"store_timeout"`
	ClientTimeout   time.Duration `yaml:"client_timeout"`
	QRSize          int           `yaml:"qr_size"`
	HistoryPerChat  int           `yaml:"history_per_chat"`
	ObserverWorkers int           `yaml:"observer_workers"`
}

// MediaConfig bounds media fetches and lookups.
type MediaConfig struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	MaxBytes     int64         `yaml:"max_bytes"`
	ScanWindow   int           `yaml:"scan_window"`
}

// CORSConfig holds the allowed origins; empty means all.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		ServerPort: "3000",
		DataDir:    "data",
		Database: DatabaseConfig{
			Driver: "sqlite3",
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "text",
			Dir:         "logs",
			ClientLevel: "WARN",
		},
		Session: SessionConfig{
			StoreTimeout:    5 * time.Second,
			ClientTimeout:   60 * time.Second,
			QRSize:          256,
			HistoryPerChat:  500,
			ObserverWorkers: 4,
		},
		Media: MediaConfig{
			FetchTimeout: 30 * time.Second,
			MaxBytes:     64 << 20,
			ScanWindow:   100,
		},
	}
}

// Load builds the configuration. Values from a .env file (if present) are
// exported first, then the YAML file at path (if non-empty) is applied over
// the defaults, then WAGATE_* environment variables win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := NewConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} with the variable's value (empty if unset).
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("WAGATE_PORT", &c.ServerPort)
	str("WAGATE_DATA_DIR", &c.DataDir)
	str("WAGATE_DB_DRIVER", &c.Database.Driver)
	str("WAGATE_DB_DSN", &c.Database.DSN)
	str("WAGATE_LOG_LEVEL", &c.Logging.Level)
	str("WAGATE_LOG_FORMAT", &c.Logging.Format)
	str("WAGATE_LOG_DIR", &c.Logging.Dir)

	if v, ok := lookup("WAGATE_CORS_ORIGINS"); ok && v != "" {
		c.CORS.AllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.CORS.AllowedOrigins = append(c.CORS.AllowedOrigins, origin)
			}
		}
	}

	if v, ok := lookup("WAGATE_MEDIA_SCAN_WINDOW"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WAGATE_MEDIA_SCAN_WINDOW: %w", err)
		}
		c.Media.ScanWindow = n
	}
	if v, ok := lookup("WAGATE_CLIENT_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("WAGATE_CLIENT_TIMEOUT: %w", err)
		}
		c.Session.ClientTimeout = d
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.ServerPort == "" {
		return fmt.Errorf("server_port is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Session.QRSize <= 0 {
		return fmt.Errorf("session.qr_size must be positive")
	}
	if c.Session.HistoryPerChat <= 0 {
		return fmt.Errorf("session.history_per_chat must be positive")
	}
	if c.Session.ObserverWorkers <= 0 {
		return fmt.Errorf("session.observer_workers must be positive")
	}
	if c.Session.StoreTimeout <= 0 || c.Session.ClientTimeout <= 0 {
		return fmt.Errorf("session timeouts must be positive")
	}
	if c.Media.ScanWindow <= 0 {
		return fmt.Errorf("media.scan_window must be positive")
	}
	if c.Media.MaxBytes <= 0 || c.Media.FetchTimeout <= 0 {
		return fmt.Errorf("media limits must be positive")
	}
	return nil
}

// StoreDSN returns the DSN for the session store, defaulting to a SQLite file
// inside the data directory.
func (c *Config) StoreDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return "file:" + c.DataDir + "/sessions.db?_foreign_keys=on&_journal_mode=WAL"
}

// EnsureDataDir ensures the data directory exists
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

// GetCorsConfig returns CORS configuration for the application
func (c *Config) GetCorsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	if len(c.CORS.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = c.CORS.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Type", "X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}
