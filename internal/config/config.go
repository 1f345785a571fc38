package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Database struct {
	Driver string `yaml:"driver"`
	// Path is the sqlite file. Ignored by the other drivers.
	Path string `yaml:"path"`
	// DSN is used as is for mysql and postgres.
	DSN string `yaml:"dsn"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RateLimit is a token bucket per client address. Capacity 0 disables it.
type RateLimit struct {
	Capacity        int `yaml:"capacity"`
	RefillPerSecond int `yaml:"refillPerSecond"`
}

type Config struct {
	Server struct {
		Port           int       `yaml:"port"`
		AllowedOrigins []string  `yaml:"allowedOrigins"`
		RateLimit      RateLimit `yaml:"rateLimit"`
	} `yaml:"server"`

	Database Database `yaml:"database"`
	Log      Log      `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Server.Port = 8080
	cfg.Server.RateLimit = RateLimit{Capacity: 60, RefillPerSecond: 10}
	cfg.Database.Driver = DriverSQLite
	cfg.Database.Path = DefaultDatabasePath()
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return &cfg
}

// DefaultDatabasePath is ~/.automaton/db.sqlite, or a file in the working
// directory when the home directory is unknown.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "automaton.sqlite"
	}
	return filepath.Join(home, ".automaton", "db.sqlite")
}

// Load baca file config.yaml. A missing file is not an error: defaults and the
// environment still apply. Values from a .env file in the working directory are
// exported before the environment overrides are read.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("AUTOMATON_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("AUTOMATON_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("AUTOMATON_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("AUTOMATON_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AUTOMATON_SERVER_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("AUTOMATON_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("AUTOMATON_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	return nil
}

// Validate checks the driver specific requirements.
func (c *Config) Validate() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case DriverMySQL, DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if rl := c.Server.RateLimit; rl.Capacity < 0 || (rl.Capacity > 0 && rl.RefillPerSecond <= 0) {
		return fmt.Errorf("invalid rate limit: capacity %d, refill %d/s", rl.Capacity, rl.RefillPerSecond)
	}
	return nil
}

// SQLiteDSN builds the go-sqlite3 DSN for the configured file with foreign keys
// enforced.
func (d Database) SQLiteDSN() string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", d.Path)
}
