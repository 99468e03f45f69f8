// Package config loads railseed settings from YAML, .env and the process
// environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"railseed/internal/domain"
	"railseed/internal/etl"
	"railseed/internal/seed"
)

// Config holds all railseed configuration.
type Config struct {
	Database domain.DatabaseConnection `yaml:"database"`
	Sources  SourcesConfig             `yaml:"sources"`
	Load     LoadConfig                `yaml:"load"`
	Schedule ScheduleConfig            `yaml:"schedule"`
	Server   ServerConfig              `yaml:"server"`
	History  HistoryConfig             `yaml:"history"`
	Logging  LoggingConfig             `yaml:"logging"`
}

// SourceConfig selects a registered source type and its settings.
type SourceConfig struct {
	Type   string           `yaml:"type"`
	Config etl.SourceConfig `yaml:"config"`
}

// SourcesConfig names the dataset source for each entity kind. A nil entry
// means the kind is not loaded.
type SourcesConfig struct {
	Stations *SourceConfig `yaml:"stations"`
	Trains   *SourceConfig `yaml:"trains"`
}

// LoadConfig tunes the bulk loader.
type LoadConfig struct {
	// MaxBatchRows caps rows per INSERT statement; 0 means the dialect's
	// parameter limit decides.
	MaxBatchRows  int                `yaml:"max_batch_rows"`
	TrainDefaults seed.TrainDefaults `yaml:"train_defaults"`
	Timeout       string             `yaml:"timeout"`
}

// ScheduleConfig configures recurring runs in schedule mode.
type ScheduleConfig struct {
	Cron  string   `yaml:"cron"`  // standard 5-field cron expression
	Watch []string `yaml:"watch"` // files whose changes trigger a run
}

// ServerConfig configures the control endpoint in schedule mode.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// HistoryConfig locates the local run history. An empty path disables it.
type HistoryConfig struct {
	Path  string `yaml:"path"`
	Limit int    `yaml:"limit"` // rows returned by the history listing
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: domain.DatabaseConnection{
			Driver:   domain.DatabaseDriverPostgres,
			Host:     "timescaledb",
			Port:     5432,
			Database: "railrover",
			Username: "railrover_user",
			Password: "railrover_password",
			SSLMode:  "disable",
		},
		Load: LoadConfig{
			TrainDefaults: seed.DefaultTrainDefaults(),
			Timeout:       "10m",
		},
		Server: ServerConfig{
			Addr: ":8089",
		},
		History: HistoryConfig{
			Limit: 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. A .env file in the working directory is read before the
// environment overrides are applied.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	// godotenv never overwrites variables that are already set.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.Database.Driver = domain.DatabaseDriver(v)
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database.Database = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.Database.Username = v
	}
	if v := os.Getenv("DB_PASS"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		c.Database.SSLMode = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}

	// Convenience: point a kind at a local JSON file without writing YAML.
	if v := os.Getenv("RAILSEED_STATIONS_FILE"); v != "" {
		c.Sources.Stations = jsonFileSource(v)
	}
	if v := os.Getenv("RAILSEED_TRAINS_FILE"); v != "" {
		c.Sources.Trains = jsonFileSource(v)
	}

	if v := os.Getenv("RAILSEED_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func jsonFileSource(path string) *SourceConfig {
	return &SourceConfig{
		Type:   "json_file",
		Config: etl.SourceConfig{"filePath": path},
	}
}

// ValidDrivers lists the supported database drivers.
var ValidDrivers = []domain.DatabaseDriver{domain.DatabaseDriverPostgres, domain.DatabaseDriverMySQL, domain.DatabaseDriverSQLite}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !slices.Contains(ValidDrivers, c.Database.Driver) {
		return fmt.Errorf("invalid database driver: %s (valid: %v)", c.Database.Driver, ValidDrivers)
	}
	if c.Database.Driver == domain.DatabaseDriverSQLite && c.Database.Database == "" && c.Database.URL == "" {
		return fmt.Errorf("sqlite requires a database file or URL")
	}
	if c.Sources.Stations == nil && c.Sources.Trains == nil {
		return fmt.Errorf("no sources configured (set sources.stations / sources.trains or RAILSEED_STATIONS_FILE / RAILSEED_TRAINS_FILE)")
	}
	for kind, src := range map[string]*SourceConfig{seed.KindStations: c.Sources.Stations, seed.KindTrains: c.Sources.Trains} {
		if src != nil && src.Type == "" {
			return fmt.Errorf("%s source has no type", kind)
		}
	}
	if c.Load.MaxBatchRows < 0 {
		return fmt.Errorf("max_batch_rows must not be negative: %d", c.Load.MaxBatchRows)
	}
	if _, err := time.ParseDuration(c.Load.Timeout); c.Load.Timeout != "" && err != nil {
		return fmt.Errorf("invalid load timeout %q: %w", c.Load.Timeout, err)
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history limit must not be negative: %d", c.History.Limit)
	}
	if !slices.Contains(ValidLogLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	return nil
}

// GetLoadTimeout returns the per-run timeout as a duration. Zero means no
// timeout.
func (c *Config) GetLoadTimeout() time.Duration {
	d, err := time.ParseDuration(c.Load.Timeout)
	if err != nil {
		return 0
	}
	return d
}
