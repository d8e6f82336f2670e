package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables overriding the configuration file. The CLICKHOUSE_*
// set matches what existing deployments already export, so they keep working
// without a file.
const (
	EnvListenAddr    = "LISTEN_ADDR"
	EnvDumpDirectory = "DUMP_DIRECTORY"
	EnvSqlitePath    = "SQLITE_PATH"

	EnvClickHouseDSN          = "CLICKHOUSE_DSN"
	EnvClickHouseDatabase     = "CLICKHOUSE_DATABASE"
	EnvClickHouseMetricsTable = "CLICKHOUSE_METRICS_TABLE"
	EnvClickHouseCreateTables = "CLICKHOUSE_CREATE_TABLES"
)

// ErrNoStorage means neither the configuration file nor the environment
// configured a storage backend. The caller should print ConfigExplanation.
var ErrNoStorage = errors.New("app.Config: no storage backend configured")

// ConfigExplanation is printed when the process starts without any storage
// backend, so an operator can see every way to configure one.
const ConfigExplanation = `You have no storage backend configured.

Configure ClickHouse by setting environment variables:
  - CLICKHOUSE_DSN            (required, e.g. "clickhouse://localhost:9000")
  - CLICKHOUSE_DATABASE       (required)
  - CLICKHOUSE_METRICS_TABLE  (optional, defaults to "metrics")
  - CLICKHOUSE_CREATE_TABLES  (optional, "true" applies the schema on startup)

Or SQLite:
  - SQLITE_PATH               (path to the database file)

Or pass a configuration file with -c:

  settings:
    logLevel: info
  server:
    listenAddr: ":8080"
  storage:
    clickhouse:
      dsn: clickhouse://localhost:9000
      database: health
      createTables: true
    sqlite:
      path: ./health.db
`

type TimeDuration time.Duration

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d *TimeDuration) MarshalYAML() (interface{}, error) {
	return time.Duration(*d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d TimeDuration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the main application configuration
type Config struct {
	Settings Settings      `yaml:"settings"`
	Server   ServerConfig  `yaml:"server"`
	Writer   WriterConfig  `yaml:"writer"`
	Storage  StorageConfig `yaml:"storage"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level maps the configured log level name onto slog. Unknown or empty
// names mean info.
func (s Settings) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ServerConfig represents the HTTP listener settings
type ServerConfig struct {
	ListenAddr      string       `yaml:"listenAddr"`
	ReadTimeout     TimeDuration `yaml:"readTimeout"`
	WriteTimeout    TimeDuration `yaml:"writeTimeout"`
	ShutdownTimeout TimeDuration `yaml:"shutdownTimeout"`
	DumpDirectory   string       `yaml:"dumpDirectory"`
}

// WriterConfig represents the background write pool settings. Zero values
// mean the pool's own defaults.
type WriterConfig struct {
	Workers      int          `yaml:"workers"`
	QueueSize    int          `yaml:"queueSize"`
	WriteTimeout TimeDuration `yaml:"writeTimeout"`
}

// StorageConfig represents storage settings. Backends are optional
// individually; at least one must be configured.
type StorageConfig struct {
	MaxBatchSize int               `yaml:"maxBatchSize"`
	ClickHouse   *ClickHouseConfig `yaml:"clickhouse"`
	Sqlite       *SqliteConfig     `yaml:"sqlite"`
}

// ClickHouseConfig represents the ClickHouse backend settings
type ClickHouseConfig struct {
	DSN          string `yaml:"dsn"`
	Database     string `yaml:"database"`
	MetricsTable string `yaml:"metricsTable"`
	CreateTables bool   `yaml:"createTables"`
}

// SqliteConfig represents the SQLite backend settings
type SqliteConfig struct {
	Path string `yaml:"path"`
}

// NewConfig returns the configuration defaults applied before the file and
// the environment are consulted.
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     TimeDuration(5 * time.Minute),
			WriteTimeout:    TimeDuration(30 * time.Second),
			ShutdownTimeout: TimeDuration(30 * time.Second),
		},
	}
}

// LoadConfig builds the effective configuration: defaults, then the file at
// path when given, then environment overrides, then validation. An empty
// path is not an error; existing deployments configure everything through
// the environment.
func LoadConfig(path string) (*Config, error) {
	config := NewConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading configuration file: %w", err)
		}
		if err = yaml.Unmarshal(b, config); err != nil {
			return nil, fmt.Errorf("parsing configuration file: %w", err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func applyEnvOverrides(config *Config) {
	if v, ok := os.LookupEnv(EnvListenAddr); ok {
		config.Server.ListenAddr = v
	}
	if v, ok := os.LookupEnv(EnvDumpDirectory); ok {
		config.Server.DumpDirectory = v
	}
	if v, ok := os.LookupEnv(EnvSqlitePath); ok {
		if config.Storage.Sqlite == nil {
			config.Storage.Sqlite = &SqliteConfig{}
		}
		config.Storage.Sqlite.Path = v
	}

	dsn, dsnSet := os.LookupEnv(EnvClickHouseDSN)
	database, databaseSet := os.LookupEnv(EnvClickHouseDatabase)
	metricsTable, metricsTableSet := os.LookupEnv(EnvClickHouseMetricsTable)
	createTables, createTablesSet := os.LookupEnv(EnvClickHouseCreateTables)
	if !dsnSet && !databaseSet && !metricsTableSet && !createTablesSet {
		return
	}

	if config.Storage.ClickHouse == nil {
		config.Storage.ClickHouse = &ClickHouseConfig{}
	}
	if dsnSet {
		config.Storage.ClickHouse.DSN = dsn
	}
	if databaseSet {
		config.Storage.ClickHouse.Database = database
	}
	if metricsTableSet {
		config.Storage.ClickHouse.MetricsTable = metricsTable
	}
	if createTablesSet {
		config.Storage.ClickHouse.CreateTables = parseBool(createTables)
	}
}

// parseBool accepts the spellings deployments historically used for
// CLICKHOUSE_CREATE_TABLES.
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func (c *Config) Validate() error {
	if c.Storage.ClickHouse == nil && c.Storage.Sqlite == nil {
		return ErrNoStorage
	}

	if ch := c.Storage.ClickHouse; ch != nil {
		if ch.DSN == "" {
			return fmt.Errorf("app.Config: clickhouse dsn is required (set %s)", EnvClickHouseDSN)
		}
		if ch.Database == "" {
			return fmt.Errorf("app.Config: clickhouse database is required (set %s)", EnvClickHouseDatabase)
		}
	}
	if s := c.Storage.Sqlite; s != nil && s.Path == "" {
		return fmt.Errorf("app.Config: sqlite path is required (set %s)", EnvSqlitePath)
	}

	if c.Server.ListenAddr == "" {
		return errors.New("app.Config: listen address must not be empty")
	}
	if c.Server.DumpDirectory != "" {
		stat, err := os.Stat(c.Server.DumpDirectory)
		if err != nil {
			return fmt.Errorf("app.Config: dump directory %q: %w", c.Server.DumpDirectory, err)
		}
		if !stat.IsDir() {
			return fmt.Errorf("app.Config: dump directory %q is not a directory", c.Server.DumpDirectory)
		}
	}

	switch strings.ToLower(c.Settings.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("app.Config: invalid log level: %s", c.Settings.LogLevel)
	}

	return nil
}
