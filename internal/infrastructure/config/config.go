package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "BUILDINGDATA_CONFIG"

// Config is the root configuration structure for the building data service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Import   ImportConfig   `yaml:"import"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ImportConfig controls where source files come from and how they are merged.
type ImportConfig struct {
	SourceDir  string   `yaml:"source_dir"`
	Extensions []string `yaml:"extensions"`

	// Format forces one source format ("csv", "csv-long", "wide-csv", "xlsx").
	// Empty derives the format from each file's extension.
	Format string `yaml:"format"`

	Workers         int    `yaml:"workers"`
	DuplicatePolicy string `yaml:"duplicate_policy"` // average, min, max

	// Clock is "utc" or "standard". With "standard", wall-clock timestamps
	// are read in Timezone and daylight saving time is removed.
	Clock    string `yaml:"clock"`
	Timezone string `yaml:"timezone"`

	WeatherFile  string `yaml:"weather_file"`
	SnapshotPath string `yaml:"snapshot_path"`
	MaxSourceMB  int    `yaml:"max_source_mb"`

	// OnStartup runs an import before the API starts serving.
	OnStartup bool `yaml:"on_startup"`

	// Interval re-runs the import every Interval seconds. 0 disables it.
	Interval int `yaml:"interval"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults); skipped when path is empty
//  3. A .env file in the working directory, if present (never overrides
//     variables already set in the process environment)
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: BUILDINGDATA_SECTION_KEY
// For example: BUILDINGDATA_DATABASE_PATH, BUILDINGDATA_IMPORT_SOURCE_DIR
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for defaults only
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Import: ImportConfig{
			SourceDir:       "./data/sources",
			Extensions:      []string{".csv", ".xlsx"},
			Workers:         4,
			DuplicatePolicy: "average",
			Clock:           "utc",
			Timezone:        "Europe/Berlin",
			MaxSourceMB:     256,
			OnStartup:       true,
		},
		Database: DatabaseConfig{
			Path:        "./data/buildingdata.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "buildingdata",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 60,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Org:           "buildingdata",
			Bucket:        "building_data",
			BatchSize:     5000,
			FlushInterval: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BUILDINGDATA_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	var errs []string

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %q is not a boolean", key, v))
				return
			}
			*dst = b
		}
	}

	// Import
	setString("BUILDINGDATA_IMPORT_SOURCE_DIR", &cfg.Import.SourceDir)
	setString("BUILDINGDATA_IMPORT_WEATHER_FILE", &cfg.Import.WeatherFile)
	setString("BUILDINGDATA_IMPORT_SNAPSHOT_PATH", &cfg.Import.SnapshotPath)
	setString("BUILDINGDATA_IMPORT_DUPLICATE_POLICY", &cfg.Import.DuplicatePolicy)
	setString("BUILDINGDATA_IMPORT_CLOCK", &cfg.Import.Clock)
	setString("BUILDINGDATA_IMPORT_TIMEZONE", &cfg.Import.Timezone)
	setInt("BUILDINGDATA_IMPORT_WORKERS", &cfg.Import.Workers)
	setInt("BUILDINGDATA_IMPORT_INTERVAL", &cfg.Import.Interval)

	// Database
	setString("BUILDINGDATA_DATABASE_PATH", &cfg.Database.Path)

	// MQTT
	setBool("BUILDINGDATA_MQTT_ENABLED", &cfg.MQTT.Enabled)
	setString("BUILDINGDATA_MQTT_HOST", &cfg.MQTT.Broker.Host)
	setString("BUILDINGDATA_MQTT_USERNAME", &cfg.MQTT.Auth.Username)
	setString("BUILDINGDATA_MQTT_PASSWORD", &cfg.MQTT.Auth.Password)

	// API
	setString("BUILDINGDATA_API_HOST", &cfg.API.Host)
	setInt("BUILDINGDATA_API_PORT", &cfg.API.Port)

	// InfluxDB
	setBool("BUILDINGDATA_INFLUXDB_ENABLED", &cfg.InfluxDB.Enabled)
	setString("BUILDINGDATA_INFLUXDB_URL", &cfg.InfluxDB.URL)
	setString("BUILDINGDATA_INFLUXDB_TOKEN", &cfg.InfluxDB.Token)

	// Logging
	setString("BUILDINGDATA_LOG_LEVEL", &cfg.Logging.Level)

	if len(errs) > 0 {
		return fmt.Errorf("environment overrides: %s", strings.Join(errs, "; "))
	}
	return nil
}

// duplicatePolicies lists the accepted import.duplicate_policy values.
var duplicatePolicies = map[string]bool{"average": true, "mean": true, "min": true, "max": true}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Import validation
	if c.Import.SourceDir == "" {
		errs = append(errs, "import.source_dir is required")
	}
	if c.Import.Workers < 1 {
		errs = append(errs, "import.workers must be at least 1")
	}
	if p := strings.ToLower(c.Import.DuplicatePolicy); p != "" && !duplicatePolicies[p] {
		errs = append(errs, "import.duplicate_policy must be average, min or max")
	}
	switch strings.ToLower(c.Import.Clock) {
	case "", "utc":
	case "standard":
		if _, err := time.LoadLocation(c.Import.Timezone); err != nil || c.Import.Timezone == "" {
			errs = append(errs, fmt.Sprintf("import.timezone %q is not a known zone", c.Import.Timezone))
		}
	default:
		errs = append(errs, "import.clock must be utc or standard")
	}
	if c.Import.Interval < 0 {
		errs = append(errs, "import.interval must not be negative")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location returns the import time zone. UTC when no zone is configured.
func (c *Config) Location() (*time.Location, error) {
	if c.Import.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Import.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Import.Timezone, err)
	}
	return loc, nil
}

// GetImportInterval returns the re-import interval as a Duration (0 = disabled).
func (c *Config) GetImportInterval() time.Duration {
	return time.Duration(c.Import.Interval) * time.Second
}

// GetMaxSourceBytes returns the per-source size cap in bytes.
func (c *Config) GetMaxSourceBytes() int64 {
	return int64(c.Import.MaxSourceMB) << 20
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
