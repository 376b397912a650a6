// Package config loads the service configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen      string `yaml:"listen"`
	RulesetPath string `yaml:"ruleset_path"`
	// Options override the ruleset's named boolean options.
	Options      map[string]bool `yaml:"options"`
	Connectivity bool            `yaml:"connectivity"`
	PrettyJSON   bool            `yaml:"pretty_json"`
	DebugOSMID   int64           `yaml:"debug_osm_id"`
	LogLevel     string          `yaml:"log_level"`
	OutputDir    string          `yaml:"output_dir"`

	Overpass  OverpassConfig  `yaml:"overpass"`
	Database  DatabaseConfig  `yaml:"database"`
	Publisher PublisherConfig `yaml:"publisher"`
}

type OverpassConfig struct {
	URL         string        `yaml:"url"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxParallel int           `yaml:"max_parallel"`
	// MaxAreaKm2 rejects fetches over larger areas.
	MaxAreaKm2 float64 `yaml:"max_area_km2"`
}

// DatabaseConfig selects the run store. An empty driver disables it.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres | sqlite
	DSN    string `yaml:"dsn"`
}

// PublisherConfig points at the artifact upload endpoint. An empty URL
// disables publishing.
type PublisherConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen:       ":8080",
		Options:      map[string]bool{},
		Connectivity: true,
		LogLevel:     "info",
		OutputDir:    ".",
		Overpass: OverpassConfig{
			URL:         "https://overpass-api.de/api/interpreter",
			Timeout:     60 * time.Second,
			MaxParallel: 2,
			MaxAreaKm2:  25,
		},
		Publisher: PublisherConfig{
			Timeout: 30 * time.Second,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if cfg.Options == nil {
		cfg.Options = map[string]bool{}
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// ApplyEnv applies environment variable overrides.
func (c *Config) ApplyEnv() {
	if v, ok := parseBool(os.Getenv("MAPDESC_PRETTY_JSON")); ok {
		c.PrettyJSON = v
	}
	if v := os.Getenv("MAPDESC_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("OVERPASS_URL"); v != "" {
		c.Overpass.URL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
		if c.Database.Driver == "" {
			c.Database.Driver = "postgres"
		}
	}
	if v := os.Getenv("PUBLISHER_URL"); v != "" {
		c.Publisher.URL = v
	}
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q must be debug, info, warn or error", c.LogLevel)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.Overpass.MaxParallel <= 0 {
		return fmt.Errorf("overpass.max_parallel must be > 0")
	}
	if c.Overpass.Timeout <= 0 {
		return fmt.Errorf("overpass.timeout must be > 0")
	}
	switch c.Database.Driver {
	case "":
	case "postgres", "sqlite":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported database.driver %q (use postgres or sqlite)", c.Database.Driver)
	}
	if c.Publisher.URL != "" && c.Publisher.Timeout <= 0 {
		return fmt.Errorf("publisher.timeout must be > 0")
	}
	return nil
}

// parseBool accepts 1/true/yes/on and 0/false/no/off.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
