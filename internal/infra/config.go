package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fbarrueco/crimson-city-life/internal/market"
)

// Config holds all application settings. LoadConfig reads it from YAML and
// applies environment variable overrides on top.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Market market.Config `yaml:"market"`

	Trader struct {
		ID           string  `yaml:"id"`
		StartingCash float64 `yaml:"starting_cash"`
	} `yaml:"trader"`

	Server struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"server"`

	Snapshot struct {
		IntervalSec int `yaml:"interval_sec"`
		Keep        int `yaml:"keep"`
	} `yaml:"snapshot"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns a runnable configuration so the app can start
// without a config file.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = AppName
	cfg.App.Version = "dev"
	cfg.Market = market.DefaultConfig()
	cfg.Trader.ID = "player"
	cfg.Trader.StartingCash = 1000
	cfg.Server.Enabled = false
	cfg.Server.Addr = "127.0.0.1:8422"
	cfg.Snapshot.IntervalSec = 300
	cfg.Snapshot.Keep = 5
	cfg.Logging.Level = "info"
	return cfg
}

// LoadConfig reads and parses the configuration file. A missing file is
// not an error: defaults apply. Environment overrides apply either way.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fresh install, keep defaults
	default:
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if err := c.Market.Validate(); err != nil {
		return err
	}
	if c.Trader.ID == "" {
		return fmt.Errorf("trader id is required")
	}
	if c.Trader.StartingCash < 0 {
		return fmt.Errorf("starting cash must not be negative: %f", c.Trader.StartingCash)
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("server addr is required when server is enabled")
	}
	if c.Snapshot.IntervalSec <= 0 {
		return fmt.Errorf("snapshot interval must be positive: %d", c.Snapshot.IntervalSec)
	}
	if c.Snapshot.Keep <= 0 {
		return fmt.Errorf("snapshot keep count must be positive: %d", c.Snapshot.Keep)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", c.Logging.Level)
	}
	return nil
}

// overrideWithEnv lets environment variables take priority over file values.
func overrideWithEnv(cfg *Config) {
	if addr := os.Getenv("CRIMSON_SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
		cfg.Server.Enabled = true
	}
	if level := os.Getenv("CRIMSON_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if id := os.Getenv("CRIMSON_TRADER_ID"); id != "" {
		cfg.Trader.ID = id
	}
}
