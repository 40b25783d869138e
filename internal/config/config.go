// Package config loads the arbitrage detector's configuration: the
// engine's tunable constants (spec §6) plus the IO/logging/metrics/archive
// settings around it, following the teacher's Load/setDefaults/
// applyEnvOverrides/validate structure.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	IO      IOConfig      `yaml:"io"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Archive ArchiveConfig `yaml:"archive"`
}

// EngineConfig holds the detection engine's tunable constants (spec §6).
type EngineConfig struct {
	MinTVLUSD      float64 `yaml:"min_tvl_usd"`
	WETHAddress    string  `yaml:"weth_address"`
	GasCostETH     float64 `yaml:"gas_cost_eth"`
	NetProfitFloor float64 `yaml:"net_profit_floor"`
	Workers        int     `yaml:"workers"`
}

// IOConfig holds the input snapshot path and output report settings.
type IOConfig struct {
	SnapshotPath string `yaml:"snapshot_path"`
	CSVPath      string `yaml:"csv_path"`
	JSONPath     string `yaml:"json_path"`
	TopK         int    `yaml:"top_k"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// ArchiveConfig holds optional run-history archive settings.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file (optional — a missing file
// falls back to defaults) and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.setDefaults()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if len(data) > 0 {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values for every configuration field, matching
// the tunable constants named explicitly in spec §6.
func (c *Config) setDefaults() {
	c.Engine = EngineConfig{
		MinTVLUSD:      50_000,
		WETHAddress:    "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
		GasCostETH:     0.0128,
		NetProfitFloor: 1e-4,
		Workers:        0, // 0 -> runtime.GOMAXPROCS(0)
	}
	c.IO = IOConfig{
		SnapshotPath: "snapshot.json",
		CSVPath:      "opportunities.csv",
		JSONPath:     "opportunities.json",
		TopK:         10,
	}
	c.Logging = LoggingConfig{
		Level:  "info",
		Format: "console",
	}
	c.Metrics = MetricsConfig{
		Enabled: false,
		Port:    9090,
		Path:    "/metrics",
	}
	c.Archive = ArchiveConfig{
		Enabled: false,
		Path:    "./data/arbdetect.db",
	}
}

// applyEnvOverrides applies environment variable overrides to configuration.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ARB_SNAPSHOT_PATH"); v != "" {
		c.IO.SnapshotPath = v
	}
	if v := os.Getenv("ARB_MIN_TVL_USD"); v != "" {
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil && f >= 0 {
			c.Engine.MinTVLUSD = f
		}
	}
	if v := os.Getenv("ARB_WETH_ADDRESS"); v != "" {
		c.Engine.WETHAddress = strings.ToLower(v)
	}
	if v := os.Getenv("ARB_GAS_COST_ETH"); v != "" {
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil && f >= 0 {
			c.Engine.GasCostETH = f
		}
	}
	if v := os.Getenv("ARB_TOP_K"); v != "" {
		var k int
		if _, err := fmt.Sscanf(v, "%d", &k); err == nil && k > 0 {
			c.IO.TopK = k
		}
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil && port > 0 {
			c.Metrics.Port = port
		}
	}
	if v := os.Getenv("ARB_ARCHIVE_PATH"); v != "" {
		c.Archive.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// validate checks that all required configuration values are present and
// valid.
func (c *Config) validate() error {
	if c.IO.SnapshotPath == "" {
		return fmt.Errorf("io.snapshot_path is required")
	}
	if c.Engine.MinTVLUSD < 0 {
		return fmt.Errorf("engine.min_tvl_usd must be non-negative")
	}
	if c.Engine.GasCostETH < 0 {
		return fmt.Errorf("engine.gas_cost_eth must be non-negative")
	}
	if c.Engine.NetProfitFloor < 0 {
		return fmt.Errorf("engine.net_profit_floor must be non-negative")
	}
	if c.IO.TopK <= 0 {
		return fmt.Errorf("io.top_k must be positive")
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be a valid port number")
	}
	return nil
}
