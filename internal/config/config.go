package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the tradedesk application.
type Config struct {
	Storage Storage `yaml:"storage"`
	Server  Server  `yaml:"server"`
	Broker  Broker  `yaml:"broker"`
	Alpaca  Alpaca  `yaml:"alpaca"`
	Risk    Risk    `yaml:"risk"`
	Session Session `yaml:"session"`
	Logging Logging `yaml:"logging"`
}

// Storage holds paths for local persistence: the submission journal and
// parquet exports.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds the HTTP listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Broker selects and configures the execution backend. Backend is either
// "rest" (the platform's own trading backend) or "alpaca" (direct broker
// access with a paper/live endpoint split).
type Broker struct {
	Backend string `yaml:"backend"`
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// Alpaca holds credentials for the Alpaca broker API. Endpoints are chosen
// per trading mode and are not configurable.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

// Risk configures the risk assessment service client.
type Risk struct {
	BaseURL        string `yaml:"base_url"`
	Token          string `yaml:"token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MemoTTLSeconds int    `yaml:"memo_ttl_seconds"`
}

// Session configures the trading session controller.
type Session struct {
	DefaultMode         string `yaml:"default_mode"`
	OrdersPerMinute     int    `yaml:"orders_per_minute"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Broker.Backend == "" {
		cfg.Broker.Backend = "rest"
	}
	if cfg.Risk.TimeoutSeconds <= 0 {
		cfg.Risk.TimeoutSeconds = 4
	}
	if cfg.Risk.MemoTTLSeconds <= 0 {
		cfg.Risk.MemoTTLSeconds = 10
	}
	if cfg.Session.DefaultMode == "" {
		cfg.Session.DefaultMode = "paper"
	}
	if cfg.Session.OrdersPerMinute <= 0 {
		cfg.Session.OrdersPerMinute = 60
	}
	if cfg.Session.PollIntervalSeconds <= 0 {
		cfg.Session.PollIntervalSeconds = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func (cfg *Config) validate() error {
	switch cfg.Broker.Backend {
	case "rest", "alpaca":
	default:
		return fmt.Errorf("unknown broker backend %q", cfg.Broker.Backend)
	}
	switch cfg.Session.DefaultMode {
	case "paper", "live":
	default:
		return fmt.Errorf("unknown default mode %q", cfg.Session.DefaultMode)
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("BROKER_BACKEND"); v != "" {
		cfg.Broker.Backend = v
	}
	if v := os.Getenv("BROKER_BASE_URL"); v != "" {
		cfg.Broker.BaseURL = v
	}
	if v := os.Getenv("BROKER_TOKEN"); v != "" {
		cfg.Broker.Token = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("RISK_BASE_URL"); v != "" {
		cfg.Risk.BaseURL = v
	}
	if v := os.Getenv("RISK_TOKEN"); v != "" {
		cfg.Risk.Token = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
