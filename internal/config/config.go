package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"nifty-bank-live/internal/market"
)

var (
	// ErrMissingCredentials means no store credential blob was supplied.
	ErrMissingCredentials = errors.New("store credentials missing")
	// ErrInvalidCredentials means the credential blob could not be used.
	ErrInvalidCredentials = errors.New("store credentials invalid")
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Store   StoreConfig   `yaml:"store"`
	Market  MarketConfig  `yaml:"market"`
	Refresh RefreshConfig `yaml:"refresh"`
	Pinger  PingerConfig  `yaml:"pinger"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StoreConfig struct {
	// Required makes a missing or broken store fatal at startup.
	Required bool `yaml:"required"`
	// Credentials is the JSON credential blob, usually from STORE_CREDENTIALS.
	Credentials string `yaml:"credentials"`
}

type Watchlist struct {
	Name    string   `yaml:"name"`
	Symbols []string `yaml:"symbols"`
}

type MarketConfig struct {
	Watchlists    []Watchlist `yaml:"watchlists"`
	Strategy      string      `yaml:"strategy"`
	Fallback      []string    `yaml:"fallback"`
	PrevClose     string      `yaml:"prev_close"`
	SparkInterval string      `yaml:"spark_interval"`
	Concurrency   int         `yaml:"concurrency"`
	TimeoutMs     int         `yaml:"timeout_ms"`
	BaseURL       string      `yaml:"base_url"`
}

type RefreshConfig struct {
	IntervalSec     int `yaml:"interval_sec"`
	CycleTimeoutSec int `yaml:"cycle_timeout_sec"`
}

type PingerConfig struct {
	URL         string `yaml:"url"`
	IntervalSec int    `yaml:"interval_sec"`
	TimeoutMs   int    `yaml:"timeout_ms"`
}

// Credentials is the decoded store credential blob.
type Credentials struct {
	Driver   string `json:"driver"`
	Path     string `json:"path,omitempty"`
	Addr     string `json:"addr,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
	DSN      string `json:"dsn,omitempty"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{Port: 5000},
		Log:    LogConfig{Level: "info", Format: "json"},
		Market: MarketConfig{
			Watchlists: []Watchlist{
				{Name: "nifty50_top5", Symbols: slices.Clone(market.Nifty50Top5)},
				{Name: "banknifty_top5", Symbols: slices.Clone(market.BankNiftyTop5)},
			},
			Strategy:      "chart",
			PrevClose:     "official",
			SparkInterval: "15m",
			Concurrency:   4,
			TimeoutMs:     5000,
		},
		Refresh: RefreshConfig{IntervalSec: 900},
		Pinger:  PingerConfig{IntervalSec: 600, TimeoutMs: 10000},
	}
}

// Load reads a .env file if present, then the YAML file at path (defaults
// when it does not exist), then environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("invalid PORT: %q", v)
		}
		cfg.Server.Port = p
	}
	if v := os.Getenv("STORE_CREDENTIALS"); v != "" {
		cfg.Store.Credentials = v
	}
	if v := os.Getenv("STORE_REQUIRED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid STORE_REQUIRED: %q", v)
		}
		cfg.Store.Required = b
	}
	if v := os.Getenv("REFRESH_INTERVAL_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REFRESH_INTERVAL_SEC: %q", v)
		}
		cfg.Refresh.IntervalSec = n
	}
	if v := os.Getenv("MARKET_STRATEGY"); v != "" {
		cfg.Market.Strategy = v
	}
	if v := os.Getenv("MARKET_PREV_CLOSE"); v != "" {
		cfg.Market.PrevClose = v
	}
	if v := os.Getenv("PINGER_URL"); v != "" {
		cfg.Pinger.URL = v
	}
	if v := os.Getenv("PINGER_INTERVAL_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PINGER_INTERVAL_SEC: %q", v)
		}
		cfg.Pinger.IntervalSec = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Refresh.IntervalSec < 1 {
		return fmt.Errorf("refresh.interval_sec must be >= 1, got %d", c.Refresh.IntervalSec)
	}
	if c.Refresh.CycleTimeoutSec < 0 {
		return fmt.Errorf("refresh.cycle_timeout_sec must be >= 0")
	}
	if c.Market.TimeoutMs <= 0 {
		return fmt.Errorf("market.timeout_ms must be > 0")
	}
	n := 0
	for _, w := range c.Market.Watchlists {
		n += len(w.Symbols)
	}
	if n == 0 {
		return fmt.Errorf("market.watchlists has no symbols")
	}
	return nil
}

// Symbols returns the watchlists in declaration order for universe construction.
func (m MarketConfig) Symbols() [][]string {
	out := make([][]string, 0, len(m.Watchlists))
	for _, w := range m.Watchlists {
		out = append(out, w.Symbols)
	}
	return out
}

// ParseCredentials decodes the credential blob. Errors wrap
// ErrMissingCredentials or ErrInvalidCredentials.
func (s StoreConfig) ParseCredentials() (Credentials, error) {
	raw := strings.TrimSpace(s.Credentials)
	if raw == "" {
		return Credentials{}, ErrMissingCredentials
	}
	var c Credentials
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case "sqlite":
	case "redis":
		if c.Addr == "" {
			return Credentials{}, fmt.Errorf("%w: redis requires addr", ErrInvalidCredentials)
		}
	case "postgres", "postgresql":
		if c.DSN == "" {
			return Credentials{}, fmt.Errorf("%w: postgres requires dsn", ErrInvalidCredentials)
		}
	case "":
		return Credentials{}, fmt.Errorf("%w: driver is required", ErrInvalidCredentials)
	default:
		return Credentials{}, fmt.Errorf("%w: unknown driver %q", ErrInvalidCredentials, c.Driver)
	}
	return c, nil
}
