package util

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort                = 3009
	DefaultTopN                = 5
	DefaultCarryForwardDays    = 10
	DefaultCacheRefreshAfter   = 6 * time.Hour
	DefaultPrefetchConcurrency = 10
)

type Config struct {
	Port        int             `yaml:"port"`
	Currency    CurrencyConfig  `yaml:"currency"`
	Attribution AttributionConf `yaml:"attribution"`
	MarketData  MarketDataConf  `yaml:"marketData"`
	// optional, the persisted reference cache is skipped when Host is empty
	Db DbConfig `yaml:"db"`
}

type CurrencyConfig struct {
	Base             string   `yaml:"base"`
	Foreign          string   `yaml:"foreign"`
	CashTicker       string   `yaml:"cashTicker"`
	DomesticSuffixes []string `yaml:"domesticSuffixes"`
	DomesticTickers  []string `yaml:"domesticTickers"`
}

type AttributionConf struct {
	TopN              int  `yaml:"topN"`
	CarryForwardDays  int  `yaml:"carryForwardDays"`
	IncludeBenchmarks bool `yaml:"includeBenchmarks"`
}

type MarketDataConf struct {
	LookbackDays        int           `yaml:"lookbackDays"`
	RefreshAfter        time.Duration `yaml:"refreshAfter"`
	PrefetchConcurrency int           `yaml:"prefetchConcurrency"`
}

type DbConfig struct {
	Host      string `yaml:"host"`
	User      string `yaml:"user"`
	Port      string `yaml:"port"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	EnableSsl bool   `yaml:"enableSsl"`
}

func (t DbConfig) Enabled() bool {
	return t.Host != ""
}

func (t DbConfig) ToConnectionStr() string {
	x := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s",
		t.Host, t.Port, t.User, t.Password, t.Database)
	if !t.EnableSsl {
		x += " sslmode=disable"
	}
	return x
}

// ConfigPath picks the config file for the current ATTRIBUTION_ENV.
// CONFIG_PATH overrides it.
func ConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	switch strings.ToLower(os.Getenv("ATTRIBUTION_ENV")) {
	case "dev":
		return "config-dev.yaml"
	case "test":
		return "config-test.yaml"
	default:
		return "/go/src/app/config.yaml"
	}
}

func LoadConfig() (*Config, error) {
	return LoadConfigFile(ConfigPath())
}

// LoadConfigFile reads a YAML config, expands ${VAR} references, applies
// defaults and validates
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open config file %s: %w", path, err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return cfg, nil
}

func ParseConfig(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := Config{}
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// DefaultConfig is used when no file is present, e.g. by the cli
func DefaultConfig() *Config {
	cfg := Config{}
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Currency.Base == "" {
		c.Currency.Base = "CAD"
	}
	if c.Currency.Foreign == "" {
		c.Currency.Foreign = "USD"
	}
	if c.Currency.CashTicker == "" {
		c.Currency.CashTicker = "$CASH$"
	}
	if c.Currency.DomesticSuffixes == nil {
		c.Currency.DomesticSuffixes = []string{".TO", ".V", ".NE", ".CN"}
	}
	if c.Currency.DomesticTickers == nil {
		c.Currency.DomesticTickers = []string{"^GSPTSE"}
	}
	if c.Attribution.TopN == 0 {
		c.Attribution.TopN = DefaultTopN
	}
	if c.Attribution.CarryForwardDays == 0 {
		c.Attribution.CarryForwardDays = DefaultCarryForwardDays
	}
	if c.MarketData.LookbackDays == 0 {
		c.MarketData.LookbackDays = DefaultCarryForwardDays
	}
	if c.MarketData.RefreshAfter == 0 {
		c.MarketData.RefreshAfter = DefaultCacheRefreshAfter
	}
	if c.MarketData.PrefetchConcurrency == 0 {
		c.MarketData.PrefetchConcurrency = DefaultPrefetchConcurrency
	}
	if c.Db.Port == "" {
		c.Db.Port = "5432"
	}
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if len(c.Currency.Base) != 3 || len(c.Currency.Foreign) != 3 {
		return fmt.Errorf("currencies must be ISO codes, got base=%q foreign=%q", c.Currency.Base, c.Currency.Foreign)
	}
	if c.Attribution.TopN < 0 {
		return fmt.Errorf("attribution.topN must be positive, got %d", c.Attribution.TopN)
	}
	if c.Attribution.CarryForwardDays < 0 {
		return fmt.Errorf("attribution.carryForwardDays must be positive, got %d", c.Attribution.CarryForwardDays)
	}
	if c.MarketData.PrefetchConcurrency < 0 {
		return fmt.Errorf("marketData.prefetchConcurrency must be positive, got %d", c.MarketData.PrefetchConcurrency)
	}
	return nil
}
