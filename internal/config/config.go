package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Cache struct {
		RootDir          string `yaml:"root_dir"`
		Namespace        string `yaml:"namespace"`
		MaxAgeHours      int    `yaml:"max_age_hours"`
		BufferDays       int    `yaml:"buffer_days"`
		MaxLookbackYears int    `yaml:"max_lookback_years"`
	} `yaml:"cache"`
	Source struct {
		Name           string `yaml:"name"` // "yahoo" or "vstrader"
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		RequestsPerSec int    `yaml:"requests_per_sec"`
	} `yaml:"source"`
	Warm struct {
		Cron         string   `yaml:"cron"`
		Symbols      []string `yaml:"symbols"`
		Intervals    []string `yaml:"intervals"`
		LookbackDays int      `yaml:"lookback_days"`
	} `yaml:"warm"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	LogLevel string `yaml:"log_level"`
	Proxy    string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("CACHE_ROOT_DIR"); v != "" {
		cfg.Cache.RootDir = v
	}
	if v := os.Getenv("CACHE_MAX_AGE_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxAgeHours = n
		}
	}
	if v := os.Getenv("SOURCE_NAME"); v != "" {
		cfg.Source.Name = v
	}
	if v := os.Getenv("VSTRADER_BASE_URL"); v != "" {
		cfg.Source.BaseURL = v
	}
	if v := os.Getenv("VSTRADER_API_KEY"); v != "" {
		cfg.Source.APIKey = v
	}
	if v := os.Getenv("WARM_SYMBOLS"); v != "" {
		cfg.Warm.Symbols = splitList(v)
	}
	if v := os.Getenv("WARM_CRON"); v != "" {
		cfg.Warm.Cron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	// Defaults
	if cfg.Cache.RootDir == "" {
		cfg.Cache.RootDir = "data/cache"
	}
	if cfg.Cache.MaxAgeHours == 0 {
		cfg.Cache.MaxAgeHours = 24
	}
	if cfg.Source.Name == "" {
		cfg.Source.Name = "yahoo"
	}
	if cfg.Cache.Namespace == "" {
		cfg.Cache.Namespace = cfg.Source.Name
	}
	if cfg.Source.TimeoutSeconds == 0 {
		cfg.Source.TimeoutSeconds = 30
	}
	if cfg.Source.RequestsPerSec == 0 {
		cfg.Source.RequestsPerSec = 5
	}
	if cfg.Warm.Cron == "" {
		cfg.Warm.Cron = "0 15 * * * *" // hourly, 15s past the minute
	}
	if len(cfg.Warm.Intervals) == 0 {
		cfg.Warm.Intervals = []string{"1d"}
	}
	if cfg.Warm.LookbackDays == 0 {
		cfg.Warm.LookbackDays = 30
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Cache.RootDir == "" {
		return fmt.Errorf("cache.root_dir is required")
	}
	if c.Cache.MaxAgeHours < 0 {
		return fmt.Errorf("cache.max_age_hours must not be negative")
	}
	switch c.Source.Name {
	case "yahoo":
	case "vstrader":
		if c.Source.BaseURL == "" {
			return fmt.Errorf("source.base_url is required for vstrader")
		}
	default:
		return fmt.Errorf("unknown source %q", c.Source.Name)
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
