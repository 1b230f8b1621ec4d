package surgeguard

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries the process configuration. Values are resolved from a JSON
// file, then SURGEGUARD_* environment variables, then defaults.
type Config struct {
	AccessLog     string `json:"access_log"`
	AlertLog      string `json:"alert_log"`
	WindowSize    int    `json:"window_size"`
	BucketSeconds int    `json:"bucket_seconds"`
	Follow        bool   `json:"follow"`
	ListenAddr    string `json:"listen_addr"`
	MetricsAddr   string `json:"metrics_addr"`
	SQLitePath    string `json:"sqlite_path"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	LedgerTTLMins int    `json:"ledger_ttl_minutes"`
}

// LoadConfig reads path (optional) and applies env overrides and defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		err = json.NewDecoder(f).Decode(&cfg)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if cfg.WindowSize < 0 {
		return nil, fmt.Errorf("window_size must be positive, got %d", cfg.WindowSize)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SURGEGUARD_ACCESS_LOG"); v != "" {
		c.AccessLog = v
	}
	if v := os.Getenv("SURGEGUARD_ALERT_LOG"); v != "" {
		c.AlertLog = v
	}
	if v := os.Getenv("SURGEGUARD_WINDOW_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.WindowSize = n
		}
	}
	if v := os.Getenv("SURGEGUARD_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("SURGEGUARD_SQLITE_PATH"); v != "" {
		c.SQLitePath = v
	}
	if v := os.Getenv("SURGEGUARD_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("SURGEGUARD_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
}

func (c *Config) applyDefaults() {
	if c.AlertLog == "" {
		c.AlertLog = "alerts.log"
	}
	if c.WindowSize == 0 {
		c.WindowSize = 10
	}
	if c.BucketSeconds == 0 {
		c.BucketSeconds = 60
	}
	if c.LedgerTTLMins == 0 {
		c.LedgerTTLMins = 30
	}
}

// BucketInterval is the time-unit granularity for the feed labels.
func (c *Config) BucketInterval() time.Duration {
	return time.Duration(c.BucketSeconds) * time.Second
}

// LedgerTTL is how long attack events stay visible on the status API.
func (c *Config) LedgerTTL() time.Duration {
	return time.Duration(c.LedgerTTLMins) * time.Minute
}
