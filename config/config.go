// Package config handles moisson configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Surface SurfaceConfig `yaml:"surface"`
	Harvest HarvestConfig `yaml:"harvest"`
	Store   StoreConfig   `yaml:"store"`
	Feeds   FeedsConfig   `yaml:"feeds"`
	Server  ServerConfig  `yaml:"server"`
}

// SurfaceConfig controls the browser and the chat surface.
type SurfaceConfig struct {
	URL             string        `yaml:"url"`
	ProfileDir      string        `yaml:"profile_dir"`
	Headless        *bool         `yaml:"headless"`
	Proxy           string        `yaml:"proxy"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`
	LoginGrace      time.Duration `yaml:"login_grace"`
}

// HarvestConfig controls acquisition.
type HarvestConfig struct {
	PromptTemplate  string        `yaml:"prompt_template"`
	MinAcceptChars  int           `yaml:"min_accept_chars"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	StabilizeWindow time.Duration `yaml:"stabilize_window"`
	Rereads         int           `yaml:"rereads"`
	RereadInterval  time.Duration `yaml:"reread_interval"`
	RereadStable    int           `yaml:"reread_stable"`
	DirectTimeout   time.Duration `yaml:"direct_timeout"`
	CopyTimeout     time.Duration `yaml:"copy_timeout"`
	ScrapeTimeout   time.Duration `yaml:"scrape_timeout"`
	SelectorMemory  string        `yaml:"selector_memory"`
}

// StoreConfig controls profile persistence.
type StoreConfig struct {
	Path        string `yaml:"path"`
	SourceLabel string `yaml:"source_label"`
}

// FeedsConfig lists the market data feed mirrors.
type FeedsConfig struct {
	BaseURLs []string      `yaml:"base_urls"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Listen string `yaml:"listen"`
	// AdminUser and AdminPassHash (bcrypt) protect mutating endpoints.
	// Empty hash disables auth.
	AdminUser     string `yaml:"admin_user"`
	AdminPassHash string `yaml:"admin_pass_hash"`
	// MaxConcurrent bounds simultaneous harvests across all tickers.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills unset fields. Acquisition thresholds default to
// zero here on purpose; the harvest package owns those defaults.
func (c *Config) ApplyDefaults() {
	if c.Surface.URL == "" {
		c.Surface.URL = "https://gemini.google.com/app"
	}
	if c.Surface.ProfileDir == "" {
		c.Surface.ProfileDir = "data/profiles"
	}
	if c.Surface.Headless == nil {
		t := true
		c.Surface.Headless = &t
	}
	if c.Harvest.SelectorMemory == "" {
		c.Harvest.SelectorMemory = "data/selectors.json"
	}
	if c.Store.Path == "" {
		c.Store.Path = "data/moisson.db"
	}
	if c.Store.SourceLabel == "" {
		c.Store.SourceLabel = "chat"
	}
	if c.Feeds.Timeout <= 0 {
		c.Feeds.Timeout = 10 * time.Second
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8600"
	}
	if c.Server.MaxConcurrent <= 0 {
		c.Server.MaxConcurrent = 2
	}
}
