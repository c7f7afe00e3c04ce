package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the process. Secrets are overridable via
// environment variables after the file is loaded.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Engine struct {
		Symbol    string `yaml:"symbol"`
		InboxSize int    `yaml:"inbox_size"`
	} `yaml:"engine"`

	Gateway struct {
		ListenAddr     string `yaml:"listen_addr"`
		AuthToken      string `yaml:"auth_token"`
		CORSOrigin     string `yaml:"cors_origin"`
		ReadTimeoutSec int    `yaml:"read_timeout_sec"`
	} `yaml:"gateway"`

	Storage struct {
		// Path of the sqlite journal; empty selects the per-user default.
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Engine.Symbol == "" {
		return fmt.Errorf("engine symbol is required")
	}
	if c.Engine.InboxSize <= 0 {
		return fmt.Errorf("engine inbox size must be positive")
	}
	if c.Gateway.ListenAddr == "" {
		return fmt.Errorf("gateway listen address is required")
	}
	if c.Gateway.ReadTimeoutSec < 0 {
		return fmt.Errorf("gateway read timeout cannot be negative")
	}
	return nil
}

// overrideWithEnv applies environment variables over file values so
// secrets never need to live in the config file.
func overrideWithEnv(cfg *Config) {
	if token := os.Getenv("MATCH_GATEWAY_TOKEN"); token != "" {
		cfg.Gateway.AuthToken = token
	}
	if path := os.Getenv("MATCH_JOURNAL_PATH"); path != "" {
		cfg.Storage.Path = path
	}
}
