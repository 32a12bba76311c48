package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"tasnim.dev/aws-sweep/internal/retry"
)

// EnvPath overrides the config file location.
const EnvPath = "AWS_SWEEP_CONFIG"

const defaultFetchTimeout = 30 * time.Second

// Config holds optional defaults loaded from ~/.config/aws-sweep/config.yaml.
type Config struct {
	DefaultProfile    string `yaml:"default_profile"`
	DefaultRegion     string `yaml:"default_region"`
	LogLevel          string `yaml:"log_level"`
	DescriptionFilter string `yaml:"description_filter"`

	Poll  PollConfig  `yaml:"poll"`
	Fetch FetchConfig `yaml:"fetch"`
}

// PollConfig bounds every wait for a deleted resource to disappear. Zero
// fields fall back to retry.DefaultConfig.
type PollConfig struct {
	MaxRetries     int     `yaml:"max_retries"`
	InitialDelayMS int     `yaml:"initial_delay_ms"`
	MaxDelayMS     int     `yaml:"max_delay_ms"`
	Multiplier     float64 `yaml:"multiplier"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

type FetchConfig struct {
	TimeoutSeconds     int  `yaml:"timeout_seconds"`
	Concurrency        int  `yaml:"concurrency"`
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Path returns the config file location.
func Path() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "aws-sweep", "config.yaml"), nil
}

// Load reads the config file. Returns zero-value Config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return &Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Merge applies CLI flag overrides. Flags take precedence over config defaults.
func (c *Config) Merge(profile, region string) (string, string) {
	p := c.DefaultProfile
	if profile != "" {
		p = profile
	}
	r := c.DefaultRegion
	if region != "" {
		r = region
	}
	return p, r
}

// RetryConfig converts the poll section into a retry policy.
func (c *Config) RetryConfig() retry.Config {
	var opts []retry.Option
	if c.Poll.MaxRetries > 0 {
		opts = append(opts, retry.WithMaxRetries(c.Poll.MaxRetries))
	}
	if c.Poll.InitialDelayMS > 0 {
		opts = append(opts, retry.WithInitialDelay(time.Duration(c.Poll.InitialDelayMS)*time.Millisecond))
	}
	if c.Poll.MaxDelayMS > 0 {
		opts = append(opts, retry.WithMaxDelay(time.Duration(c.Poll.MaxDelayMS)*time.Millisecond))
	}
	if c.Poll.Multiplier >= 1 {
		opts = append(opts, retry.WithMultiplier(c.Poll.Multiplier))
	}
	if c.Poll.TimeoutSeconds > 0 {
		opts = append(opts, retry.WithTimeout(time.Duration(c.Poll.TimeoutSeconds)*time.Second))
	}
	return retry.DefaultConfig().Apply(opts...)
}

// FetchTimeout is the per-request timeout for fetch batches.
func (c *Config) FetchTimeout() time.Duration {
	if c.Fetch.TimeoutSeconds <= 0 {
		return defaultFetchTimeout
	}
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}
