package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"tasnim.dev/aws-sweep/internal/retry"
)

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv(EnvPath, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "", cfg.DefaultProfile)
	assert.Equal(t, "", cfg.DefaultRegion)
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `default_profile: my-profile
default_region: eu-west-1
log_level: debug
description_filter: SageMaker Notebooks Domain
poll:
  max_retries: 5
  initial_delay_ms: 500
  timeout_seconds: 60
fetch:
  timeout_seconds: 10
  concurrency: 4
  insecure_skip_verify: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	t.Setenv(EnvPath, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "my-profile", cfg.DefaultProfile)
	assert.Equal(t, "eu-west-1", cfg.DefaultRegion)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "SageMaker Notebooks Domain", cfg.DescriptionFilter)
	assert.Equal(t, 4, cfg.Fetch.Concurrency)
	assert.True(t, cfg.Fetch.InsecureSkipVerify)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout())

	rc := cfg.RetryConfig()
	assert.Equal(t, 5, rc.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, rc.InitialDelay)
	assert.Equal(t, retry.DefaultConfig().MaxDelay, rc.MaxDelay)
	assert.Equal(t, time.Minute, rc.Timeout)
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poll: [not, a, map]\n"), 0644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte("default_region: us-east-1\n"), &cfg))

	assert.Equal(t, retry.DefaultConfig(), cfg.RetryConfig())
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout())
}

func TestRetryConfig_EveryPollField(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(`poll:
  max_retries: 3
  initial_delay_ms: 100
  max_delay_ms: 2000
  multiplier: 1.5
  timeout_seconds: 30
`), &cfg))

	assert.Equal(t, retry.Config{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   1.5,
		Timeout:      30 * time.Second,
	}, cfg.RetryConfig())

	cfg.Poll.Multiplier = 0.5
	assert.Equal(t, retry.DefaultConfig().Multiplier, cfg.RetryConfig().Multiplier)
}

func TestPath_EnvOverride(t *testing.T) {
	t.Setenv(EnvPath, "/tmp/sweep.yaml")
	p, err := Path()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/sweep.yaml", p)
}

func TestMerge_CLIFlagsTakePrecedence(t *testing.T) {
	cfg := &Config{DefaultProfile: "config-profile", DefaultRegion: "us-east-1"}

	// CLI flags override
	p, r := cfg.Merge("cli-profile", "ap-south-1")
	assert.Equal(t, "cli-profile", p)
	assert.Equal(t, "ap-south-1", r)

	// Empty flags fall back to config
	p, r = cfg.Merge("", "")
	assert.Equal(t, "config-profile", p)
	assert.Equal(t, "us-east-1", r)

	// Partial override
	p, r = cfg.Merge("other", "")
	assert.Equal(t, "other", p)
	assert.Equal(t, "us-east-1", r)
}
