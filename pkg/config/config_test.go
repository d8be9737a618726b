package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "active", cfg.Collection.Mode)
	assert.Equal(t, 2*time.Second, cfg.Collection.Delay)
	assert.Equal(t, 0.25, cfg.Collection.Jitter)
	assert.Equal(t, 3, cfg.Collection.ErrorCeiling)
	assert.Equal(t, 20*time.Second, cfg.Collection.RateLimitBase)
	assert.Equal(t, 15*time.Second, cfg.Collection.RateLimitStep)
	assert.Equal(t, 10*time.Second, cfg.Notifications.WebhookTimeout)
	assert.Equal(t, "https://i.instagram.com/api/v1", cfg.Instagram.BaseURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IGFOLLOWERS_TOKEN", "abc123")
	t.Setenv("IGFOLLOWERS_USER_ID", "1234567")
	t.Setenv("IGFOLLOWERS_MAX_FOLLOWERS", "250")
	t.Setenv("IGFOLLOWERS_DELAY", "3s")
	t.Setenv("IGFOLLOWERS_JITTER", "0.3")
	t.Setenv("IGFOLLOWERS_CHECKPOINT_ENABLED", "false")
	t.Setenv("IGFOLLOWERS_WEBHOOK_URL", "https://hooks.example.com/x")
	t.Setenv("IGFOLLOWERS_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "abc123", cfg.Instagram.Token)
	assert.Equal(t, "1234567", cfg.Collection.UserID)
	assert.Equal(t, 250, cfg.Collection.MaxFollowers)
	assert.Equal(t, 3*time.Second, cfg.Collection.Delay)
	assert.Equal(t, 0.3, cfg.Collection.Jitter)
	assert.False(t, cfg.Checkpoint.Enabled)
	assert.Equal(t, "https://hooks.example.com/x", cfg.Notifications.WebhookURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("IGFOLLOWERS_MAX_FOLLOWERS", "lots")
	t.Setenv("IGFOLLOWERS_DELAY", "soon")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IGFOLLOWERS_MAX_FOLLOWERS")
	assert.Contains(t, err.Error(), "IGFOLLOWERS_DELAY")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"bad mode", func(c *Config) { c.Collection.Mode = "crawl" }, "invalid collection mode"},
		{"jitter too large", func(c *Config) { c.Collection.Jitter = 1 }, "jitter"},
		{"negative jitter", func(c *Config) { c.Collection.Jitter = -0.1 }, "jitter"},
		{"zero error ceiling", func(c *Config) { c.Collection.ErrorCeiling = 0 }, "error ceiling"},
		{"negative max", func(c *Config) { c.Collection.MaxFollowers = -1 }, "max followers"},
		{"transient range inverted", func(c *Config) { c.Collection.TransientMin = time.Minute }, "transient"},
		{"bad format", func(c *Config) { c.Output.Format = "csv" }, "output format"},
		{"bad backend", func(c *Config) { c.Checkpoint.Backend = "s3" }, "checkpoint backend"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "log level"},
		{"zero rpm", func(c *Config) { c.RateLimit.RequestsPerMinute = 0 }, "requests per minute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Collection.Mode = "x"
	cfg.Output.Format = "y"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid collection mode")
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"user-id":       "42",
		"max":           10,
		"delay":         500 * time.Millisecond,
		"mode":          "passive",
		"no-checkpoint": true,
		"headless":      false,
		"output":        "/tmp/out",
	})

	assert.Equal(t, "42", cfg.Collection.UserID)
	assert.Equal(t, 10, cfg.Collection.MaxFollowers)
	assert.Equal(t, 500*time.Millisecond, cfg.Collection.Delay)
	assert.Equal(t, "passive", cfg.Collection.Mode)
	assert.False(t, cfg.Checkpoint.Enabled)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "/tmp/out", cfg.Output.Directory)
}

func TestMergeCommandLineFlagsIgnoresEmptyStrings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Collection.UserID = "42"
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"user-id": "",
		"mode":    "",
	})

	assert.Equal(t, "42", cfg.Collection.UserID)
	assert.Equal(t, "active", cfg.Collection.Mode)
}

func TestLoadExplicitZeroFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
collection:
  user_id: "555"
  max_followers: 100
  delay: 3s
  idle_ceiling: 4
  timeout: 10m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("HOME", dir)

	cfg, err := Load(path, map[string]interface{}{
		"max":     0,
		"delay":   time.Duration(0),
		"idle":    0,
		"timeout": time.Duration(0),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Collection.MaxFollowers)
	assert.Equal(t, time.Duration(0), cfg.Collection.Delay)
	assert.Equal(t, 0, cfg.Collection.IdleCeiling)
	assert.Equal(t, time.Duration(0), cfg.Collection.Timeout)
}

func TestLoadRejectsZeroWorkersFlag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collection:\n  user_id: \"555\"\n"), 0600))
	t.Setenv("HOME", dir)

	_, err := Load(path, map[string]interface{}{"workers": 0})
	assert.Error(t, err)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Collection.UserID = "987"
	cfg.Collection.Delay = 4 * time.Second
	cfg.Checkpoint.Backend = "redis"
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "987", loaded.Collection.UserID)
	assert.Equal(t, 4*time.Second, loaded.Collection.Delay)
	assert.Equal(t, "redis", loaded.Checkpoint.Backend)
}

func TestLoadFromFileDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
collection:
  user_id: "555"
  delay: 1500ms
  rate_limit_base: 30s
  idle_ceiling: 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))
	assert.Equal(t, 1500*time.Millisecond, cfg.Collection.Delay)
	assert.Equal(t, 30*time.Second, cfg.Collection.RateLimitBase)
	assert.Equal(t, 8, cfg.Collection.IdleCeiling)
	// untouched keys keep their defaults
	assert.Equal(t, 15*time.Second, cfg.Collection.RateLimitStep)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collection:\n  user_id: \"file\"\n  max_followers: 5\n"), 0600))

	t.Setenv("HOME", dir)
	t.Setenv("IGFOLLOWERS_USER_ID", "env")

	cfg, err := Load(path, map[string]interface{}{"max": 7})
	require.NoError(t, err)
	assert.Equal(t, "env", cfg.Collection.UserID)
	assert.Equal(t, 7, cfg.Collection.MaxFollowers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}
