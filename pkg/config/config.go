package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "IGFOLLOWERS_"

// Config holds all configuration for a collection run
type Config struct {
	Instagram     InstagramConfig     `yaml:"instagram" json:"instagram"`
	Collection    CollectionConfig    `yaml:"collection" json:"collection"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit" json:"rate_limit"`
	Output        OutputConfig        `yaml:"output" json:"output"`
	Checkpoint    CheckpointConfig    `yaml:"checkpoint" json:"checkpoint"`
	Browser       BrowserConfig       `yaml:"browser" json:"browser"`
	Notifications NotificationsConfig `yaml:"notifications" json:"notifications"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
}

// InstagramConfig holds the API endpoint, device headers and credential material
type InstagramConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	AppID          string        `yaml:"app_id" json:"app_id"`
	DeviceID       string        `yaml:"device_id" json:"device_id"`
	Capabilities   string        `yaml:"capabilities" json:"capabilities"`
	AcceptLanguage string        `yaml:"accept_language" json:"accept_language"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`

	// Credential material. Usually supplied through the credential store or env.
	Token          string `yaml:"token,omitempty" json:"-"`
	CookieMID      string `yaml:"cookie_x_mid,omitempty" json:"-"`
	CookieDSUserID string `yaml:"cookie_ds_user_id,omitempty" json:"-"`
	CookieRur      string `yaml:"cookie_rur,omitempty" json:"-"`
	Account        string `yaml:"account,omitempty" json:"account,omitempty"`
}

// CollectionConfig controls pagination, backoff and stop conditions
type CollectionConfig struct {
	UserID       string  `yaml:"user_id" json:"user_id"`
	Mode         string  `yaml:"mode" json:"mode"` // active or passive
	MaxFollowers int     `yaml:"max_followers" json:"max_followers"`
	Workers      int     `yaml:"workers" json:"workers"`
	Jitter       float64 `yaml:"jitter" json:"jitter"`

	Delay            time.Duration `yaml:"delay" json:"delay"`
	IdleCeiling      int           `yaml:"idle_ceiling" json:"idle_ceiling"`
	ErrorCeiling     int           `yaml:"error_ceiling" json:"error_ceiling"`
	RateLimitBase    time.Duration `yaml:"rate_limit_base" json:"rate_limit_base"`
	RateLimitStep    time.Duration `yaml:"rate_limit_step" json:"rate_limit_step"`
	RateLimitMax     time.Duration `yaml:"rate_limit_max" json:"rate_limit_max"`
	RateLimitCeiling int           `yaml:"rate_limit_ceiling" json:"rate_limit_ceiling"`
	TransientMin     time.Duration `yaml:"transient_min" json:"transient_min"`
	TransientMax     time.Duration `yaml:"transient_max" json:"transient_max"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig paces outgoing requests independently of the backoff policy
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// OutputConfig selects where results end up
type OutputConfig struct {
	Directory   string `yaml:"directory" json:"directory"`
	Format      string `yaml:"format" json:"format"` // json or jsonl
	PostgresDSN string `yaml:"postgres_dsn,omitempty" json:"-"`
	Schema      string `yaml:"schema" json:"schema"`
	BatchSize   int    `yaml:"batch_size" json:"batch_size"`
}

// CheckpointConfig controls resumable runs
type CheckpointConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Backend   string        `yaml:"backend" json:"backend"` // file or redis
	RedisAddr string        `yaml:"redis_addr" json:"redis_addr"`
	RedisDB   int           `yaml:"redis_db" json:"redis_db"`
	TTL       time.Duration `yaml:"ttl" json:"ttl"`
}

// BrowserConfig configures the passive collection transport
type BrowserConfig struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	ProfileURL     string        `yaml:"profile_url" json:"profile_url"`
	UserDataDir    string        `yaml:"user_data_dir" json:"user_data_dir"`
	ScrollInterval time.Duration `yaml:"scroll_interval" json:"scroll_interval"`
	MaxScrolls     int           `yaml:"max_scrolls" json:"max_scrolls"`
	EventBuffer    int           `yaml:"event_buffer" json:"event_buffer"`
}

// NotificationsConfig holds desktop and webhook notification settings
type NotificationsConfig struct {
	Enabled        bool          `yaml:"enabled" json:"enabled"`
	Desktop        bool          `yaml:"desktop" json:"desktop"`
	WebhookURL     string        `yaml:"webhook_url" json:"webhook_url"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout" json:"webhook_timeout"`
}

// MetricsConfig holds the Prometheus listener address. Empty disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	File   string `yaml:"file" json:"file"`
	Format string `yaml:"format" json:"format"` // console or json
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			BaseURL:        "https://i.instagram.com/api/v1",
			UserAgent:      "Instagram 330.0.0.40.92 Android (34/14; 420dpi; 1080x2400; Google/google; sdk_gphone64_arm64; emu64a; ranchu; en_US; 598323397)",
			AppID:          "567067343352427",
			DeviceID:       "android-1234567890abcdef",
			Capabilities:   "3brTvx0=",
			AcceptLanguage: "en-US,en;q=0.9",
			Timeout:        30 * time.Second,
		},
		Collection: CollectionConfig{
			Mode:             "active",
			Workers:          1,
			Delay:            2 * time.Second,
			Jitter:           0.25,
			IdleCeiling:      5,
			ErrorCeiling:     3,
			RateLimitBase:    20 * time.Second,
			RateLimitStep:    15 * time.Second,
			RateLimitMax:     5 * time.Minute,
			RateLimitCeiling: 8,
			TransientMin:     5 * time.Second,
			TransientMax:     10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			BurstSize:         1,
		},
		Output: OutputConfig{
			Directory: "./followers",
			Format:    "json",
			Schema:    "public",
			BatchSize: 200,
		},
		Checkpoint: CheckpointConfig{
			Enabled:   true,
			Backend:   "file",
			RedisAddr: "localhost:6379",
			TTL:       72 * time.Hour,
		},
		Browser: BrowserConfig{
			Headless:       true,
			ScrollInterval: 1500 * time.Millisecond,
			MaxScrolls:     500,
			EventBuffer:    64,
		},
		Notifications: NotificationsConfig{
			Enabled:        true,
			Desktop:        false,
			WebhookTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv loads configuration from IGFOLLOWERS_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	envString("TOKEN", &c.Instagram.Token)
	envString("COOKIE_X_MID", &c.Instagram.CookieMID)
	envString("COOKIE_DS_USER_ID", &c.Instagram.CookieDSUserID)
	envString("COOKIE_RUR", &c.Instagram.CookieRur)
	envString("ACCOUNT", &c.Instagram.Account)
	envString("USER_AGENT", &c.Instagram.UserAgent)
	envString("BASE_URL", &c.Instagram.BaseURL)

	envString("USER_ID", &c.Collection.UserID)
	envString("MODE", &c.Collection.Mode)
	errs = append(errs,
		envInt("MAX_FOLLOWERS", &c.Collection.MaxFollowers),
		envDuration("DELAY", &c.Collection.Delay),
		envFloat("JITTER", &c.Collection.Jitter),
		envInt("IDLE_CEILING", &c.Collection.IdleCeiling),
		envDuration("TIMEOUT", &c.Collection.Timeout),
		envInt("REQUESTS_PER_MINUTE", &c.RateLimit.RequestsPerMinute),
		envBool("CHECKPOINT_ENABLED", &c.Checkpoint.Enabled),
		envBool("NOTIFICATIONS_ENABLED", &c.Notifications.Enabled),
	)

	envString("OUTPUT_DIR", &c.Output.Directory)
	envString("POSTGRES_DSN", &c.Output.PostgresDSN)
	envString("CHECKPOINT_BACKEND", &c.Checkpoint.Backend)
	envString("REDIS_ADDR", &c.Checkpoint.RedisAddr)
	envString("WEBHOOK_URL", &c.Notifications.WebhookURL)
	envString("METRICS_ADDR", &c.Metrics.Addr)
	envString("LOG_LEVEL", &c.Logging.Level)

	return errors.Join(errs...)
}

func envString(key string, dst *string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = f
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = d
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = b
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// DefaultConfigPath is where `config init` writes by default
func DefaultConfigPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "igfollowers", "config.yaml")
}

func findConfigFile() string {
	locations := []string{
		".igfollowers.yaml",
		".igfollowers.yml",
		DefaultConfigPath(),
		filepath.Join(os.Getenv("HOME"), ".igfollowers.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks structural validity. Target and credential checks happen at collect time.
func (c *Config) Validate() error {
	var errs []error

	if c.Instagram.BaseURL == "" {
		errs = append(errs, errors.New("instagram base URL is required"))
	}
	if c.Instagram.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	col := c.Collection
	switch strings.ToLower(col.Mode) {
	case "active", "passive":
	default:
		errs = append(errs, fmt.Errorf("invalid collection mode %q", col.Mode))
	}
	if col.MaxFollowers < 0 {
		errs = append(errs, errors.New("max followers cannot be negative"))
	}
	if col.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}
	if col.Delay < 0 {
		errs = append(errs, errors.New("delay cannot be negative"))
	}
	if col.Jitter < 0 || col.Jitter >= 1 {
		errs = append(errs, errors.New("jitter must be in [0, 1)"))
	}
	if col.IdleCeiling < 0 {
		errs = append(errs, errors.New("idle ceiling cannot be negative"))
	}
	if col.ErrorCeiling <= 0 {
		errs = append(errs, errors.New("error ceiling must be positive"))
	}
	if col.RateLimitCeiling <= 0 {
		errs = append(errs, errors.New("rate limit ceiling must be positive"))
	}
	if col.TransientMin > col.TransientMax {
		errs = append(errs, errors.New("transient min wait exceeds max wait"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	switch c.Output.Format {
	case "json", "jsonl":
	default:
		errs = append(errs, fmt.Errorf("invalid output format %q", c.Output.Format))
	}

	switch c.Checkpoint.Backend {
	case "file", "redis":
	default:
		errs = append(errs, fmt.Errorf("invalid checkpoint backend %q", c.Checkpoint.Backend))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags explicitly set by the user should appear in the map; numeric
// flags apply even when zero and are range checked by Validate.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["user-id"].(string); ok && v != "" {
		c.Collection.UserID = v
	}
	if v, ok := flags["mode"].(string); ok && v != "" {
		c.Collection.Mode = v
	}
	if v, ok := flags["max"].(int); ok {
		c.Collection.MaxFollowers = v
	}
	if v, ok := flags["workers"].(int); ok {
		c.Collection.Workers = v
	}
	if v, ok := flags["delay"].(time.Duration); ok {
		c.Collection.Delay = v
	}
	if v, ok := flags["idle"].(int); ok {
		c.Collection.IdleCeiling = v
	}
	if v, ok := flags["timeout"].(time.Duration); ok {
		c.Collection.Timeout = v
	}
	if v, ok := flags["token"].(string); ok && v != "" {
		c.Instagram.Token = v
	}
	if v, ok := flags["account"].(string); ok && v != "" {
		c.Instagram.Account = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["format"].(string); ok && v != "" {
		c.Output.Format = v
	}
	if v, ok := flags["postgres-dsn"].(string); ok && v != "" {
		c.Output.PostgresDSN = v
	}
	if v, ok := flags["webhook"].(string); ok && v != "" {
		c.Notifications.WebhookURL = v
	}
	if v, ok := flags["metrics-addr"].(string); ok && v != "" {
		c.Metrics.Addr = v
	}
	if v, ok := flags["no-checkpoint"].(bool); ok && v {
		c.Checkpoint.Enabled = false
	}
	if v, ok := flags["checkpoint-backend"].(string); ok && v != "" {
		c.Checkpoint.Backend = v
	}
	if v, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = v
	}
	if v, ok := flags["profile-url"].(string); ok && v != "" {
		c.Browser.ProfileURL = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igfollowers.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
