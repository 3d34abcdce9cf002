package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
// The username doubles as the session user id.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// ChatConfig configures the completion endpoint.
type ChatConfig struct {
	// Endpoint is the OpenAI-compatible API base URL. Empty means the
	// public OpenAI endpoint.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// APIKey takes precedence over APIKeyEnv.
	APIKey string `yaml:"api_key" json:"-"`
	// APIKeyEnv names the environment variable holding the key.
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env"`
	Model     string `yaml:"model" json:"model"`
	// Temperature is nil when unset; an explicit 0 is kept.
	Temperature *float32 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens   int      `yaml:"max_tokens" json:"max_tokens"`
	// TimeoutSeconds bounds a single completion call.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// ResolveAPIKey returns APIKey, or the value of the APIKeyEnv variable.
func (c ChatConfig) ResolveAPIKey() string {
	if k := strings.TrimSpace(c.APIKey); k != "" {
		return k
	}
	if c.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(c.APIKeyEnv))
}

// Timeout returns TimeoutSeconds as a duration.
func (c ChatConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MentionConfig controls the fixed "Next <weekday> <time>" suggestion.
type MentionConfig struct {
	// NextWeekday is an English weekday name, e.g. "tuesday".
	NextWeekday string `yaml:"next_weekday" json:"next_weekday"`
	// NextTime is "HH:MM" in 24h form.
	NextTime string `yaml:"next_time" json:"next_time"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for day boundaries and
	// localized strings (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic calendar sync.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Database is the SQLite file path.
	Database string `yaml:"database" json:"database"`

	// ICSCacheDir stores ETag/Last-Modified metadata and bodies per feed.
	ICSCacheDir string `yaml:"ics_cache_dir" json:"ics_cache_dir"`

	// CalendarAccess lets mentions offer upcoming events.
	CalendarAccess bool `yaml:"calendar_access" json:"calendar_access"`

	Mentions MentionConfig `yaml:"mentions" json:"mentions"`
	Chat     ChatConfig    `yaml:"chat" json:"chat"`
	Logging  LoggingConfig `yaml:"logging" json:"logging"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:8080",
		Timezone:       "UTC",
		WeekStart:      "monday",
		RefreshCron:    "*/15 * * * *",
		Database:       "/var/lib/notedesk/notedesk.db",
		ICSCacheDir:    "/var/lib/notedesk/ics-cache",
		CalendarAccess: true,
		Mentions: MentionConfig{
			NextWeekday: "tuesday",
			NextTime:    "15:00",
		},
		Chat: ChatConfig{
			APIKeyEnv:      "OPENAI_API_KEY",
			Model:          "gpt-4o-mini",
			Temperature:    float32Ptr(0.7),
			MaxTokens:      1000,
			TimeoutSeconds: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		BasicAuth: nil,
	}
}

func float32Ptr(v float32) *float32 { return &v }

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = def.WeekStart
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.Database == "" {
		c.Database = def.Database
	}
	if c.ICSCacheDir == "" {
		c.ICSCacheDir = def.ICSCacheDir
	}

	if _, ok := ParseWeekday(c.Mentions.NextWeekday); !ok {
		c.Mentions.NextWeekday = def.Mentions.NextWeekday
	}
	if _, _, err := ParseClock(c.Mentions.NextTime); err != nil {
		c.Mentions.NextTime = def.Mentions.NextTime
	}

	if c.Chat.APIKeyEnv == "" {
		c.Chat.APIKeyEnv = def.Chat.APIKeyEnv
	}
	if c.Chat.Model == "" {
		c.Chat.Model = def.Chat.Model
	}
	if c.Chat.Temperature == nil || *c.Chat.Temperature < 0 {
		c.Chat.Temperature = def.Chat.Temperature
	}
	if c.Chat.MaxTokens <= 0 {
		c.Chat.MaxTokens = def.Chat.MaxTokens
	}
	if c.Chat.TimeoutSeconds <= 0 {
		c.Chat.TimeoutSeconds = def.Chat.TimeoutSeconds
	}

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// FirstWeekday maps WeekStart to a time.Weekday.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// ParseWeekday accepts full English weekday names, case-insensitively.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == s {
			return d, true
		}
	}
	return time.Sunday, false
}

// ParseClock parses "HH:MM" (24h).
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".notedesk-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
