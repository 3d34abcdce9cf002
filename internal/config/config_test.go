package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Listen, cfg.Listen)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Chat.Model, again.Chat.Model)
	assert.Equal(t, cfg.Mentions, again.Mentions)
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: "0.0.0.0:9000"
week_start: "friday"
mentions:
  next_weekday: "Someday"
  next_time: "9:30"
chat:
  model: "gpt-4o"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, "tuesday", cfg.Mentions.NextWeekday)
	assert.Equal(t, "9:30", cfg.Mentions.NextTime)
	assert.Equal(t, "gpt-4o", cfg.Chat.Model)
	assert.Equal(t, 1000, cfg.Chat.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.Chat.Timeout())
	assert.Equal(t, "OPENAI_API_KEY", cfg.Chat.APIKeyEnv)
	require.NotNil(t, cfg.Chat.Temperature)
	assert.InDelta(t, 0.7, *cfg.Chat.Temperature, 1e-6)
}

func TestLoadKeepsZeroTemperature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chat:\n  temperature: 0\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Chat.Temperature)
	assert.Zero(t, *cfg.Chat.Temperature)

	require.NoError(t, os.WriteFile(path, []byte("chat:\n  temperature: -1\n"), 0o600))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, *cfg.Chat.Temperature, 1e-6)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("NOTEDESK_TEST_KEY", " from-env ")

	c := ChatConfig{APIKeyEnv: "NOTEDESK_TEST_KEY"}
	assert.Equal(t, "from-env", c.ResolveAPIKey())

	c.APIKey = "inline"
	assert.Equal(t, "inline", c.ResolveAPIKey())

	assert.Empty(t, ChatConfig{}.ResolveAPIKey())
}

func TestParseHelpers(t *testing.T) {
	d, ok := ParseWeekday("Tuesday")
	assert.True(t, ok)
	assert.Equal(t, time.Tuesday, d)

	_, ok = ParseWeekday("tue")
	assert.False(t, ok)

	h, m, err := ParseClock("15:00")
	require.NoError(t, err)
	assert.Equal(t, 15, h)
	assert.Equal(t, 0, m)

	_, _, err = ParseClock("3pm")
	assert.Error(t, err)
}

func TestLocationAndWeekday(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Asia/Seoul"
	assert.Equal(t, "Asia/Seoul", cfg.Location().String())

	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.Local, cfg.Location())

	assert.Equal(t, time.Monday, cfg.FirstWeekday())
	cfg.WeekStart = "sunday"
	assert.Equal(t, time.Sunday, cfg.FirstWeekday())
}
