package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notedesk/internal/model"
	"notedesk/internal/store"
)

func writeConfig(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "notedesk.db")
	cfgPath = filepath.Join(dir, "config.yaml")
	yaml := "timezone: UTC\n" +
		"database: " + dbPath + "\n" +
		"ics_cache_dir: " + filepath.Join(dir, "cache") + "\n" +
		"logging:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o600))
	return cfgPath, dbPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLayoutCommand(t *testing.T) {
	cfgPath, dbPath := writeConfig(t)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	ctx := context.Background()
	cal, err := st.AddCalendar(ctx, model.Calendar{UserID: "local", Name: "Work", ICalURL: "https://example.com/w.ics"})
	require.NoError(t, err)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) int64 { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute).UnixMilli() }
	require.NoError(t, st.ReplaceEvents(ctx, cal.ID, []model.Event{
		{UID: "1", Title: "Design review", StartTime: at(9, 0), EndTime: at(10, 0)},
		{UID: "2", Title: "Overlap", StartTime: at(9, 30), EndTime: at(10, 30)},
		{UID: "3", Title: "Later", StartTime: at(11, 0), EndTime: at(12, 0)},
		{UID: "4", Title: "Holiday", StartTime: at(0, 0), EndTime: at(24, 0), AllDay: true},
	}, 1))
	require.NoError(t, st.Close())

	out, err := run(t, "--config", cfgPath, "layout", "--date", "2026-03-02")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5, out)
	assert.Equal(t, "Mon 2026-03-02", strings.TrimSpace(lines[0]))
	assert.Equal(t, []string{"all-day", "Holiday"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"09:00-10:00", "1/2", "Design", "review"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"09:30-10:30", "2/2", "Overlap"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"11:00-12:00", "1/1", "Later"}, strings.Fields(lines[4]))
}

func TestLayoutCommandRejectsBadDate(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	_, err := run(t, "--config", cfgPath, "layout", "--date", "03/02/2026")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestSyncCommandWithoutCalendars(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	out, err := run(t, "--config", cfgPath, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "synced 0 calendar(s)")
}

func TestFirstRunWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")
	opts := &rootOptions{configPath: path, logLevel: "error"}
	require.NoError(t, opts.load())
	assert.FileExists(t, path)
	assert.Equal(t, "UTC", opts.cfg.Timezone)
}
