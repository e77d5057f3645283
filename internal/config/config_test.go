package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Contains(t, cfg.Portal.CreateURL, "create-v2")
	assert.Equal(t, ".bookingbot/browser", cfg.Browser.UserDataDir)
	assert.False(t, cfg.Browser.Headless)

	assert.Equal(t, 10*time.Second, cfg.Submit.ReadyTimeout)
	assert.Equal(t, 15*time.Second, cfg.Submit.ConfirmTimeout)
	assert.Equal(t, "Booking created", cfg.Submit.ConfirmText)
	assert.Equal(t, "Metro", cfg.Submit.Annotation)
	assert.Equal(t, "61", cfg.Submit.CountryCode)

	assert.Equal(t, 100*time.Millisecond, cfg.Scheduler.Slice)
	assert.Zero(t, cfg.Scheduler.PacePerMinute)

	assert.Empty(t, cfg.Status.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BOOKINGBOT_LOGGING_LEVEL", "debug")
	t.Setenv("BOOKINGBOT_SUBMIT_CONFIRM_TIMEOUT", "45s")
	t.Setenv("BOOKINGBOT_SCHEDULER_SLICE", "250ms")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 45*time.Second, cfg.Submit.ConfirmTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Scheduler.Slice)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookingbot.yaml")
	content := `
portal:
  create_url: https://example.test/create
submit:
  annotation: Depot
  ready_timeout: 2s
scheduler:
  pace_per_minute: 6
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/create", cfg.Portal.CreateURL)
	assert.Equal(t, "Depot", cfg.Submit.Annotation)
	assert.Equal(t, 2*time.Second, cfg.Submit.ReadyTimeout)
	assert.Equal(t, 6.0, cfg.Scheduler.PacePerMinute)

	// Values not in the file keep defaults.
	assert.Equal(t, 15*time.Second, cfg.Submit.ConfirmTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
