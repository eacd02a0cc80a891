package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, "ctrl+space", c.Toggle().String())
	assert.Equal(t, 250*time.Millisecond, c.Debounce())
	assert.Equal(t, 2*time.Second, c.ReconnectDelay())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, found, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, DefaultConfig(), c)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
hotkeys:
  toggle: ctrl+alt+q
profiles:
  dir: quirks
  default: Kankri
output:
  markdown_fence: true
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, found, err := Load(path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ctrl+alt+q", c.Toggle().String())
	assert.Equal(t, "quirks", c.Profiles.Dir)
	assert.Equal(t, "Kankri", c.Profiles.Default)
	assert.True(t, c.Output.MarkdownFence)
	assert.Equal(t, "debug", c.Logging.Level)
	// untouched sections keep their defaults
	assert.Equal(t, "enter", c.Hotkeys.Commit)
	assert.True(t, c.Profiles.Watch)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"empty toggle", func(c *Config) { c.Hotkeys.Toggle = "" }, "Toggle"},
		{"bad toggle", func(c *Config) { c.Hotkeys.Toggle = "q+space" }, "hotkeys.toggle"},
		{"commit combo", func(c *Config) { c.Hotkeys.Commit = "ctrl+enter" }, "single key"},
		{"commit equals cancel", func(c *Config) { c.Hotkeys.Cancel = "enter" }, "both"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "Level"},
		{"retry attempts", func(c *Config) { c.Advanced.RetryAttempts = 0 }, "RetryAttempts"},
		{"negative debounce", func(c *Config) { c.Profiles.DebounceMS = -1 }, "DebounceMS"},
		{"no profile dir", func(c *Config) { c.Profiles.Dir = "" }, "Dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("hotkeys: [oops"), 0o644))
	_, found, err := Load(bad)
	require.Error(t, err)
	assert.True(t, found)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("advanced:\n  retry_attempts: 0\n"), 0o644))
	_, _, err = Load(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
