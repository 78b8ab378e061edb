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
	c := DefaultConfig()

	assert.Equal(t, "mdreaderd", c.General.AppName)
	assert.Equal(t, "info", c.General.LogLevel)
	assert.Equal(t, "127.0.0.1", c.HTTP.Address)
	assert.Equal(t, []string{"md", "markdown"}, c.Workspace.DocumentExtensions)
	assert.Equal(t, 300*time.Millisecond, c.Workspace.WatchDebounce)
	assert.True(t, c.Security.EnableAuthentication)
	assert.Empty(t, c.HTTP.JWT.Secret)
	assert.NoError(t, validateConfig(c))
}

func TestLoadConfig(t *testing.T) {
	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
general:
  logLevel: debug
http:
  port: 9001
workspace:
  documentExtensions: ["md", "txt"]
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		c, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "debug", c.General.LogLevel)
		assert.Equal(t, 9001, c.HTTP.Port)
		assert.Equal(t, []string{"md", "txt"}, c.Workspace.DocumentExtensions)
		// untouched defaults survive
		assert.Equal(t, "127.0.0.1", c.HTTP.Address)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid log level rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("general:\n  logLevel: loud\n"), 0644))

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("relative default location resolves against the config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("workspace:\n  defaultLocation: notes\n"), 0644))

		c, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "notes"), c.Workspace.DefaultLocation)
	})
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	c := DefaultConfig()
	c.HTTP.Port = 9100
	require.NoError(t, SaveConfig(c, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, loaded.HTTP.Port)
}

func TestValidateConfig(t *testing.T) {
	t.Run("rejects bad port", func(t *testing.T) {
		c := DefaultConfig()
		c.HTTP.Port = 0
		assert.Error(t, validateConfig(c))
	})

	t.Run("rejects empty extension list", func(t *testing.T) {
		c := DefaultConfig()
		c.Workspace.DocumentExtensions = nil
		assert.Error(t, validateConfig(c))
	})

	t.Run("rejects extensions with separators", func(t *testing.T) {
		c := DefaultConfig()
		c.Workspace.DocumentExtensions = []string{"../md"}
		assert.Error(t, validateConfig(c))
	})

	t.Run("rejects non-positive token expiration", func(t *testing.T) {
		c := DefaultConfig()
		c.HTTP.JWT.ExpirationMinutes = 0
		assert.Error(t, validateConfig(c))
	})
}

func TestToPublic(t *testing.T) {
	c := DefaultConfig()
	c.HTTP.JWT.Secret = "super-secret"

	p := c.ToPublic()
	assert.Equal(t, c.General.AppName, p.General.AppName)
	assert.Equal(t, c.HTTP.Port, p.HTTP.Port)
	assert.Equal(t, c.HTTP.JWT.ExpirationMinutes, p.HTTP.JWT.ExpirationMinutes)
	assert.Equal(t, c.Workspace.DocumentExtensions, p.Workspace.DocumentExtensions)
}
