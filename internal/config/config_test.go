// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 30, cfg.Server.TimeoutSecs)
	assert.True(t, cfg.UI.Markdown)
}

func TestLoadFromPathTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
version = "1.0.0"

[server]
base_url = "https://chat.example.com/api"
timeout_secs = 15

[ui]
theme = "light"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.com/api", cfg.Server.BaseURL)
	assert.Equal(t, 15, cfg.Server.TimeoutSecs)
	assert.Equal(t, "light", cfg.UI.Theme)
	// Unspecified fields fall back to defaults.
	assert.Equal(t, 600, cfg.Server.StreamDeadlineSecs)
}

func TestLoadFromPathJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"server": {"base_url": "http://10.0.0.5:8080/api"}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8080/api", cfg.Server.BaseURL)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty base url", func(c *Config) { c.Server.BaseURL = "" }, "server.base_url"},
		{"bad scheme", func(c *Config) { c.Server.BaseURL = "ftp://example.com" }, "server.base_url"},
		{"timeout too large", func(c *Config) { c.Server.TimeoutSecs = 9000 }, "server.timeout_secs"},
		{"stream deadline below timeout", func(c *Config) { c.Server.StreamDeadlineSecs = 5 }, "server.stream_deadline_secs"},
		{"unknown theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHATGATE_SERVER_URL", "https://override.example.com/api")
	t.Setenv("CHATGATE_THEME", "auto")
	t.Setenv("CHATGATE_MARKDOWN", "false")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "https://override.example.com/api", cfg.Server.BaseURL)
	assert.Equal(t, "auto", cfg.UI.Theme)
	assert.False(t, cfg.UI.Markdown)
}

func TestSaveAndReloadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Server.BaseURL = "https://saved.example.com/api"
	require.NoError(t, SaveTOML(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "https://saved.example.com/api", loaded.Server.BaseURL)
}
