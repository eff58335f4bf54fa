// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the home directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, env := range []string{
		"TREESHELL_TREE", "TREESHELL_PROMPT", "TREESHELL_WELCOME", "TREESHELL_HISTORY_FILE",
		"TREESHELL_ADDR", "TREESHELL_AUTH_TOKEN", "TREESHELL_LOG_LEVEL", "TREESHELL_LOG_FORMAT",
	} {
		t.Setenv(env, "")
	}
	return home
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// =============================================================================
// DEFAULT TESTS
// =============================================================================

func TestConfig_Default(t *testing.T) {
	home := isolate(t)
	cfg := Default()

	assert.Equal(t, "shell:%s> ", cfg.Shell.Prompt)
	assert.Equal(t, "auto", cfg.Shell.Color)
	assert.Equal(t, filepath.Join(home, ".treeshell", "history"), cfg.Shell.HistoryFile)
	assert.Equal(t, filepath.Join(home, ".treeshell", "transcripts.db"), cfg.Server.TranscriptDB)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionTimeout())
	assert.Empty(t, cfg.Tree.File)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Shell, cfg.Shell)
}

func TestLoad_DefaultPath(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, ".treeshell", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte("[shell]\nwelcome = \"hi\"\n"), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "hi", cfg.Shell.Welcome)
}

func TestLoadFromPath(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
[shell]
prompt = "%s $ "
welcome = "Hello"

[tree]
file = "site.json"
watch = true

[server]
addr = ":9000"
cors_origins = ["https://example.com"]

[log]
level = "debug"
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "%s $ ", cfg.Shell.Prompt)
	assert.Equal(t, "Hello", cfg.Shell.Welcome)
	assert.Equal(t, "site.json", cfg.Tree.File)
	assert.True(t, cfg.Tree.Watch)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)

	// unset values are filled in
	assert.Equal(t, 1800, cfg.Server.SessionTimeoutSecs)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "auto", cfg.Shell.Color)
}

func TestLoadFromPath_Errors(t *testing.T) {
	isolate(t)

	_, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadFromPath(writeConfig(t, "[shell\n"))
	assert.Error(t, err)

	_, err = LoadFromPath(writeConfig(t, "[shell]\nprompt_template = \"x\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shell.prompt_template")

	_, err = LoadFromPath(writeConfig(t, "[log]\nlevel = \"loud\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("TREESHELL_TREE", "/srv/tree.toml")
	t.Setenv("TREESHELL_WELCOME", "from env")
	t.Setenv("TREESHELL_ADDR", ":7000")
	t.Setenv("TREESHELL_AUTH_TOKEN", "secret")
	t.Setenv("TREESHELL_LOG_FORMAT", "json")

	cfg, err := LoadFromPath(writeConfig(t, "[shell]\nwelcome = \"from file\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "/srv/tree.toml", cfg.Tree.File)
	assert.Equal(t, "from env", cfg.Shell.Welcome)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "secret", cfg.Server.AuthToken)
	assert.Equal(t, "json", cfg.Log.Format)
}

// =============================================================================
// SAVE TESTS
// =============================================================================

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.Shell.Welcome = "saved"
	cfg.Server.CORSOrigins = []string{"*"}

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, SaveTOML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# treeshell configuration file")

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"prompt without verb", func(c *Config) { c.Shell.Prompt = "shell> " }, "shell.prompt"},
		{"prompt with extra verb", func(c *Config) { c.Shell.Prompt = "%d %s" }, "shell.prompt"},
		{"negative history", func(c *Config) { c.Shell.HistoryLimit = -1 }, "shell.history_limit"},
		{"bad color", func(c *Config) { c.Shell.Color = "rainbow" }, "shell.color"},
		{"watch without file", func(c *Config) { c.Tree.Watch = true }, "tree.watch"},
		{"bad tree extension", func(c *Config) { c.Tree.File = "tree.yaml" }, "tree.file"},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"negative timeout", func(c *Config) { c.Server.SessionTimeoutSecs = -5 }, "server.session_timeout_secs"},
		{"negative sessions", func(c *Config) { c.Server.MaxSessions = -1 }, "server.max_sessions"},
		{"negative rate", func(c *Config) { c.Server.RateLimit = -1 }, "server.rate_limit"},
		{"zero burst", func(c *Config) { c.Server.RateBurst = 0 }, "server.rate_burst"},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "x"
	cfg.Log.Format = "y"

	var verrs ValidateErrors
	require.True(t, errors.As(cfg.Validate(), &verrs))
	assert.Len(t, verrs, 2)
	assert.Contains(t, verrs.Error(), "; ")
}

// =============================================================================
// GET/SET TESTS
// =============================================================================

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("server.addr")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", v)

	require.NoError(t, cfg.Set("server.addr", ":9999"))
	assert.Equal(t, ":9999", cfg.Server.Addr)

	require.NoError(t, cfg.Set("server.session_timeout_secs", "60"))
	assert.Equal(t, 60, cfg.Server.SessionTimeoutSecs)

	require.NoError(t, cfg.Set("server.rate_limit", "2.5"))
	assert.Equal(t, 2.5, cfg.Server.RateLimit)

	require.NoError(t, cfg.Set("tree.watch", "true"))
	assert.True(t, cfg.Tree.Watch)

	require.NoError(t, cfg.Set("server.cors_origins", "https://a.example, https://b.example"))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)

	require.NoError(t, cfg.Set("shell.history_limit", 50))
	assert.Equal(t, 50, cfg.Shell.HistoryLimit)

	assert.Error(t, cfg.Set("server.session_timeout_secs", "soon"))
	assert.Error(t, cfg.Set("tree.watch", "maybe"))
	assert.Error(t, cfg.Set("nope.key", "x"))
	assert.Error(t, cfg.Set("server.addr.port", "x"))
	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestGetAllKeys(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}

func TestConfig_CloneAndString(t *testing.T) {
	cfg := Default()
	cfg.Server.AuthToken = "hunter2"
	cfg.Server.CORSOrigins = []string{"a"}

	clone := cfg.Clone()
	clone.Server.CORSOrigins[0] = "b"
	assert.Equal(t, "a", cfg.Server.CORSOrigins[0])

	s := cfg.String()
	assert.NotContains(t, s, "hunter2")
	assert.Contains(t, s, "[REDACTED]")
	assert.Equal(t, "hunter2", cfg.Server.AuthToken)
}
