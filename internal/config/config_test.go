// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config dir at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("NINGPROMPT_HOME", dir)
	for _, name := range []string{EnvAPIURL, EnvAPIKey, EnvModel, EnvTemplatesDir, EnvLogLevel, EnvServerToken} {
		t.Setenv(name, "")
	}
	return dir
}

func TestConfig_Default(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "gpt-3.5-turbo", cfg.API.Model)
	assert.Equal(t, "origin", cfg.Generation.ResponseLanguage)
	assert.Equal(t, "markdown", cfg.Generation.OutputFormat)
	assert.Equal(t, "en", cfg.UI.Language)
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.Equal(t, 0.5, cfg.Generation.Temperature)
	assert.Empty(t, cfg.API.URL)
	assert.Empty(t, cfg.API.Key)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad url scheme", func(c *Config) { c.API.URL = "ftp://example.com" }, "api.url"},
		{"url without host", func(c *Config) { c.API.URL = "https://" }, "api.url"},
		{"temperature high", func(c *Config) { c.Generation.Temperature = 1.5 }, "generation.temperature"},
		{"temperature negative", func(c *Config) { c.Generation.Temperature = -0.1 }, "generation.temperature"},
		{"format", func(c *Config) { c.Generation.OutputFormat = "html" }, "generation.output_format"},
		{"response language", func(c *Config) { c.Generation.ResponseLanguage = " " }, "generation.response_language"},
		{"mode with path", func(c *Config) { c.Generation.Mode = "../x" }, "generation.mode"},
		{"ui language", func(c *Config) { c.UI.Language = "fr" }, "ui.language"},
		{"theme", func(c *Config) { c.UI.Theme = "solarized" }, "ui.theme"},
		{"rate", func(c *Config) { c.Server.RateLimit = -1 }, "server.rate_limit"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}

	cfg := Default()
	cfg.Generation.Temperature = 0
	cfg.Generation.ResponseLanguage = "Japanese"
	cfg.API.URL = "http://localhost:1234/v1/chat/completions"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_TOMLRoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.API.URL = "https://api.example.com/v1/chat/completions"
	cfg.API.Key = "sk-secret-value"
	cfg.Generation.Temperature = 0
	cfg.Generation.Stream = false
	require.NoError(t, WriteFile(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.API, loaded.API)
	assert.Equal(t, 0.0, loaded.Generation.Temperature, "an explicit zero must survive a reload")
	assert.False(t, loaded.Generation.Stream)
}

func TestConfig_PartialFileKeepsDefaults(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api]\nmodel = \"gpt-4o\"\n\n[ui]\ntheme = \"\"\n"), 0o600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.API.Model)
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.Equal(t, 0.5, cfg.Generation.Temperature)
	assert.Equal(t, 60, cfg.API.TimeoutSecs)
}

func TestConfig_LegacyJSON(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.json")
	legacy := `{
  "api_url": "https://api.example.com/v1/chat/completions",
  "api_key": "sk-legacy",
  "model": "deepseek-chat",
  "response_language": "zh",
  "output_format": "plain",
  "language": "zh",
  "theme_mode": "light"
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/chat/completions", cfg.API.URL)
	assert.Equal(t, "sk-legacy", cfg.API.Key)
	assert.Equal(t, "deepseek-chat", cfg.API.Model)
	assert.Equal(t, "zh", cfg.Generation.ResponseLanguage)
	assert.Equal(t, "plain", cfg.Generation.OutputFormat)
	assert.Equal(t, "zh", cfg.UI.Language)
	assert.Equal(t, "light", cfg.UI.Theme)
}

func TestConfig_NestedJSON(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.json")
	cfg := Default()
	cfg.API.Model = "m"
	require.NoError(t, WriteFile(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "m", loaded.API.Model)
}

func TestConfig_TOMLPreferredOverJSON(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"model":"from-json"}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[api]\nmodel = \"from-toml\"\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-toml", cfg.API.Model)
}

func TestConfig_LoadWithoutFile(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().API.Model, cfg.API.Model)
}

func TestConfig_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAPIURL, "https://env.example.com/v1/chat/completions")
	t.Setenv(EnvAPIKey, "sk-env")
	t.Setenv(EnvModel, "env-model")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/v1/chat/completions", cfg.API.URL)
	assert.Equal(t, "sk-env", cfg.API.Key)
	assert.Equal(t, "env-model", cfg.API.Model)
}

func TestConfig_InvalidFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[generation]\ntemperature = 3.0\n"), 0o600))

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation.temperature")

	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o600))
	_, err = LoadFromPath(path)
	assert.Error(t, err)
}

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("api.model", "gpt-4o"))
	require.NoError(t, cfg.Set("generation.temperature", "0.2"))
	require.NoError(t, cfg.Set("generation.stream", "off"))
	require.NoError(t, cfg.Set("API.Timeout_Secs", "30"))

	v, err := cfg.Get("api.model")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", v)
	assert.Equal(t, 0.2, cfg.Generation.Temperature)
	assert.False(t, cfg.Generation.Stream)
	assert.Equal(t, 30, cfg.API.TimeoutSecs)

	assert.Error(t, cfg.Set("api.nope", "x"))
	assert.Error(t, cfg.Set("api", "x"))
	assert.Error(t, cfg.Set("api.model.deeper", "x"))
	assert.Error(t, cfg.Set("generation.temperature", "warm"))
	assert.Error(t, cfg.Set("generation.stream", "maybe"))
	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestConfig_Keys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "api.url")
	assert.Contains(t, keys, "generation.response_language")
	assert.Contains(t, keys, "ui.theme")
	assert.NotContains(t, keys, "api")

	cfg := Default()
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}

func TestConfig_StringRedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.API.Key = "sk-abcdefghijklmnop"
	cfg.Server.BearerToken = "short"

	out := cfg.String()
	assert.NotContains(t, out, "sk-abcdefghijklmnop")
	assert.Contains(t, out, "mnop")
	assert.NotContains(t, out, `"short"`)
	assert.Equal(t, "sk-abcdefghijklmnop", cfg.API.Key, "original must not be modified")
}

func TestConfig_TemplateDir(t *testing.T) {
	dir := isolate(t)
	cfg := Default()
	assert.Equal(t, filepath.Join(dir, "prompts"), cfg.TemplateDir())

	cfg.Templates.Dir = "/srv/templates"
	assert.Equal(t, "/srv/templates", cfg.TemplateDir())

	cfg.Templates.Dir = "~/tpl"
	assert.True(t, strings.HasSuffix(cfg.TemplateDir(), "tpl"))
	assert.False(t, strings.HasPrefix(cfg.TemplateDir(), "~"))
}

func TestConfig_ConcurrentStoreAccess(t *testing.T) {
	dir := isolate(t)
	store, err := NewStore(Default(), filepath.Join(dir, "config.toml"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if err := store.SetTemperature(float64(i%10) / 10); err != nil {
				t.Error(err)
			}
		}(i)
		go func() {
			defer wg.Done()
			if store.Model() == "" {
				t.Error("empty model")
			}
			_ = store.Snapshot()
		}()
	}
	wg.Wait()
}
