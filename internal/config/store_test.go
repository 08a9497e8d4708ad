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

func TestStore_SettersPersist(t *testing.T) {
	dir := isolate(t)
	store, err := Open("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())

	require.NoError(t, store.SetAPIURL(" https://api.example.com/v1/chat/completions "))
	require.NoError(t, store.SetAPIKey("sk-1"))
	require.NoError(t, store.SetModel("gpt-4o-mini"))
	require.NoError(t, store.SetResponseLanguage("zh"))
	require.NoError(t, store.SetOutputFormat("plain"))
	require.NoError(t, store.SetLanguage("zh"))
	require.NoError(t, store.SetTheme("light"))
	require.NoError(t, store.SetTemperature(0.9))
	require.NoError(t, store.SetMode("repair"))

	assert.Equal(t, "https://api.example.com/v1/chat/completions", store.APIURL())

	reopened, err := Open("")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/chat/completions", reopened.APIURL())
	assert.Equal(t, "sk-1", reopened.APIKey())
	assert.Equal(t, "gpt-4o-mini", reopened.Model())
	assert.Equal(t, "zh", reopened.ResponseLanguage())
	assert.Equal(t, "plain", reopened.OutputFormat())
	assert.Equal(t, "zh", reopened.Language())
	assert.Equal(t, "light", reopened.Theme())
	assert.Equal(t, 0.9, reopened.Temperature())
	assert.Equal(t, "repair", reopened.Mode())
}

func TestStore_InvalidSetLeavesStateUnchanged(t *testing.T) {
	dir := isolate(t)
	store, err := NewStore(Default(), filepath.Join(dir, "config.toml"))
	require.NoError(t, err)

	assert.Error(t, store.SetTheme("neon"))
	assert.Equal(t, "dark", store.Theme())
	assert.Error(t, store.SetTemperature(2))
	assert.Equal(t, 0.5, store.Temperature())
	assert.Error(t, store.Set("generation.output_format", "pdf"))

	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err), "nothing should be written for rejected updates")
}

func TestStore_EnvOverridesAreNotPersisted(t *testing.T) {
	dir := isolate(t)
	t.Setenv(EnvAPIKey, "sk-from-env")

	store, err := Open("")
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", store.APIKey())

	require.NoError(t, store.SetModel("m"))
	data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-from-env")
}

func TestStore_MigratesLegacyJSON(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"api_url":"https://api.example.com/v1","api_key":"k","model":"x"}`), 0o600))

	store, err := Open("")
	require.NoError(t, err)
	assert.Equal(t, "x", store.Model())
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())

	require.NoError(t, store.SetTheme("light"))
	reopened, err := Open("")
	require.NoError(t, err)
	assert.Equal(t, "x", reopened.Model(), "toml now takes precedence and carries the migrated values")
	assert.Equal(t, "light", reopened.Theme())
}

func TestStore_SetByKeyAndOnChange(t *testing.T) {
	dir := isolate(t)
	store, err := NewStore(Default(), filepath.Join(dir, "config.toml"))
	require.NoError(t, err)

	var seen []string
	store.OnChange(func(c Config) { seen = append(seen, c.API.Model) })

	require.NoError(t, store.Set("api.model", "claude"))
	v, err := store.Get("api.model")
	require.NoError(t, err)
	assert.Equal(t, "claude", v)
	assert.Equal(t, []string{"claude"}, seen)
}
