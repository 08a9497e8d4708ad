// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/luoli0706/Ning-Prompt/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete ningprompt configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	API        APIConfig        `toml:"api" json:"api"`
	Generation GenerationConfig `toml:"generation" json:"generation"`
	Templates  TemplatesConfig  `toml:"templates" json:"templates"`
	UI         UIConfig         `toml:"ui" json:"ui"`
	Server     ServerConfig     `toml:"server" json:"server"`
	Logging    LoggingConfig    `toml:"logging" json:"logging"`
}

// APIConfig locates the chat-completion endpoint.
type APIConfig struct {
	// URL is the full completions endpoint, e.g.
	// https://api.openai.com/v1/chat/completions
	URL         string `toml:"url" json:"url"`
	Key         string `toml:"key" json:"key"`
	Model       string `toml:"model" json:"model"`
	TimeoutSecs int    `toml:"timeout_secs" json:"timeout_secs"`
}

// GenerationConfig holds the defaults offered for each transformation.
type GenerationConfig struct {
	Mode             string  `toml:"mode" json:"mode"`
	ResponseLanguage string  `toml:"response_language" json:"response_language"`
	OutputFormat     string  `toml:"output_format" json:"output_format"`
	Temperature      float64 `toml:"temperature" json:"temperature"`
	Stream           bool    `toml:"stream" json:"stream"`
}

// TemplatesConfig locates the template directory.
type TemplatesConfig struct {
	// Dir defaults to <config dir>/prompts when empty.
	Dir   string `toml:"dir" json:"dir"`
	Watch bool   `toml:"watch" json:"watch"`
}

// UIConfig holds presentation preferences.
type UIConfig struct {
	Language string `toml:"language" json:"language"` // en or zh
	Theme    string `toml:"theme" json:"theme"`       // dark or light
}

// ServerConfig configures `ningprompt serve`.
type ServerConfig struct {
	Addr        string  `toml:"addr" json:"addr"`
	BearerToken string  `toml:"bearer_token" json:"bearer_token"`
	RateLimit   float64 `toml:"rate_limit" json:"rate_limit"` // requests per second per client, 0 disables
	RateBurst   int     `toml:"rate_burst" json:"rate_burst"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"` // text or json
	File   string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// CurrentVersion is written into every saved file.
const CurrentVersion = "1"

// Default returns a Config with every field at its default.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		API: APIConfig{
			Model:       "gpt-3.5-turbo",
			TimeoutSecs: 60,
		},
		Generation: GenerationConfig{
			Mode:             "enhance",
			ResponseLanguage: "origin",
			OutputFormat:     "markdown",
			Temperature:      0.5,
			Stream:           true,
		},
		Templates: TemplatesConfig{
			Watch: true,
		},
		UI: UIConfig{
			Language: "en",
			Theme:    "dark",
		},
		Server: ServerConfig{
			Addr:      "127.0.0.1:8787",
			RateLimit: 2,
			RateBurst: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// fillDefaults restores string settings that a file explicitly blanked.
// Numeric and boolean fields keep whatever the file said, zero included.
func fillDefaults(cfg *Config) {
	d := Default()
	setIfEmpty := func(dst *string, def string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = def
		}
	}
	setIfEmpty(&cfg.Version, d.Version)
	setIfEmpty(&cfg.API.Model, d.API.Model)
	setIfEmpty(&cfg.Generation.Mode, d.Generation.Mode)
	setIfEmpty(&cfg.Generation.ResponseLanguage, d.Generation.ResponseLanguage)
	setIfEmpty(&cfg.Generation.OutputFormat, d.Generation.OutputFormat)
	setIfEmpty(&cfg.UI.Language, d.UI.Language)
	setIfEmpty(&cfg.UI.Theme, d.UI.Theme)
	setIfEmpty(&cfg.Server.Addr, d.Server.Addr)
	setIfEmpty(&cfg.Logging.Level, d.Logging.Level)
	setIfEmpty(&cfg.Logging.Format, d.Logging.Format)
	if cfg.API.TimeoutSecs <= 0 {
		cfg.API.TimeoutSecs = d.API.TimeoutSecs
	}
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the configuration directory: $NINGPROMPT_HOME, or
// ~/.ningprompt.
func Dir() (string, error) {
	if home := os.Getenv("NINGPROMPT_HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ningprompt"), nil
}

// PathTOML returns the primary config file path.
func PathTOML() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// PathJSON returns the JSON config path, which is also where the original
// desktop app kept its flat settings file.
func PathJSON() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// TemplateDir returns the effective template directory.
func (c *Config) TemplateDir() string {
	if c.Templates.Dir != "" {
		return expandHome(c.Templates.Dir)
	}
	dir, err := Dir()
	if err != nil {
		return "prompts"
	}
	return filepath.Join(dir, "prompts")
}

// LogFile returns the effective log file path; empty means stderr.
func (c *Config) LogFile() string {
	return expandHome(c.Logging.File)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// =============================================================================
// LOAD
// =============================================================================

// ErrNoConfigFile is returned by Discover when neither file exists.
var ErrNoConfigFile = errors.New("no config file")

// Discover returns the config file to read: config.toml if present, else
// config.json, else ErrNoConfigFile.
func Discover() (string, error) {
	tomlPath, err := PathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	jsonPath, err := PathJSON()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath, nil
	}
	return "", ErrNoConfigFile
}

// Load reads the discovered config file (or defaults), applies environment
// overrides and validates the result.
func Load() (*Config, error) {
	path, err := Discover()
	if errors.Is(err, ErrNoConfigFile) {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads one file, applies environment overrides and validates.
func LoadFromPath(path string) (*Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ReadFile decodes a TOML or JSON file on top of the defaults, without
// environment overrides. JSON files in the original flat format are
// migrated transparently.
func ReadFile(path string) (*Config, error) {
	// SECURITY: the file holds an API key
	if err := ensureSecurePermissions(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not secure %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = decodeJSON(cfg, data)
	} else {
		_, err = toml.Decode(string(data), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	fillDefaults(cfg)
	return cfg, nil
}

// legacyConfig is the flat settings file written by the original app.
type legacyConfig struct {
	APIURL           *string `json:"api_url"`
	APIKey           *string `json:"api_key"`
	Model            *string `json:"model"`
	Language         *string `json:"language"`
	ThemeMode        *string `json:"theme_mode"`
	ResponseLanguage *string `json:"response_language"`
	OutputFormat     *string `json:"output_format"`
}

var legacyKeys = []string{"api_url", "api_key", "model", "language", "theme_mode", "response_language", "output_format"}

func decodeJSON(cfg *Config, data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return err
	}
	isLegacy := false
	for _, k := range legacyKeys {
		if _, ok := top[k]; ok {
			isLegacy = true
			break
		}
	}
	if !isLegacy {
		return json.Unmarshal(data, cfg)
	}

	var old legacyConfig
	if err := json.Unmarshal(data, &old); err != nil {
		return err
	}
	assign := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	assign(&cfg.API.URL, old.APIURL)
	assign(&cfg.API.Key, old.APIKey)
	assign(&cfg.API.Model, old.Model)
	assign(&cfg.UI.Language, old.Language)
	assign(&cfg.UI.Theme, old.ThemeMode)
	assign(&cfg.Generation.ResponseLanguage, old.ResponseLanguage)
	assign(&cfg.Generation.OutputFormat, old.OutputFormat)
	return nil
}

// ensureSecurePermissions tightens a config file to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("fix permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// SAVE
// =============================================================================

const tomlHeader = `# ningprompt configuration
# Written by ningprompt; comments you add here are not preserved.

`

// WriteFile encodes cfg as TOML, or as JSON when path ends in .json, and
// replaces the file atomically with 0600 permissions.
func WriteFile(cfg *Config, path string) error {
	var buf bytes.Buffer
	if strings.EqualFold(filepath.Ext(path), ".json") {
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
	} else {
		buf.WriteString(tomlHeader)
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
	}
	if err := util.WriteFileAtomic(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

// Environment variables that override file settings.
const (
	EnvAPIURL       = "NINGPROMPT_API_URL"
	EnvAPIKey       = "NINGPROMPT_API_KEY"
	EnvModel        = "NINGPROMPT_MODEL"
	EnvTemplatesDir = "NINGPROMPT_TEMPLATES_DIR"
	EnvLogLevel     = "NINGPROMPT_LOG_LEVEL"
	EnvServerToken  = "NINGPROMPT_SERVER_TOKEN"
)

// ApplyEnvOverrides copies NINGPROMPT_* variables over the loaded values.
func (c *Config) ApplyEnvOverrides() {
	override := func(dst *string, name string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	override(&c.API.URL, EnvAPIURL)
	override(&c.API.Key, EnvAPIKey)
	override(&c.API.Model, EnvModel)
	override(&c.Templates.Dir, EnvTemplatesDir)
	override(&c.Logging.Level, EnvLogLevel)
	override(&c.Server.BearerToken, EnvServerToken)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError reports one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every invalid field.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks value ranges and enumerations. An empty API URL or key is
// valid here; callers check readiness before sending.
func (c *Config) Validate() error {
	var errs ValidateErrors
	bad := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.API.URL != "" {
		u, err := url.Parse(c.API.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			bad("api.url", "must be an http(s) URL, got %q", c.API.URL)
		}
	}
	if c.API.TimeoutSecs < 0 {
		bad("api.timeout_secs", "must not be negative")
	}

	if c.Generation.Temperature < 0 || c.Generation.Temperature > 1 {
		bad("generation.temperature", "must be between 0 and 1, got %g", c.Generation.Temperature)
	}
	switch c.Generation.OutputFormat {
	case "markdown", "plain":
	default:
		bad("generation.output_format", "must be markdown or plain, got %q", c.Generation.OutputFormat)
	}
	if strings.TrimSpace(c.Generation.ResponseLanguage) == "" {
		bad("generation.response_language", "must not be empty")
	}
	if strings.ContainsAny(c.Generation.Mode, `/\`) {
		bad("generation.mode", "must be a mode name, got %q", c.Generation.Mode)
	}

	switch c.UI.Language {
	case "en", "zh":
	default:
		bad("ui.language", "must be en or zh, got %q", c.UI.Language)
	}
	switch c.UI.Theme {
	case "dark", "light":
	default:
		bad("ui.theme", "must be dark or light, got %q", c.UI.Theme)
	}

	if c.Server.RateLimit < 0 {
		bad("server.rate_limit", "must not be negative")
	}
	if c.Server.RateBurst < 0 {
		bad("server.rate_burst", "must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		bad("logging.level", "must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		bad("logging.format", "must be text or json, got %q", c.Logging.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// COPY AND DISPLAY
// =============================================================================

// Clone returns a copy. Config holds only value fields, so a shallow copy is
// already deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Redacted returns a copy with secrets masked.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	safe.API.Key = MaskSecret(safe.API.Key)
	safe.Server.BearerToken = MaskSecret(safe.Server.BearerToken)
	return safe
}

// String renders the config as TOML with secrets masked.
// SECURITY: never print keys in logs or error output
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c.Redacted()); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}

// MaskSecret keeps the last four characters of long secrets.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "[REDACTED]"
	default:
		return "[REDACTED]..." + s[len(s)-4:]
	}
}
