// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Store is the live, persisted configuration shared by every surface.
// Reads see file values with environment overrides on top; every setter
// validates, writes the file, and only then publishes the new values.
//
// Environment overrides are never written to disk.
type Store struct {
	mu   sync.RWMutex
	path string
	file *Config // what is on disk
	eff  *Config // file + env overrides

	subsMu sync.Mutex
	subs   []func(Config)
}

// Open loads the config from path, or from the discovered default location
// when path is empty. A legacy JSON settings file is read once and saved as
// config.toml from then on.
func Open(path string) (*Store, error) {
	if path == "" {
		found, err := Discover()
		switch {
		case errors.Is(err, ErrNoConfigFile):
			tomlPath, perr := PathTOML()
			if perr != nil {
				return nil, perr
			}
			return newStore(Default(), tomlPath)
		case err != nil:
			return nil, err
		}
		path = found
	}

	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	savePath := path
	if strings.EqualFold(filepath.Base(path), "config.json") {
		savePath = filepath.Join(filepath.Dir(path), "config.toml")
	}
	return newStore(cfg, savePath)
}

// NewStore wraps an in-memory config that will be saved to path.
func NewStore(cfg *Config, path string) (*Store, error) {
	return newStore(cfg.Clone(), path)
}

func newStore(file *Config, path string) (*Store, error) {
	eff := file.Clone()
	eff.ApplyEnvOverrides()
	if err := eff.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Store{path: path, file: file, eff: eff}, nil
}

// Path is the file setters write to.
func (s *Store) Path() string { return s.path }

// Snapshot returns a copy of the effective config.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.eff
}

// OnChange registers fn to run after every successful update.
func (s *Store) OnChange(fn func(Config)) {
	s.subsMu.Lock()
	s.subs = append(s.subs, fn)
	s.subsMu.Unlock()
}

// Save writes the current file values.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return WriteFile(s.file, s.path)
}

// Update applies mutate to a copy of the file values, validates, saves, and
// publishes. On any error nothing changes.
func (s *Store) Update(mutate func(*Config) error) error {
	s.mu.Lock()
	candidate := s.file.Clone()
	if err := mutate(candidate); err != nil {
		s.mu.Unlock()
		return err
	}
	eff := candidate.Clone()
	eff.ApplyEnvOverrides()
	if err := eff.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := WriteFile(candidate, s.path); err != nil {
		s.mu.Unlock()
		return err
	}
	s.file, s.eff = candidate, eff
	snapshot := *eff
	s.mu.Unlock()

	s.subsMu.Lock()
	subs := append([]func(Config){}, s.subs...)
	s.subsMu.Unlock()
	for _, fn := range subs {
		fn(snapshot)
	}
	return nil
}

// Get reads a dotted key from the effective config.
func (s *Store) Get(key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eff.Get(key)
}

// Set parses and persists a dotted key.
func (s *Store) Set(key, value string) error {
	return s.Update(func(c *Config) error { return c.Set(key, value) })
}

func (s *Store) read(fn func(*Config) string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.eff)
}

func (s *Store) setString(dst func(*Config) *string, v string) error {
	return s.Update(func(c *Config) error {
		*dst(c) = v
		return nil
	})
}

// =============================================================================
// ACCESSORS
// =============================================================================

func (s *Store) APIURL() string { return s.read(func(c *Config) string { return c.API.URL }) }
func (s *Store) APIKey() string { return s.read(func(c *Config) string { return c.API.Key }) }
func (s *Store) Model() string  { return s.read(func(c *Config) string { return c.API.Model }) }

func (s *Store) ResponseLanguage() string {
	return s.read(func(c *Config) string { return c.Generation.ResponseLanguage })
}

func (s *Store) OutputFormat() string {
	return s.read(func(c *Config) string { return c.Generation.OutputFormat })
}

func (s *Store) Mode() string     { return s.read(func(c *Config) string { return c.Generation.Mode }) }
func (s *Store) Language() string { return s.read(func(c *Config) string { return c.UI.Language }) }
func (s *Store) Theme() string    { return s.read(func(c *Config) string { return c.UI.Theme }) }

// Temperature returns the default generation temperature.
func (s *Store) Temperature() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eff.Generation.Temperature
}

func (s *Store) SetAPIURL(v string) error {
	return s.setString(func(c *Config) *string { return &c.API.URL }, strings.TrimSpace(v))
}

func (s *Store) SetAPIKey(v string) error {
	return s.setString(func(c *Config) *string { return &c.API.Key }, strings.TrimSpace(v))
}

func (s *Store) SetModel(v string) error {
	return s.setString(func(c *Config) *string { return &c.API.Model }, strings.TrimSpace(v))
}

func (s *Store) SetResponseLanguage(v string) error {
	return s.setString(func(c *Config) *string { return &c.Generation.ResponseLanguage }, v)
}

func (s *Store) SetOutputFormat(v string) error {
	return s.setString(func(c *Config) *string { return &c.Generation.OutputFormat }, v)
}

func (s *Store) SetMode(v string) error {
	return s.setString(func(c *Config) *string { return &c.Generation.Mode }, v)
}

func (s *Store) SetLanguage(v string) error {
	return s.setString(func(c *Config) *string { return &c.UI.Language }, v)
}

func (s *Store) SetTheme(v string) error {
	return s.setString(func(c *Config) *string { return &c.UI.Theme }, v)
}

func (s *Store) SetTemperature(v float64) error {
	return s.Update(func(c *Config) error {
		c.Generation.Temperature = v
		return nil
	})
}
