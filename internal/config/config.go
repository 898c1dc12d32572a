// Copyright 2026 The go-ecuart Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads ecctl settings from an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/surfacectl/go-ecuart"
	"github.com/surfacectl/go-ecuart/logger"
	"github.com/surfacectl/go-ecuart/store"
	"github.com/surfacectl/go-ecuart/transport/uart"
)

// ErrInvalid is returned for settings that fail validation.
var ErrInvalid = errors.New("invalid configuration")

// Config holds every ecctl setting.
type Config struct {
	Device          string
	CountersPath    string
	StatsPath       string
	LogLevel        string
	LogFormat       string
	Baud            int
	Retries         int
	ReadTimeout     time.Duration
	ReadBudget      time.Duration
	ExchangeTimeout time.Duration
	Persist         bool
}

// Default returns the built in settings.
func Default() Config {
	return Config{
		Device:          uart.DefaultDevice,
		Baud:            uart.DefaultBaudRate,
		ReadTimeout:     uart.DefaultReadTimeout,
		ReadBudget:      uart.DefaultReadBudget,
		ExchangeTimeout: ecuart.DefaultExchangeTimeout,
		CountersPath:    store.DefaultPath(),
		Persist:         true,
		Retries:         0,
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/ecctl/config.toml, falling back to
// ~/.config.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" && filepath.IsAbs(dir) {
		return filepath.Join(dir, "ecctl", "config.toml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "ecctl", "config.toml")
	}
	return ""
}

type fileConfig struct {
	Device          string `toml:"device"`
	Baud            int    `toml:"baud"`
	ReadTimeout     string `toml:"read_timeout"`
	ReadBudget      string `toml:"read_budget"`
	ExchangeTimeout string `toml:"exchange_timeout"`
	Counters        string `toml:"counters"`
	Stats           string `toml:"stats"`
	Persist         bool   `toml:"persist"`
	Retries         int    `toml:"retries"`
	LogLevel        string `toml:"log_level"`
	LogFormat       string `toml:"log_format"`
}

// Load reads path over the defaults. Keys absent from the file keep their
// default value.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q in %s", ErrInvalid, undecoded[0].String(), path)
	}

	if meta.IsDefined("device") {
		cfg.Device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	durations := []struct {
		dst *time.Duration
		key string
		val string
	}{
		{&cfg.ReadTimeout, "read_timeout", raw.ReadTimeout},
		{&cfg.ReadBudget, "read_budget", raw.ReadBudget},
		{&cfg.ExchangeTimeout, "exchange_timeout", raw.ExchangeTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.val))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}
	if meta.IsDefined("counters") {
		cfg.CountersPath = expandHome(strings.TrimSpace(raw.Counters))
	}
	if meta.IsDefined("stats") {
		cfg.StatsPath = expandHome(strings.TrimSpace(raw.Stats))
	}
	if meta.IsDefined("persist") {
		cfg.Persist = raw.Persist
	}
	if meta.IsDefined("retries") {
		cfg.Retries = raw.Retries
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw.LogLevel))
	}
	if meta.IsDefined("log_format") {
		cfg.LogFormat = strings.ToLower(strings.TrimSpace(raw.LogFormat))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load, except that a missing file yields the defaults.
func LoadOptional(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("%w: device is empty", ErrInvalid)
	}
	if c.Baud <= 0 {
		return fmt.Errorf("%w: baud %d", ErrInvalid, c.Baud)
	}
	if c.ReadTimeout <= 0 || c.ReadBudget <= 0 {
		return fmt.Errorf("%w: read timeout and budget must be positive", ErrInvalid)
	}
	if c.ReadBudget < c.ReadTimeout {
		return fmt.Errorf("%w: read budget %v is shorter than read timeout %v", ErrInvalid, c.ReadBudget, c.ReadTimeout)
	}
	if c.ExchangeTimeout < 0 {
		return fmt.Errorf("%w: exchange timeout %v", ErrInvalid, c.ExchangeTimeout)
	}
	if c.Retries < 0 {
		return fmt.Errorf("%w: retries %d", ErrInvalid, c.Retries)
	}
	if c.Persist && c.CountersPath == "" {
		return fmt.Errorf("%w: persist requires a counters path", ErrInvalid)
	}
	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.LogFormat)
	}
	return nil
}

// RetryConfig returns the exchange retry policy, nil when retries are off.
func (c Config) RetryConfig() *ecuart.RetryConfig {
	if c.Retries == 0 {
		return nil
	}
	rc := ecuart.DefaultRetryConfig()
	rc.MaxAttempts = c.Retries + 1
	return rc
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}
