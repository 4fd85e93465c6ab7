// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

// Package config loads service configuration from defaults, an optional YAML
// file, command-line flags, and the DATABASE_URL environment variable, in
// ascending precedence.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config holds the permitgate service configuration. Koanf keys match the
// flag names, so a YAML file uses the same spelling as the CLI.
type Config struct {
	HTTPAddr      string        `koanf:"http-addr"`
	MetricsAddr   string        `koanf:"metrics-addr"`
	DatabaseURL   string        `koanf:"database-url"`
	LogFormat     string        `koanf:"log-format"`
	LogLevel      string        `koanf:"log-level"`
	SecureCookies bool          `koanf:"secure-cookies"`
	SweepInterval time.Duration `koanf:"sweep-interval"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		HTTPAddr:      "127.0.0.1:8080",
		MetricsAddr:   "127.0.0.1:9100",
		LogFormat:     "json",
		LogLevel:      "info",
		SecureCookies: true,
		SweepInterval: time.Hour,
	}
}

// Load builds the effective configuration. path may be empty (no file);
// flags may be nil. DATABASE_URL from the environment wins over both.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Defaults()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if env := os.Getenv("DATABASE_URL"); env != "" {
		cfg.DatabaseURL = env
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration shape. Database connectivity is checked
// by the commands that need it, not here.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http-addr is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return oops.Code("CONFIG_INVALID").Errorf("log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	if c.SweepInterval < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("sweep-interval cannot be negative")
	}
	return nil
}
