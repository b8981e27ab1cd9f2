package config

// Copyright (C) 2025 Rizome Labs, Inc.
//
// This program is free software; you can redistribute it and/or
// modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; either version 2
// of the License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program; if not, write to the Free Software
// Foundation, Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rizome-dev/janitor/internal/log"
	"github.com/rizome-dev/janitor/internal/utils"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the CLI settings
type Config struct {
	LogLevel        log.Level     `mapstructure:"log_level" yaml:"log_level"`
	LogFormat       string        `mapstructure:"log_format" yaml:"log_format"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	KillGrace       time.Duration `mapstructure:"kill_grace" yaml:"kill_grace"`
	Color           bool          `mapstructure:"color" yaml:"color"`
}

const (
	FormatText = "text"
	FormatJSON = "json"

	envPrefix = "JANITOR"
)

// Default returns the settings used when no config file is present
func Default() *Config {
	return &Config{
		LogLevel:        log.LevelInfo,
		LogFormat:       FormatText,
		ShutdownTimeout: 3 * time.Second,
		KillGrace:       2 * time.Second,
		Color:           true,
	}
}

// Dir returns the per-user config directory
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".janitor"), nil
}

// New returns a viper instance with defaults, env binding and search paths
// set up. If configFile is empty, config.yaml is looked up in the config
// directory and the working directory.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("log_level", def.LogLevel.String())
	v.SetDefault("log_format", def.LogFormat)
	v.SetDefault("shutdown_timeout", def.ShutdownTimeout)
	v.SetDefault("kill_grace", def.KillGrace)
	v.SetDefault("color", def.Color)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		return v, nil
	}

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	v.AddConfigPath(dir)
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	return v, nil
}

// Load reads the config file, if any, and decodes the settings. A missing
// config file in the default search paths is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the decoded settings
func (c *Config) Validate() error {
	switch c.LogFormat {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("invalid log_format %q: want %s or %s", c.LogFormat, FormatText, FormatJSON)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %s", c.ShutdownTimeout)
	}
	if c.KillGrace < 0 {
		return fmt.Errorf("kill_grace must not be negative, got %s", c.KillGrace)
	}
	return nil
}

// ApplyLogging configures the package logger from the settings
func (c *Config) ApplyLogging() {
	if c.LogFormat == FormatJSON {
		log.SetJSONHandler(os.Stderr)
	} else {
		log.SetTextHandler(os.Stderr)
	}
	log.SetLevel(c.LogLevel)
}

// YAML renders the settings in config file form
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(map[string]any{
		"log_level":        strings.ToLower(c.LogLevel.String()),
		"log_format":       c.LogFormat,
		"shutdown_timeout": c.ShutdownTimeout.String(),
		"kill_grace":       c.KillGrace.String(),
		"color":            c.Color,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default settings to path
func WriteDefault(path string) error {
	data, err := Default().YAML()
	if err != nil {
		return err
	}
	if err := utils.WriteFile(path, data); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
