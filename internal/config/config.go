// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config holds the settings of a lint run and loads them from an optional YAML file.
// Command line flags are applied on top by the cmd package.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"
)

const (
	// DefaultFile is read from the working directory when no file is named explicitly.
	DefaultFile = ".bladelint.yaml"
	// DefaultSuffix selects Blade templates.
	DefaultSuffix = ".blade.php"
	// DefaultPath is where Laravel keeps its views.
	DefaultPath = "resources/views"
)

var (
	// ErrReadConfigFile is returned when the configuration file exists but cannot be read.
	ErrReadConfigFile = errors.New("failed to read configuration file")
	// ErrParseConfigFile is returned when the configuration file is not valid.
	ErrParseConfigFile = errors.New("failed to parse configuration file")
	// ErrInvalidConfig is returned by Validate.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Tool is an external program and its arguments.
type Tool struct {
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
}

// Config is the complete set of settings for a lint run.
type Config struct {
	Paths     []string  `yaml:"paths"`
	Suffix    string    `yaml:"suffix"`
	Processes Processes `yaml:"processes"`
	Debug     bool      `yaml:"debug"`
	Checker   Tool      `yaml:"checker"`
	Compiler  Tool      `yaml:"compiler"`
}

// Default returns the settings used without a configuration file:
// every CPU, `php -l` and the built-in compiler over resources/views.
func Default() *Config {
	return &Config{
		Paths:  []string{DefaultPath},
		Suffix: DefaultSuffix,
		Checker: Tool{
			Command: "php",
			Args:    []string{"-l"},
		},
	}
}

// Load reads the configuration file at path over the defaults.
// An empty path means DefaultFile, which may be absent. A named file must exist.
func Load(path string) (*Config, error) {
	required := path != ""
	if !required {
		path = DefaultFile
	}

	cfg := Default()

	data, err := afero.ReadFile(FsFactory(), path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return nil, errors.Join(ErrReadConfigFile, err)
	}

	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParseConfigFile, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the settings that have no usable fallback.
func (c *Config) Validate() error {
	switch {
	case len(c.Paths) == 0:
		return fmt.Errorf("%w: no paths to search", ErrInvalidConfig)
	case strings.TrimSpace(c.Suffix) == "":
		return fmt.Errorf("%w: empty template suffix", ErrInvalidConfig)
	case c.Processes < 0:
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrInvalidProcesses)
	}

	return nil
}

// YAML renders the configuration in the file format Load reads.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c) //nolint:wrapcheck
}
