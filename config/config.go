// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads engine configuration from a config file and the
// environment via viper. Every value has a working default; a missing
// config file is not an error.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Config is the engine configuration.
type Config struct {
	// ProjectRoot is the directory scanned for source files.
	ProjectRoot string `mapstructure:"project_root"`

	// StoreBackend selects where built graphs are cached: file or badger.
	StoreBackend string `mapstructure:"store_backend"`

	// GraphPath is the JSON file the file backend writes.
	GraphPath string `mapstructure:"graph_path"`

	// BadgerPath is the database directory for the badger backend.
	BadgerPath string `mapstructure:"badger_path"`

	// MaxNodes and MaxEdges bound graph size.
	MaxNodes int `mapstructure:"max_nodes"`
	MaxEdges int `mapstructure:"max_edges"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ProjectRoot:  ".",
		StoreBackend: BackendFile,
		GraphPath:    ".codegraph/graph.json",
		BadgerPath:   ".codegraph/badger",
		MaxNodes:     1_000_000,
		MaxEdges:     5_000_000,
		LogLevel:     "info",
	}
}

// Load reads configuration from cfgFile (or ./codegraph.yaml when empty)
// and the CODEGRAPH_* environment, layered over the defaults.
func Load(cfgFile string) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("project_root", def.ProjectRoot)
	v.SetDefault("store_backend", def.StoreBackend)
	v.SetDefault("graph_path", def.GraphPath)
	v.SetDefault("badger_path", def.BadgerPath)
	v.SetDefault("max_nodes", def.MaxNodes)
	v.SetDefault("max_edges", def.MaxEdges)
	v.SetDefault("log_level", def.LogLevel)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("codegraph")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.codegraph")
	}

	v.SetEnvPrefix("CODEGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendFile, BackendBadger:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.MaxNodes <= 0 || c.MaxEdges <= 0 {
		return fmt.Errorf("max_nodes and max_edges must be positive")
	}
	return nil
}
