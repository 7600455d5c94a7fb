// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// run from an empty directory so no stray codegraph.yaml is picked up
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codegraph.yaml")
	yaml := "store_backend: badger\nbadger_path: /tmp/cg\nmax_nodes: 500\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendBadger, cfg.StoreBackend)
	assert.Equal(t, "/tmp/cg", cfg.BadgerPath)
	assert.Equal(t, 500, cfg.MaxNodes)
	assert.Equal(t, "debug", cfg.LogLevel)
	// untouched keys keep their defaults
	assert.Equal(t, Default().GraphPath, cfg.GraphPath)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CODEGRAPH_LOG_LEVEL", "warn")
	t.Setenv("CODEGRAPH_PROJECT_ROOT", "/srv/app")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/srv/app", cfg.ProjectRoot)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Default().Validate())

	bad := Default()
	bad.StoreBackend = "redis"
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.LogLevel = "loud"
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.MaxNodes = 0
	assert.Error(t, bad.Validate())
}
