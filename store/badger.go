// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/halyardlabs/codegraph/cpg"
)

// graphKey is the single key the serialized graph lives under.
var graphKey = []byte("cpg/graph")

// BadgerConfig configures the embedded Badger store.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory runs Badger without touching disk; used in tests.
	InMemory bool

	// SyncWrites makes every write durable before returning.
	SyncWrites bool

	Logger *slog.Logger
}

// DefaultBadgerConfig returns a disk-backed configuration.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:       path,
		SyncWrites: false,
		Logger:     slog.Default(),
	}
}

// InMemoryBadgerConfig returns a configuration suitable for tests.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{
		InMemory: true,
		Logger:   slog.Default(),
	}
}

// BadgerStore caches the serialized graph in an embedded Badger database.
// It shares the JSON wire shape with FileStore, so the two backends are
// interchangeable.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenBadgerStore opens (or creates) the database.
func OpenBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(badgerLogger{logger: logger})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

// Save writes the graph, replacing any previous one.
func (s *BadgerStore) Save(ctx context.Context, g *cpg.Graph) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(graphKey, data)
	})
	if err != nil {
		return fmt.Errorf("write graph: %w", err)
	}

	s.logger.Debug("graph persisted", "backend", "badger", "bytes", len(data))
	return nil
}

// Load reads back the cached graph, or ErrNoGraph when the key is absent or
// the stored bytes fail to decode.
func (s *BadgerStore) Load(ctx context.Context) (*cpg.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(graphKey)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNoGraph
	}
	if err != nil {
		s.logger.Warn("graph read failed", "backend", "badger", "error", err)
		return nil, ErrNoGraph
	}

	var g cpg.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		s.logger.Warn("cached graph is malformed, ignoring", "backend", "badger", "error", err)
		return nil, ErrNoGraph
	}
	if g.Nodes == nil {
		return nil, ErrNoGraph
	}

	g.Reindex()
	if err := g.Validate(); err != nil {
		s.logger.Warn("cached graph fails validation, ignoring", "backend", "badger", "error", err)
		return nil, ErrNoGraph
	}
	return &g, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger adapts slog to Badger's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
