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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/halyardlabs/codegraph/cpg"
)

// FileStore persists the graph as one pretty-printed JSON document with the
// four top-level keys nodes, edges, fileNodes, and timestamp. Writes are
// atomic (temp file plus rename) so a crashed save never leaves a truncated
// graph behind.
type FileStore struct {
	fs     afero.Fs
	path   string
	logger *slog.Logger
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithFileStoreFS overrides the backing file system; used in tests.
func WithFileStoreFS(fs afero.Fs) FileStoreOption {
	return func(s *FileStore) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithFileStoreLogger sets the logger.
func WithFileStoreLogger(l *slog.Logger) FileStoreOption {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewFileStore creates a file store writing to path.
func NewFileStore(path string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		fs:     afero.NewOsFs(),
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes the graph, replacing any previous one.
func (s *FileStore) Save(ctx context.Context, g *cpg.Graph) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		if removeErr := s.fs.Remove(tmp); removeErr != nil && !os.IsNotExist(removeErr) {
			s.logger.Warn("orphaned temp file left behind", "path", tmp, "error", removeErr)
		}
		return fmt.Errorf("replace graph file: %w", err)
	}

	s.logger.Debug("graph persisted", "path", s.path, "bytes", len(data))
	return nil
}

// Load reads back the persisted graph. A missing file or one that fails to
// decode both yield ErrNoGraph; the distinction does not matter to callers,
// who rebuild either way.
func (s *FileStore) Load(ctx context.Context) (*cpg.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		s.logger.Debug("no persisted graph", "path", s.path, "error", err)
		return nil, ErrNoGraph
	}

	var g cpg.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		s.logger.Warn("persisted graph is malformed, ignoring", "path", s.path, "error", err)
		return nil, ErrNoGraph
	}
	if g.Nodes == nil {
		s.logger.Warn("persisted graph has no node map, ignoring", "path", s.path)
		return nil, ErrNoGraph
	}

	g.Reindex()
	if err := g.Validate(); err != nil {
		s.logger.Warn("persisted graph fails validation, ignoring", "path", s.path, "error", err)
		return nil, ErrNoGraph
	}
	return &g, nil
}

// Close is a no-op; the file store holds no resources between calls.
func (s *FileStore) Close() error { return nil }
