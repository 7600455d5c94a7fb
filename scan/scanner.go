// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package scan produces AST snapshots from a project directory: it walks
// the tree, honors .gitignore, parses every supported source file through
// the parser registry, and emits the snapshot map the graph builder
// consumes.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"

	"github.com/halyardlabs/codegraph/parser"
	"github.com/halyardlabs/codegraph/snapshot"
)

// DefaultMaxFiles bounds a single scan.
const DefaultMaxFiles = 50_000

// skipDirs are directory names never descended into, gitignore or not.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
	"out":          true,
}

// Scanner walks a project tree and produces per-file snapshots.
type Scanner struct {
	fs       afero.Fs
	registry *parser.Registry
	logger   *slog.Logger
	maxFiles int
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithFS overrides the backing file system; used in tests.
func WithFS(fs afero.Fs) ScannerOption {
	return func(s *Scanner) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithRegistry overrides the parser registry.
func WithRegistry(r *parser.Registry) ScannerOption {
	return func(s *Scanner) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxFiles overrides the file limit.
func WithMaxFiles(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.maxFiles = n
		}
	}
}

// NewScanner creates a scanner with the default parser registry.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		fs:       afero.NewOsFs(),
		registry: parser.DefaultRegistry(),
		logger:   slog.Default(),
		maxFiles: DefaultMaxFiles,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks root and returns a snapshot per parseable source file, keyed
// by slash-separated path relative to root.
//
// Description:
//
//	Files that fail to parse are skipped with a debug log; a scan only
//	fails outright on a cancelled context, an unreadable root, or a
//	registry whose parsers report the capability as unavailable.
func (s *Scanner) Scan(ctx context.Context, root string) (map[string]snapshot.Snapshot, error) {
	matcher := s.loadGitignore(root)
	snapshots := make(map[string]snapshot.Snapshot)

	walkErr := afero.Walk(s.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			s.logger.Debug("skipping unreadable path", "path", p, "error", err)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if skipDirs[info.Name()] || (matcher != nil && matcher.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}

		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}
		sp := s.registry.ForFile(p)
		if sp == nil {
			return nil
		}
		if len(snapshots) >= s.maxFiles {
			return fmt.Errorf("scan aborted: more than %d source files under %s", s.maxFiles, root)
		}

		content, readErr := afero.ReadFile(s.fs, p)
		if readErr != nil {
			s.logger.Debug("skipping unreadable file", "path", rel, "error", readErr)
			return nil
		}

		outline, parseErr := sp.Parse(ctx, content, p)
		if parseErr != nil {
			if errors.Is(parseErr, parser.ErrUnavailable) {
				return fmt.Errorf("scan requires a source parser: %w", parser.ErrUnavailable)
			}
			s.logger.Debug("skipping unparseable file", "path", rel, "error", parseErr)
			return nil
		}

		snapshots[rel] = outline.Snapshot(info.ModTime().UnixMilli())
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	s.logger.Debug("scan complete", "root", root, "files", len(snapshots))
	return snapshots, nil
}

// loadGitignore compiles the project's root .gitignore, if present.
func (s *Scanner) loadGitignore(root string) *ignore.GitIgnore {
	data, err := afero.ReadFile(s.fs, filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return ignore.CompileIgnoreLines(strings.Split(string(data), "\n")...)
}
