// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cli implements the codegraph command tree.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/halyardlabs/codegraph/config"
	"github.com/halyardlabs/codegraph/cpg"
	"github.com/halyardlabs/codegraph/store"
)

// app carries the loaded configuration and logger across subcommands.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

// NewRootCmd builds the codegraph command tree.
func NewRootCmd() *cobra.Command {
	a := &app{logger: slog.Default()}
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "codegraph",
		Short: "Build and query a code property graph for a project",
		Long: `codegraph builds a code property graph from TypeScript and JavaScript
sources and answers dependency, impact, cycle, and path queries over it.

Run "codegraph build" once to scan a project and cache the graph, then run
the query commands against the cache.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = newLogger(cfg.LogLevel)
			slog.SetDefault(a.logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default ./codegraph.yaml)")

	cmd.AddCommand(
		newBuildCmd(a),
		newImpactCmd(a),
		newCyclesCmd(a),
		newPathCmd(a),
		newCallersCmd(a),
		newStatsCmd(a),
	)
	return cmd
}

// Execute runs the CLI and returns a process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// openStore opens the configured graph store.
func (a *app) openStore() (store.Store, error) {
	switch a.cfg.StoreBackend {
	case config.BackendBadger:
		return store.OpenBadgerStore(store.BadgerConfig{
			Path:   a.cfg.BadgerPath,
			Logger: a.logger,
		})
	default:
		return store.NewFileStore(a.cfg.GraphPath, store.WithFileStoreLogger(a.logger)), nil
	}
}

// loadGraph loads the cached graph, translating a cache miss into guidance.
func (a *app) loadGraph(ctx context.Context) (*cpg.Graph, error) {
	st, err := a.openStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()

	g, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w (run \"codegraph build\" first)", err)
	}
	return g, nil
}

// resolveNodeIDs maps each argument to node ids: an exact node id stays as
// is, anything else matches every node sharing that name.
func resolveNodeIDs(g *cpg.Graph, args []string) []string {
	var ids []string
	for _, arg := range args {
		if _, ok := g.Nodes[arg]; ok {
			ids = append(ids, arg)
			continue
		}
		for _, n := range g.NodesByName(arg) {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// describeNode renders a node for terminal output.
func describeNode(g *cpg.Graph, id string) string {
	n := g.Nodes[id]
	if n == nil {
		return id
	}
	return fmt.Sprintf("%s (%s, %s)", n.Name, n.Kind, n.FilePath)
}
