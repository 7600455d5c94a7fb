// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/halyardlabs/codegraph/cpg"
	"github.com/halyardlabs/codegraph/parser"
	"github.com/halyardlabs/codegraph/scan"
)

func newBuildCmd(a *app) *cobra.Command {
	var noParser bool

	cmd := &cobra.Command{
		Use:   "build [path]",
		Short: "Scan a project, build the graph, and cache it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := a.cfg.ProjectRoot
			if len(args) == 1 {
				root = args[0]
			}
			ctx := cmd.Context()

			registry := parser.DefaultRegistry()
			scanner := scan.NewScanner(
				scan.WithRegistry(registry),
				scan.WithLogger(a.logger),
			)
			snapshots, err := scanner.Scan(ctx, root)
			if err != nil {
				return fmt.Errorf("scan %s: %w", root, err)
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			var buildParser parser.SourceParser = registry.Dispatch()
			if noParser {
				buildParser = parser.Unavailable{}
			}

			builder := cpg.NewBuilder(
				cpg.WithParser(buildParser),
				cpg.WithSourceFS(afero.NewOsFs(), root),
				cpg.WithStore(st),
				cpg.WithLogger(a.logger),
				cpg.WithMaxNodes(a.cfg.MaxNodes),
				cpg.WithMaxEdges(a.cfg.MaxEdges),
			)
			result, err := builder.Build(ctx, snapshots)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "build %s\n", result.BuildID)
			fmt.Fprintf(out, "  files:  %d processed, %d parsed, %d failed\n",
				result.Stats.FilesProcessed, result.Stats.FilesParsed, result.Stats.FilesFailed)
			fmt.Fprintf(out, "  graph:  %d nodes, %d edges\n",
				result.Stats.NodesCreated, result.Stats.EdgesCreated)
			fmt.Fprintf(out, "  edges:  %d call, %d data-flow, %d control-flow\n",
				result.Stats.CallEdges, result.Stats.DataFlowEdges, result.Stats.ControlFlowEdges)
			fmt.Fprintf(out, "  import: %d resolved, %d unresolved\n",
				result.Stats.ImportsResolved, result.Stats.ImportsUnresolved)
			fmt.Fprintf(out, "  took:   %dms\n", result.Stats.DurationMilli)
			for _, fe := range result.FileErrors {
				fmt.Fprintf(out, "  warn:   %s\n", fe.Error())
			}
			if result.Incomplete {
				fmt.Fprintln(out, "  note:   graph truncated by resource limits")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noParser, "no-parser", false,
		"skip the behavioral pass, structural edges only")
	return cmd
}
