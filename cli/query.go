// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/halyardlabs/codegraph/cpg"
)

func newImpactCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "impact <node-id-or-name>...",
		Short: "Show the blast radius of changing the given nodes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGraph(cmd.Context())
			if err != nil {
				return err
			}

			changed := resolveNodeIDs(g, args)
			if len(changed) == 0 {
				return fmt.Errorf("no graph nodes match %v", args)
			}

			result := cpg.NewAnalyzer(g).Impact(changed)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "impact score: %.4f (%d of %d nodes)\n",
				result.ImpactScore, len(result.AffectedNodes), g.NodeCount())
			fmt.Fprintf(out, "affected files (%d):\n", len(result.AffectedFiles))
			for _, f := range result.AffectedFiles {
				fmt.Fprintf(out, "  %s\n", f)
			}
			return nil
		},
	}
}

func newCyclesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cycles",
		Short: "List strongly connected components (call and import cycles)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGraph(cmd.Context())
			if err != nil {
				return err
			}

			components := cpg.NewAnalyzer(g).StronglyConnectedComponents()
			out := cmd.OutOrStdout()
			if len(components) == 0 {
				fmt.Fprintln(out, "no cycles")
				return nil
			}
			for i, component := range components {
				fmt.Fprintf(out, "cycle %d (%d nodes):\n", i+1, len(component))
				for _, id := range component {
					fmt.Fprintf(out, "  %s\n", describeNode(g, id))
				}
			}
			return nil
		},
	}
}

func newPathCmd(a *app) *cobra.Command {
	var all bool
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "path <source> <target>",
		Short: "Find the shortest path (or all paths) between two nodes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGraph(cmd.Context())
			if err != nil {
				return err
			}

			sources := resolveNodeIDs(g, args[:1])
			targets := resolveNodeIDs(g, args[1:])
			if len(sources) == 0 || len(targets) == 0 {
				return fmt.Errorf("no graph nodes match %v", args)
			}

			analyzer := cpg.NewAnalyzer(g)
			out := cmd.OutOrStdout()
			if all {
				paths := analyzer.AllPaths(sources[0], targets[0], maxDepth)
				if len(paths) == 0 {
					fmt.Fprintln(out, "no path")
					return nil
				}
				for _, p := range paths {
					printPath(out, g, p)
				}
				return nil
			}

			p := analyzer.ShortestPath(sources[0], targets[0])
			if p == nil {
				fmt.Fprintln(out, "no path")
				return nil
			}
			printPath(out, g, p)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "enumerate all simple paths")
	cmd.Flags().IntVar(&maxDepth, "max-depth", cpg.DefaultMaxDepth,
		"hop limit for --all")
	return cmd
}

func newCallersCmd(a *app) *cobra.Command {
	var callees bool

	cmd := &cobra.Command{
		Use:   "callers <function-id-or-name>",
		Short: "List callers (or callees) of a function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGraph(cmd.Context())
			if err != nil {
				return err
			}

			ids := resolveNodeIDs(g, args)
			if len(ids) == 0 {
				return fmt.Errorf("no graph nodes match %q", args[0])
			}

			analyzer := cpg.NewAnalyzer(g)
			out := cmd.OutOrStdout()
			for _, id := range ids {
				related := analyzer.Callers(id)
				label := "callers"
				if callees {
					related = analyzer.Callees(id)
					label = "callees"
				}
				fmt.Fprintf(out, "%s of %s:\n", label, describeNode(g, id))
				if len(related) == 0 {
					fmt.Fprintln(out, "  none")
					continue
				}
				for _, rid := range related {
					fmt.Fprintf(out, "  %s\n", describeNode(g, rid))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&callees, "callees", false, "list callees instead")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the cached graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGraph(cmd.Context())
			if err != nil {
				return err
			}

			stats := g.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "files: %d  nodes: %d  edges: %d\n",
				stats.FileCount, stats.NodeCount, stats.EdgeCount)

			nodeKinds := make([]string, 0, len(stats.NodesByKind))
			for k := range stats.NodesByKind {
				nodeKinds = append(nodeKinds, string(k))
			}
			sort.Strings(nodeKinds)
			for _, k := range nodeKinds {
				fmt.Fprintf(out, "  node %-12s %d\n", k, stats.NodesByKind[cpg.NodeKind(k)])
			}

			edgeKinds := make([]string, 0, len(stats.EdgesByKind))
			for k := range stats.EdgesByKind {
				edgeKinds = append(edgeKinds, string(k))
			}
			sort.Strings(edgeKinds)
			for _, k := range edgeKinds {
				fmt.Fprintf(out, "  edge %-12s %d\n", k, stats.EdgesByKind[cpg.EdgeKind(k)])
			}
			return nil
		},
	}
}

func printPath(out io.Writer, g *cpg.Graph, path []string) {
	for i, id := range path {
		prefix := "  "
		if i > 0 {
			prefix = "  -> "
		}
		fmt.Fprintf(out, "%s%s\n", prefix, describeNode(g, id))
	}
}
