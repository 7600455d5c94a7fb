// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cpg

import (
	"fmt"
	"sort"

	"github.com/halyardlabs/codegraph/snapshot"
)

// NodeKind classifies a graph node. The kind strings are the persisted
// wire values.
type NodeKind string

const (
	NodeFile       NodeKind = "file"
	NodeFunction   NodeKind = "function"
	NodeClass      NodeKind = "class"
	NodeVariable   NodeKind = "variable"
	NodeExpression NodeKind = "expression"
)

// Valid reports whether the kind is one of the defined node kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case NodeFile, NodeFunction, NodeClass, NodeVariable, NodeExpression:
		return true
	}
	return false
}

// EdgeKind classifies a directed graph edge. The kind strings are the
// persisted wire values.
type EdgeKind string

const (
	EdgeSyntax      EdgeKind = "syntax"
	EdgeImport      EdgeKind = "import"
	EdgeExport      EdgeKind = "export"
	EdgeCall        EdgeKind = "call"
	EdgeDataFlow    EdgeKind = "data-flow"
	EdgeControlFlow EdgeKind = "control-flow"
)

// Valid reports whether the kind is one of the defined edge kinds.
func (k EdgeKind) Valid() bool {
	switch k {
	case EdgeSyntax, EdgeImport, EdgeExport, EdgeCall, EdgeDataFlow, EdgeControlFlow:
		return true
	}
	return false
}

// Node is one code entity in the graph. Ids are build-local: unique within
// one graph, not stable across rebuilds.
type Node struct {
	ID         string             `json:"id"`
	Kind       NodeKind           `json:"type"`
	Name       string             `json:"name"`
	FilePath   string             `json:"filePath"`
	Location   *snapshot.Location `json:"location,omitempty"`
	Properties map[string]any     `json:"properties"`
}

// Edge is one directed relationship between two nodes. Multiple edges
// between the same pair with different kinds are distinct facts.
type Edge struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Kind       EdgeKind       `json:"type"`
	Properties map[string]any `json:"properties"`
}

// Graph is the code property graph: flat node and edge collections plus the
// per-file node index. Nodes and edges reference each other by id only.
//
// A graph is produced wholesale by one Builder.Build call and is immutable
// afterward; it is safe to share across concurrent readers without locking.
// The unexported adjacency indexes are derived data; call Reindex after
// populating the exported fields by hand (e.g. after JSON decoding).
type Graph struct {
	Nodes     map[string]*Node    `json:"nodes"`
	Edges     []*Edge             `json:"edges"`
	FileNodes map[string][]string `json:"fileNodes"`
	Timestamp int64               `json:"timestamp"`

	outgoing    map[string][]*Edge
	incoming    map[string][]*Edge
	nodesByName map[string][]*Node
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:       make(map[string]*Node),
		Edges:       make([]*Edge, 0),
		FileNodes:   make(map[string][]string),
		outgoing:    make(map[string][]*Edge),
		incoming:    make(map[string][]*Edge),
		nodesByName: make(map[string][]*Node),
	}
}

// addNode inserts a node and registers it under its originating file.
// Builder-only; the graph is read-only once published.
func (g *Graph) addNode(n *Node, filePath string) {
	g.Nodes[n.ID] = n
	g.FileNodes[filePath] = append(g.FileNodes[filePath], n.ID)
	g.nodesByName[n.Name] = append(g.nodesByName[n.Name], n)
}

// addEdge inserts an edge and updates the adjacency indexes. Builder-only.
func (g *Graph) addEdge(e *Edge) {
	g.Edges = append(g.Edges, e)
	g.outgoing[e.Source] = append(g.outgoing[e.Source], e)
	g.incoming[e.Target] = append(g.incoming[e.Target], e)
}

// Reindex rebuilds the derived adjacency and name indexes from the exported
// fields. Must be called after decoding a persisted graph.
func (g *Graph) Reindex() {
	g.outgoing = make(map[string][]*Edge, len(g.Nodes))
	g.incoming = make(map[string][]*Edge, len(g.Nodes))
	g.nodesByName = make(map[string][]*Node)
	if g.Nodes == nil {
		g.Nodes = make(map[string]*Node)
	}
	if g.FileNodes == nil {
		g.FileNodes = make(map[string][]string)
	}
	for _, n := range g.Nodes {
		g.nodesByName[n.Name] = append(g.nodesByName[n.Name], n)
	}
	for _, list := range g.nodesByName {
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	for _, e := range g.Edges {
		g.outgoing[e.Source] = append(g.outgoing[e.Source], e)
		g.incoming[e.Target] = append(g.incoming[e.Target], e)
	}
}

// OutEdges returns the edges leaving a node. The returned slice is shared;
// callers must not modify it.
func (g *Graph) OutEdges(id string) []*Edge { return g.outgoing[id] }

// InEdges returns the edges entering a node. The returned slice is shared;
// callers must not modify it.
func (g *Graph) InEdges(id string) []*Edge { return g.incoming[id] }

// NodesByName returns the nodes with the given name, across all files.
func (g *Graph) NodesByName(name string) []*Node { return g.nodesByName[name] }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.Nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.Edges) }

// FilePaths returns the graph's file keys in sorted order.
func (g *Graph) FilePaths() []string {
	paths := make([]string, 0, len(g.FileNodes))
	for p := range g.FileNodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// sortedNodeIDs returns every node id in sorted order, for deterministic
// iteration in the analyzer.
func (g *Graph) sortedNodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks the graph's structural invariants.
//
// Description:
//
//	Verifies referential integrity (every edge endpoint exists) and the
//	file partition (every node id appears under exactly one file key).
//	A violation indicates a builder defect, never recoverable input; the
//	builder treats it as a hard error.
func (g *Graph) Validate() error {
	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.Source]; !ok {
			return fmt.Errorf("edge %s: %w: source %s", e.ID, ErrDanglingEdge, e.Source)
		}
		if _, ok := g.Nodes[e.Target]; !ok {
			return fmt.Errorf("edge %s: %w: target %s", e.ID, ErrDanglingEdge, e.Target)
		}
	}

	seen := make(map[string]string, len(g.Nodes))
	total := 0
	for filePath, ids := range g.FileNodes {
		for _, id := range ids {
			if _, ok := g.Nodes[id]; !ok {
				return fmt.Errorf("file %s: %w: node %s not in graph", filePath, ErrPartitionViolation, id)
			}
			if prev, dup := seen[id]; dup {
				return fmt.Errorf("node %s: %w: listed under %s and %s", id, ErrPartitionViolation, prev, filePath)
			}
			seen[id] = filePath
			total++
		}
	}
	if total != len(g.Nodes) {
		return fmt.Errorf("%w: fileNodes covers %d of %d nodes", ErrPartitionViolation, total, len(g.Nodes))
	}
	return nil
}

// GraphStats summarizes a graph for reporting.
type GraphStats struct {
	NodeCount   int              `json:"nodeCount"`
	EdgeCount   int              `json:"edgeCount"`
	FileCount   int              `json:"fileCount"`
	NodesByKind map[NodeKind]int `json:"nodesByKind"`
	EdgesByKind map[EdgeKind]int `json:"edgesByKind"`
	Timestamp   int64            `json:"timestamp"`
}

// Stats computes summary statistics.
func (g *Graph) Stats() GraphStats {
	s := GraphStats{
		NodeCount:   len(g.Nodes),
		EdgeCount:   len(g.Edges),
		FileCount:   len(g.FileNodes),
		NodesByKind: make(map[NodeKind]int),
		EdgesByKind: make(map[EdgeKind]int),
		Timestamp:   g.Timestamp,
	}
	for _, n := range g.Nodes {
		s.NodesByKind[n.Kind]++
	}
	for _, e := range g.Edges {
		s.EdgesByKind[e.Kind]++
	}
	return s
}
