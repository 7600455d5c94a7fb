// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cpg

import "sort"

// DefaultMinClusterSize is the smallest cluster ClusterModules reports.
const DefaultMinClusterSize = 2

// DefaultImpactEdgeKinds are the edge kinds impact analysis follows when
// the caller specifies none.
var DefaultImpactEdgeKinds = []EdgeKind{EdgeDataFlow, EdgeCall, EdgeImport}

// Analyzer provides pure, read-only queries over a built graph. Every
// operation is a total function: unknown ids yield empty results, never
// errors. All methods are safe for concurrent use.
type Analyzer struct {
	graph *Graph
}

// NewAnalyzer wraps a graph. The graph must not be mutated afterward.
func NewAnalyzer(g *Graph) *Analyzer {
	return &Analyzer{graph: g}
}

// edgeKindSet turns an optional kind list into a filter; nil means all.
func edgeKindSet(kinds []EdgeKind) map[EdgeKind]bool {
	if len(kinds) == 0 {
		return nil
	}
	set := make(map[EdgeKind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}

// BFS performs a breadth-first, forward-edge traversal from all start ids
// simultaneously, following only the given edge kinds (all kinds when none
// are given). The returned set includes the start nodes themselves.
func (a *Analyzer) BFS(startIDs []string, edgeKinds ...EdgeKind) map[string]bool {
	follow := edgeKindSet(edgeKinds)
	visited := make(map[string]bool)

	queue := make([]string, 0, len(startIDs))
	for _, id := range startIDs {
		if _, ok := a.graph.Nodes[id]; ok && !visited[id] {
			visited[id] = true
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, e := range a.graph.OutEdges(current) {
			if follow != nil && !follow[e.Kind] {
				continue
			}
			if !visited[e.Target] {
				visited[e.Target] = true
				queue = append(queue, e.Target)
			}
		}
	}
	return visited
}

// DFS performs a depth-first traversal with the same visitation semantics
// as BFS; only the visit order differs. Implemented with an explicit stack
// so deep graphs cannot overflow the goroutine stack.
func (a *Analyzer) DFS(startIDs []string, edgeKinds ...EdgeKind) map[string]bool {
	follow := edgeKindSet(edgeKinds)
	visited := make(map[string]bool)

	stack := make([]string, 0, len(startIDs))
	for i := len(startIDs) - 1; i >= 0; i-- {
		if _, ok := a.graph.Nodes[startIDs[i]]; ok {
			stack = append(stack, startIDs[i])
		}
	}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[current] {
			continue
		}
		visited[current] = true
		out := a.graph.OutEdges(current)
		for i := len(out) - 1; i >= 0; i-- {
			e := out[i]
			if follow != nil && !follow[e.Kind] {
				continue
			}
			if !visited[e.Target] {
				stack = append(stack, e.Target)
			}
		}
	}
	return visited
}

// ReachabilityResult reports which targets a source set can reach, with one
// witness path per reached target in discovery order.
type ReachabilityResult struct {
	ReachableNodes map[string]bool
	Paths          [][]string
}

// Reachability runs a BFS from sourceIDs and records the traversal path the
// first time each target id is reached.
func (a *Analyzer) Reachability(sourceIDs, targetIDs []string, edgeKinds ...EdgeKind) ReachabilityResult {
	follow := edgeKindSet(edgeKinds)
	targets := make(map[string]bool, len(targetIDs))
	for _, id := range targetIDs {
		targets[id] = true
	}

	result := ReachabilityResult{ReachableNodes: make(map[string]bool)}
	visited := make(map[string]bool)
	parent := make(map[string]string)

	var queue []string
	for _, id := range sourceIDs {
		if _, ok := a.graph.Nodes[id]; ok && !visited[id] {
			visited[id] = true
			queue = append(queue, id)
			if targets[id] && !result.ReachableNodes[id] {
				result.ReachableNodes[id] = true
				result.Paths = append(result.Paths, []string{id})
			}
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, e := range a.graph.OutEdges(current) {
			if follow != nil && !follow[e.Kind] {
				continue
			}
			if visited[e.Target] {
				continue
			}
			visited[e.Target] = true
			parent[e.Target] = current
			queue = append(queue, e.Target)

			if targets[e.Target] && !result.ReachableNodes[e.Target] {
				result.ReachableNodes[e.Target] = true
				result.Paths = append(result.Paths, buildPath(parent, e.Target))
			}
		}
	}
	return result
}

// buildPath reconstructs the traversal path to id from the parent map.
func buildPath(parent map[string]string, id string) []string {
	var rev []string
	for current := id; ; {
		rev = append(rev, current)
		next, ok := parent[current]
		if !ok {
			break
		}
		current = next
	}
	path := make([]string, len(rev))
	for i, id := range rev {
		path[len(rev)-1-i] = id
	}
	return path
}

// ImpactResult describes the blast radius of a change set.
type ImpactResult struct {
	AffectedNodes []string `json:"affectedNodes"`
	AffectedFiles []string `json:"affectedFiles"`
	ImpactScore   float64  `json:"impactScore"`
}

// Impact computes everything reachable from the changed nodes over the
// given edge kinds (data-flow, call, and import by default). The score is
// the affected fraction of the whole graph, 0 for an empty graph.
func (a *Analyzer) Impact(changedIDs []string, edgeKinds ...EdgeKind) ImpactResult {
	if len(edgeKinds) == 0 {
		edgeKinds = DefaultImpactEdgeKinds
	}
	affected := a.BFS(changedIDs, edgeKinds...)

	result := ImpactResult{
		AffectedNodes: make([]string, 0, len(affected)),
		AffectedFiles: []string{},
	}
	fileSet := make(map[string]bool)
	for id := range affected {
		result.AffectedNodes = append(result.AffectedNodes, id)
		if n := a.graph.Nodes[id]; n != nil && !fileSet[n.FilePath] {
			fileSet[n.FilePath] = true
			result.AffectedFiles = append(result.AffectedFiles, n.FilePath)
		}
	}
	sort.Strings(result.AffectedNodes)
	sort.Strings(result.AffectedFiles)

	if total := a.graph.NodeCount(); total > 0 {
		result.ImpactScore = float64(len(affected)) / float64(total)
	}
	return result
}

// StronglyConnectedComponents finds call and import cycles using Kosaraju's
// algorithm: one DFS over the forward graph to compute finish order, one
// DFS over the reverse graph in decreasing finish order, each reverse tree
// forming a component. Components of a single node are not reported, even
// with self-loops, so the result lists genuine multi-node cycles only.
//
// Both passes use explicit stacks; recursion depth would otherwise scale
// with graph size.
func (a *Analyzer) StronglyConnectedComponents() [][]string {
	ids := a.graph.sortedNodeIDs()

	// First pass: forward DFS, record finish order.
	finish := make([]string, 0, len(ids))
	visited := make(map[string]bool, len(ids))
	type frame struct {
		id   string
		next int
	}
	for _, start := range ids {
		if visited[start] {
			continue
		}
		visited[start] = true
		stack := []frame{{id: start}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			out := a.graph.OutEdges(top.id)
			advanced := false
			for top.next < len(out) {
				target := out[top.next].Target
				top.next++
				if !visited[target] {
					visited[target] = true
					stack = append(stack, frame{id: target})
					advanced = true
					break
				}
			}
			if !advanced && top.next >= len(out) {
				finish = append(finish, top.id)
				stack = stack[:len(stack)-1]
			}
		}
	}

	// Second pass: reverse DFS in decreasing finish order.
	assigned := make(map[string]bool, len(ids))
	var components [][]string
	for i := len(finish) - 1; i >= 0; i-- {
		root := finish[i]
		if assigned[root] {
			continue
		}
		var component []string
		stack := []string{root}
		assigned[root] = true
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, current)
			for _, e := range a.graph.InEdges(current) {
				if !assigned[e.Source] {
					assigned[e.Source] = true
					stack = append(stack, e.Source)
				}
			}
		}
		if len(component) >= 2 {
			sort.Strings(component)
			components = append(components, component)
		}
	}
	return components
}

// ClusterModules groups each file's nodes, extended by nodes reached over
// non-syntax edges that belong to the same file. The extension never pulls
// in another file's nodes, so clusters only ever restate a file's own
// membership (possibly with duplicates); files below minClusterSize are
// omitted. minClusterSize defaults to DefaultMinClusterSize when zero or
// negative.
func (a *Analyzer) ClusterModules(minClusterSize int) map[string][]string {
	if minClusterSize <= 0 {
		minClusterSize = DefaultMinClusterSize
	}

	clusters := make(map[string][]string)
	for _, filePath := range a.graph.FilePaths() {
		base := a.graph.FileNodes[filePath]
		cluster := make([]string, len(base))
		copy(cluster, base)

		for _, id := range base {
			for _, e := range a.graph.OutEdges(id) {
				if e.Kind == EdgeSyntax {
					continue
				}
				if n := a.graph.Nodes[e.Target]; n != nil && n.FilePath == filePath {
					cluster = append(cluster, e.Target)
				}
			}
			for _, e := range a.graph.InEdges(id) {
				if e.Kind == EdgeSyntax {
					continue
				}
				if n := a.graph.Nodes[e.Source]; n != nil && n.FilePath == filePath {
					cluster = append(cluster, e.Source)
				}
			}
		}

		if len(cluster) >= minClusterSize {
			clusters[filePath] = cluster
		}
	}
	return clusters
}
