// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cpg

// DefaultMaxDepth bounds AllPaths enumeration when the caller passes no
// limit. Path enumeration is exponential in the worst case; the depth bound
// is the only latency control this layer offers.
const DefaultMaxDepth = 10

// ShortestPath returns an unweighted shortest path from source to target
// over forward edges of every kind, as a node id sequence including both
// endpoints. Returns nil when either id is unknown or no path exists;
// source equal to target yields a single-element path.
func (a *Analyzer) ShortestPath(source, target string) []string {
	if _, ok := a.graph.Nodes[source]; !ok {
		return nil
	}
	if _, ok := a.graph.Nodes[target]; !ok {
		return nil
	}
	if source == target {
		return []string{source}
	}

	visited := map[string]bool{source: true}
	parent := make(map[string]string)
	queue := []string{source}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, e := range a.graph.OutEdges(current) {
			if visited[e.Target] {
				continue
			}
			visited[e.Target] = true
			parent[e.Target] = current
			if e.Target == target {
				return buildPath(parent, target)
			}
			queue = append(queue, e.Target)
		}
	}
	return nil
}

// AllPaths enumerates every simple path (no repeated node) from source to
// target up to maxDepth hops. maxDepth defaults to DefaultMaxDepth when
// zero or negative.
func (a *Analyzer) AllPaths(source, target string, maxDepth int) [][]string {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if _, ok := a.graph.Nodes[source]; !ok {
		return nil
	}
	if _, ok := a.graph.Nodes[target]; !ok {
		return nil
	}

	var paths [][]string
	onPath := map[string]bool{source: true}
	current := []string{source}

	var walk func(id string)
	walk = func(id string) {
		if id == target {
			found := make([]string, len(current))
			copy(found, current)
			paths = append(paths, found)
			return
		}
		if len(current)-1 >= maxDepth {
			return
		}
		for _, e := range a.graph.OutEdges(id) {
			if onPath[e.Target] {
				continue
			}
			onPath[e.Target] = true
			current = append(current, e.Target)
			walk(e.Target)
			current = current[:len(current)-1]
			delete(onPath, e.Target)
		}
	}
	walk(source)
	return paths
}

// Callers returns the sources of every call edge targeting the function.
func (a *Analyzer) Callers(functionID string) []string {
	var callers []string
	for _, e := range a.graph.InEdges(functionID) {
		if e.Kind == EdgeCall {
			callers = append(callers, e.Source)
		}
	}
	return callers
}

// Callees returns the targets of every call edge leaving the function.
func (a *Analyzer) Callees(functionID string) []string {
	var callees []string
	for _, e := range a.graph.OutEdges(functionID) {
		if e.Kind == EdgeCall {
			callees = append(callees, e.Target)
		}
	}
	return callees
}

// VariableUsages returns the nodes a variable's value flows to: the targets
// of data-flow edges leaving the definition node.
func (a *Analyzer) VariableUsages(variableID string) []string {
	var usages []string
	for _, e := range a.graph.OutEdges(variableID) {
		if e.Kind == EdgeDataFlow {
			usages = append(usages, e.Target)
		}
	}
	return usages
}

// VariableDefinitions returns the definition nodes flowing into a usage:
// the sources of data-flow edges entering the node.
func (a *Analyzer) VariableDefinitions(variableID string) []string {
	var defs []string
	for _, e := range a.graph.InEdges(variableID) {
		if e.Kind == EdgeDataFlow {
			defs = append(defs, e.Source)
		}
	}
	return defs
}
