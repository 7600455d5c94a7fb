// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cpg

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halyardlabs/codegraph/parser"
	"github.com/halyardlabs/codegraph/snapshot"
)

// stubParser returns canned outlines per file path, standing in for the
// tree-sitter parsers so builder tests stay hermetic.
type stubParser struct {
	outlines map[string]*parser.Outline
}

func (s *stubParser) Parse(ctx context.Context, content []byte, filePath string) (*parser.Outline, error) {
	if o, ok := s.outlines[filePath]; ok {
		return o, nil
	}
	return &parser.Outline{}, nil
}

func (s *stubParser) Language() string { return "stub" }

func (s *stubParser) Extensions() []string { return []string{".ts"} }

// captureStore records Save calls and can be told to fail.
type captureStore struct {
	saved  []*Graph
	failed bool
}

func (c *captureStore) Save(ctx context.Context, g *Graph) error {
	if c.failed {
		return errors.New("disk full")
	}
	c.saved = append(c.saved, g)
	return nil
}

// twoFileProject returns the snapshots and file system for the canonical
// fixture: a.ts exports function foo, b.ts imports foo from ./a and has a
// function bar that calls foo().
func twoFileProject(t *testing.T) (map[string]snapshot.Snapshot, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "a.ts",
		[]byte("export function foo() { return 1 }\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "b.ts",
		[]byte("import { foo } from './a'\nfunction bar() { return foo() }\n"), 0o644))

	snapshots := map[string]snapshot.Snapshot{
		"a.ts": {
			Hash:      "hash-a",
			Timestamp: 100,
			Nodes: []snapshot.Entity{
				{Type: "function", Name: "foo", Location: snapshot.Location{Start: 7, End: 34, Line: 1}},
			},
			Exports: []snapshot.Export{{Name: "foo", Type: "function"}},
		},
		"b.ts": {
			Hash:      "hash-b",
			Timestamp: 200,
			Nodes: []snapshot.Entity{
				{Type: "function", Name: "bar", Location: snapshot.Location{Start: 26, End: 62, Line: 2}},
			},
			Imports: []snapshot.Import{
				{Source: "./a", Specifiers: []string{"foo"}},
			},
		},
	}
	return snapshots, fs
}

// twoFileOutlines pairs twoFileProject with behavioral facts: one call to
// foo from inside bar.
func twoFileOutlines() map[string]*parser.Outline {
	return map[string]*parser.Outline{
		"a.ts": {},
		"b.ts": {
			Calls: []parser.Call{
				{Callee: "foo", Location: snapshot.Location{Start: 50, End: 55, Line: 2}},
			},
		},
	}
}

func findNode(t *testing.T, g *Graph, kind NodeKind, name string) *Node {
	t.Helper()
	for _, n := range g.NodesByName(name) {
		if n.Kind == kind {
			return n
		}
	}
	t.Fatalf("no %s node named %q", kind, name)
	return nil
}

func edgesOfKind(g *Graph, kind EdgeKind) []*Edge {
	var out []*Edge
	for _, e := range g.Edges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestBuildEmptyInput(t *testing.T) {
	b := NewBuilder()
	result, err := b.Build(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, result.Graph)

	assert.Empty(t, result.Graph.Nodes)
	assert.Empty(t, result.Graph.Edges)
	assert.NoError(t, result.Graph.Validate())
	assert.True(t, result.Success())
}

func TestBuildStructuralNodes(t *testing.T) {
	fs := afero.NewMemMapFs()
	snapshots := map[string]snapshot.Snapshot{
		"src/app.ts": {
			Hash:      "abc",
			Timestamp: 42,
			Nodes: []snapshot.Entity{
				{Type: "function", Name: "run", Location: snapshot.Location{Start: 0, End: 50, Line: 1},
					Signature: "function run(): void", ReturnType: "void", Parameters: []string{"opts"}},
				{Type: "class", Name: "App", Location: snapshot.Location{Start: 60, End: 120, Line: 5}},
				{Type: "variable", Name: "cfg", Location: snapshot.Location{Start: 130, End: 140, Line: 9}},
				{Type: "interface", Name: "Opts", Location: snapshot.Location{Start: 150, End: 170, Line: 11}},
			},
			Imports: []snapshot.Import{
				{Source: "react", Specifiers: []string{"useState"}, IsExternal: true},
				{Source: "./util", Specifiers: []string{"helper"}, IsTypeOnly: true},
			},
			Exports: []snapshot.Export{{Name: "run", Type: "function"}},
		},
	}

	b := NewBuilder(WithSourceFS(fs, "."))
	result, err := b.Build(context.Background(), snapshots)
	require.NoError(t, err)
	g := result.Graph

	// file node carries the snapshot hash and timestamp
	fileNode := findNode(t, g, NodeFile, "src/app.ts")
	assert.Equal(t, "abc", fileNode.Properties["hash"])
	assert.Equal(t, int64(42), fileNode.Properties["timestamp"])

	// entity kind mapping, with interface demoted to expression
	assert.Equal(t, NodeFunction, findNode(t, g, NodeFunction, "run").Kind)
	assert.Equal(t, NodeClass, findNode(t, g, NodeClass, "App").Kind)
	assert.Equal(t, NodeVariable, findNode(t, g, NodeVariable, "cfg").Kind)
	assert.Equal(t, NodeExpression, findNode(t, g, NodeExpression, "Opts").Kind)

	run := findNode(t, g, NodeFunction, "run")
	assert.Equal(t, "function run(): void", run.Properties["signature"])
	assert.Equal(t, "void", run.Properties["returnType"])

	// the external import is recorded nowhere
	assert.Empty(t, g.NodesByName("import:react"))

	// the internal import gets a placeholder and an import edge from the file
	importNode := findNode(t, g, NodeExpression, "import:./util")
	assert.Equal(t, true, importNode.Properties["isTypeOnly"])
	var foundImportEdge bool
	for _, e := range edgesOfKind(g, EdgeImport) {
		if e.Source == fileNode.ID && e.Target == importNode.ID {
			foundImportEdge = true
			assert.Equal(t, "./util", e.Properties["source"])
		}
	}
	assert.True(t, foundImportEdge)

	// export placeholder and edge
	exportNode := findNode(t, g, NodeExpression, "export:run")
	assert.Equal(t, "function", exportNode.Properties["exportType"])
	exportEdges := edgesOfKind(g, EdgeExport)
	require.Len(t, exportEdges, 1)
	assert.Equal(t, fileNode.ID, exportEdges[0].Source)
	assert.Equal(t, exportNode.ID, exportEdges[0].Target)
	assert.Equal(t, "run", exportEdges[0].Properties["name"])

	// one syntax edge per entity
	assert.Len(t, edgesOfKind(g, EdgeSyntax), 4)

	assert.NoError(t, g.Validate())
}

func TestBuildEndToEndWithParser(t *testing.T) {
	snapshots, fs := twoFileProject(t)

	b := NewBuilder(
		WithParser(&stubParser{outlines: twoFileOutlines()}),
		WithSourceFS(fs, "."),
	)
	result, err := b.Build(context.Background(), snapshots)
	require.NoError(t, err)
	g := result.Graph
	require.NoError(t, g.Validate())

	foo := findNode(t, g, NodeFunction, "foo")
	bar := findNode(t, g, NodeFunction, "bar")
	importNode := findNode(t, g, NodeExpression, "import:./a")
	exportNode := findNode(t, g, NodeExpression, "export:foo")

	// cross-file import edge with the resolved symbol
	var importResolved bool
	for _, e := range edgesOfKind(g, EdgeImport) {
		if e.Source == importNode.ID && e.Target == exportNode.ID {
			importResolved = true
			assert.Equal(t, "foo", e.Properties["symbol"])
			assert.Equal(t, "./a", e.Properties["source"])
		}
	}
	assert.True(t, importResolved, "import:./a should connect to export:foo")

	// call edge bar -> foo
	var called bool
	for _, e := range edgesOfKind(g, EdgeCall) {
		if e.Source == bar.ID && e.Target == foo.ID {
			called = true
		}
	}
	assert.True(t, called, "bar should call foo")

	// caller query agrees
	analyzer := NewAnalyzer(g)
	assert.Equal(t, []string{bar.ID}, analyzer.Callers(foo.ID))

	assert.Equal(t, 1, result.Stats.ImportsResolved)
	assert.Equal(t, 0, result.Stats.ImportsUnresolved)
}

func TestBuildFallbackWithoutParser(t *testing.T) {
	snapshots, fs := twoFileProject(t)

	// give b.ts a second function so the sequential fallback has a pair
	bSnap := snapshots["b.ts"]
	bSnap.Nodes = append(bSnap.Nodes, snapshot.Entity{
		Type: "function", Name: "baz",
		Location: snapshot.Location{Start: 70, End: 90, Line: 4},
	})
	snapshots["b.ts"] = bSnap

	b := NewBuilder(
		WithParser(parser.Unavailable{}),
		WithSourceFS(fs, "."),
	)
	result, err := b.Build(context.Background(), snapshots)
	require.NoError(t, err)
	g := result.Graph

	// no behavioral pass: no call edges anywhere
	assert.Empty(t, edgesOfKind(g, EdgeCall))

	// sequential control-flow still links bar -> baz within b.ts
	bar := findNode(t, g, NodeFunction, "bar")
	baz := findNode(t, g, NodeFunction, "baz")
	var linked bool
	for _, e := range edgesOfKind(g, EdgeControlFlow) {
		if e.Source == bar.ID && e.Target == baz.ID {
			linked = true
			assert.Contains(t, e.Properties, "order")
		}
	}
	assert.True(t, linked, "fallback should chain bar -> baz")

	// import/export resolution is parser-independent
	importNode := findNode(t, g, NodeExpression, "import:./a")
	exportNode := findNode(t, g, NodeExpression, "export:foo")
	var importResolved bool
	for _, e := range edgesOfKind(g, EdgeImport) {
		if e.Source == importNode.ID && e.Target == exportNode.ID {
			importResolved = true
		}
	}
	assert.True(t, importResolved)
}

func TestBuildMissingSourceFallsBack(t *testing.T) {
	snapshots, _ := twoFileProject(t)

	// empty fs: sources unreadable, import probes all miss
	b := NewBuilder(
		WithParser(&stubParser{outlines: twoFileOutlines()}),
		WithSourceFS(afero.NewMemMapFs(), "."),
	)
	result, err := b.Build(context.Background(), snapshots)
	require.NoError(t, err)

	assert.Empty(t, edgesOfKind(result.Graph, EdgeCall))
	assert.Equal(t, 1, result.Stats.ImportsUnresolved)
	assert.NoError(t, result.Graph.Validate())
	// missing source is a degradation, not a file error
	assert.Empty(t, result.FileErrors)
}

func TestBuildShapeIsStableAcrossRebuilds(t *testing.T) {
	snapshots, fs := twoFileProject(t)

	shape := func(g *Graph) []string {
		var tuples []string
		for _, n := range g.Nodes {
			tuples = append(tuples, fmt.Sprintf("n|%s|%s|%s", n.Kind, n.Name, n.FilePath))
		}
		for _, e := range g.Edges {
			s, tgt := g.Nodes[e.Source], g.Nodes[e.Target]
			tuples = append(tuples, fmt.Sprintf("e|%s|%s|%s|%s|%s", s.Kind, tgt.Kind, s.Name, tgt.Name, e.Kind))
		}
		sort.Strings(tuples)
		return tuples
	}

	build := func() *Graph {
		b := NewBuilder(
			WithParser(&stubParser{outlines: twoFileOutlines()}),
			WithSourceFS(fs, "."),
		)
		result, err := b.Build(context.Background(), snapshots)
		require.NoError(t, err)
		return result.Graph
	}

	assert.Equal(t, shape(build()), shape(build()))
}

func TestBuildRejectsInvalidSnapshot(t *testing.T) {
	snapshots, fs := twoFileProject(t)
	snapshots["bad.ts"] = snapshot.Snapshot{
		Nodes: []snapshot.Entity{{Type: "function", Name: ""}},
	}

	b := NewBuilder(WithSourceFS(fs, "."))
	result, err := b.Build(context.Background(), snapshots)
	require.NoError(t, err)

	require.Len(t, result.FileErrors, 1)
	assert.Equal(t, "bad.ts", result.FileErrors[0].FilePath)
	assert.Equal(t, StageStructure, result.FileErrors[0].Stage)
	assert.ErrorIs(t, result.FileErrors[0].Err, ErrInvalidSnapshot)

	// the other files still built
	assert.NotEmpty(t, result.Graph.FileNodes["a.ts"])
	assert.NotEmpty(t, result.Graph.FileNodes["b.ts"])
	assert.Equal(t, 1, result.Stats.FilesFailed)
	assert.NoError(t, result.Graph.Validate())
}

func TestBuildCancelledContext(t *testing.T) {
	snapshots, fs := twoFileProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBuilder(WithSourceFS(fs, "."))
	_, err := b.Build(ctx, snapshots)
	assert.ErrorIs(t, err, ErrBuildCancelled)
}

func TestBuildPersistsThroughStore(t *testing.T) {
	snapshots, fs := twoFileProject(t)
	cs := &captureStore{}

	b := NewBuilder(WithSourceFS(fs, "."), WithStore(cs))
	result, err := b.Build(context.Background(), snapshots)
	require.NoError(t, err)
	require.Len(t, cs.saved, 1)
	assert.Same(t, result.Graph, cs.saved[0])
}

func TestBuildSurvivesStoreFailure(t *testing.T) {
	snapshots, fs := twoFileProject(t)
	cs := &captureStore{failed: true}

	b := NewBuilder(WithSourceFS(fs, "."), WithStore(cs))
	result, err := b.Build(context.Background(), snapshots)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Graph.Nodes)
	assert.True(t, result.Success())
}

// Call resolution matches by name across the whole graph, so two unrelated
// functions sharing a name both receive a call edge. That imprecision is a
// known property of the resolution strategy, not a bug in this test.
func TestCallResolutionIsGraphWide(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "x.ts", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "y.ts", []byte("y"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "z.ts", []byte("z"), 0o644))

	snapshots := map[string]snapshot.Snapshot{
		"x.ts": {Nodes: []snapshot.Entity{
			{Type: "function", Name: "render", Location: snapshot.Location{Start: 0, End: 20, Line: 1}},
		}},
		"y.ts": {Nodes: []snapshot.Entity{
			{Type: "function", Name: "render", Location: snapshot.Location{Start: 0, End: 20, Line: 1}},
		}},
		"z.ts": {Nodes: []snapshot.Entity{
			{Type: "function", Name: "page", Location: snapshot.Location{Start: 0, End: 40, Line: 1}},
		}},
	}
	outlines := map[string]*parser.Outline{
		"z.ts": {Calls: []parser.Call{
			{Callee: "render", Location: snapshot.Location{Start: 10, End: 18, Line: 1}},
		}},
	}

	b := NewBuilder(WithParser(&stubParser{outlines: outlines}), WithSourceFS(fs, "."))
	result, err := b.Build(context.Background(), snapshots)
	require.NoError(t, err)

	assert.Len(t, edgesOfKind(result.Graph, EdgeCall), 2,
		"one edge per same-named function, regardless of file")
}

func TestControlFlowPairsFromParser(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "f.ts", []byte("f"), 0o644))

	snapshots := map[string]snapshot.Snapshot{
		"f.ts": {Nodes: []snapshot.Entity{
			{Type: "function", Name: "first", Location: snapshot.Location{Start: 0, End: 100, Line: 1}},
			{Type: "function", Name: "second", Location: snapshot.Location{Start: 110, End: 200, Line: 10}},
		}},
	}
	outlines := map[string]*parser.Outline{
		"f.ts": {ControlFlow: []parser.FlowSite{
			{Kind: parser.FlowIf, Location: snapshot.Location{Start: 10, End: 30, Line: 2}},
			{Kind: parser.FlowFor, Location: snapshot.Location{Start: 120, End: 150, Line: 11}},
			{Kind: parser.FlowWhile, Location: snapshot.Location{Start: 160, End: 190, Line: 14}},
		}},
	}

	b := NewBuilder(WithParser(&stubParser{outlines: outlines}), WithSourceFS(fs, "."))
	result, err := b.Build(context.Background(), snapshots)
	require.NoError(t, err)
	g := result.Graph

	first := findNode(t, g, NodeFunction, "first")
	second := findNode(t, g, NodeFunction, "second")

	cf := edgesOfKind(g, EdgeControlFlow)
	// if->for crosses first->second; for->while pairs second with itself
	require.Len(t, cf, 2)
	assert.Equal(t, first.ID, cf[0].Source)
	assert.Equal(t, second.ID, cf[0].Target)
	assert.Equal(t, parser.FlowFor, cf[0].Properties["structureType"])
	assert.Equal(t, second.ID, cf[1].Source)
	assert.Equal(t, second.ID, cf[1].Target)
	assert.Equal(t, parser.FlowWhile, cf[1].Properties["structureType"])

	// pairs were recorded, so no sequential {order} fallback ran
	for _, e := range cf {
		assert.NotContains(t, e.Properties, "order")
	}
}

func TestDataFlowEdges(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "v.ts", []byte("v"), 0o644))

	snapshots := map[string]snapshot.Snapshot{
		"v.ts": {Nodes: []snapshot.Entity{
			{Type: "variable", Name: "total", Location: snapshot.Location{Start: 0, End: 15, Line: 1}},
			{Type: "variable", Name: "total", Location: snapshot.Location{Start: 20, End: 35, Line: 2}},
			{Type: "variable", Name: "other", Location: snapshot.Location{Start: 40, End: 55, Line: 3}},
		}},
	}
	outlines := map[string]*parser.Outline{
		"v.ts": {Variables: []parser.VariableDecl{
			{Name: "total", Location: snapshot.Location{Start: 0, End: 15, Line: 1}},
		}},
	}

	b := NewBuilder(WithParser(&stubParser{outlines: outlines}), WithSourceFS(fs, "."))
	result, err := b.Build(context.Background(), snapshots)
	require.NoError(t, err)
	g := result.Graph

	df := edgesOfKind(g, EdgeDataFlow)
	require.Len(t, df, 1)
	assert.Equal(t, "total", df[0].Properties["variable"])

	def := g.Nodes[df[0].Source]
	use := g.Nodes[df[0].Target]
	assert.Equal(t, 1, def.Location.Line)
	assert.Equal(t, 2, use.Location.Line)
}

func TestImportResolutionProbesExtensions(t *testing.T) {
	fs := afero.NewMemMapFs()
	// only the .tsx variant exists on disk
	require.NoError(t, afero.WriteFile(fs, "widget.tsx", []byte("w"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "page.ts", []byte("p"), 0o644))

	snapshots := map[string]snapshot.Snapshot{
		"widget.tsx": {
			Exports: []snapshot.Export{{Name: "Widget", Type: "function"}},
		},
		"page.ts": {
			Imports: []snapshot.Import{
				// extension in the source is stripped before probing
				{Source: "./widget.js", Specifiers: []string{"Widget"}},
			},
		},
	}

	b := NewBuilder(WithSourceFS(fs, "."))
	result, err := b.Build(context.Background(), snapshots)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.ImportsResolved)
	importNode := findNode(t, result.Graph, NodeExpression, "import:./widget.js")
	exportNode := findNode(t, result.Graph, NodeExpression, "export:Widget")
	var connected bool
	for _, e := range edgesOfKind(result.Graph, EdgeImport) {
		if e.Source == importNode.ID && e.Target == exportNode.ID {
			connected = true
		}
	}
	assert.True(t, connected)
}

func TestImportResolutionIndexFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "app.ts", []byte("a"), 0o644))
	// lib exists only as a directory with an index file; the bare-path
	// probe matches the directory itself first, so resolution lands on
	// "lib", which holds no exports, and no cross-file edge appears
	require.NoError(t, afero.WriteFile(fs, "lib/index.ts", []byte("i"), 0o644))

	snapshots := map[string]snapshot.Snapshot{
		"app.ts": {
			Imports: []snapshot.Import{{Source: "./lib", Specifiers: []string{"x"}}},
		},
		"lib/index.ts": {
			Exports: []snapshot.Export{{Name: "x", Type: "variable"}},
		},
	}

	b := NewBuilder(WithSourceFS(fs, "."))
	result, err := b.Build(context.Background(), snapshots)
	require.NoError(t, err)

	importNode := findNode(t, result.Graph, NodeExpression, "import:./lib")
	for _, e := range edgesOfKind(result.Graph, EdgeImport) {
		if e.Source == importNode.ID {
			target := result.Graph.Nodes[e.Target]
			assert.NotEqual(t, "export:x", target.Name,
				"directory probe wins over index file, so the symbol stays unlinked")
		}
	}
}

func TestUnresolvableImportIsSilent(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "solo.ts", []byte("s"), 0o644))

	snapshots := map[string]snapshot.Snapshot{
		"solo.ts": {
			Imports: []snapshot.Import{{Source: "./missing", Specifiers: []string{"gone"}}},
		},
	}

	b := NewBuilder(WithSourceFS(fs, "."))
	result, err := b.Build(context.Background(), snapshots)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.ImportsUnresolved)
	assert.Empty(t, result.FileErrors)
	// the placeholder node still exists with its file-to-placeholder edge
	findNode(t, result.Graph, NodeExpression, "import:./missing")
	assert.Len(t, edgesOfKind(result.Graph, EdgeImport), 1)
}

func TestFileNodesPartition(t *testing.T) {
	snapshots, fs := twoFileProject(t)

	b := NewBuilder(
		WithParser(&stubParser{outlines: twoFileOutlines()}),
		WithSourceFS(fs, "."),
	)
	result, err := b.Build(context.Background(), snapshots)
	require.NoError(t, err)
	g := result.Graph

	seen := make(map[string]bool)
	total := 0
	for _, ids := range g.FileNodes {
		for _, id := range ids {
			assert.False(t, seen[id], "node %s listed under two files", id)
			seen[id] = true
			total++
			assert.Contains(t, g.Nodes, id)
		}
	}
	assert.Equal(t, len(g.Nodes), total)
}

func TestBuildIDsAreBuildLocal(t *testing.T) {
	snapshots, fs := twoFileProject(t)

	b := NewBuilder(WithSourceFS(fs, "."))
	r1, err := b.Build(context.Background(), snapshots)
	require.NoError(t, err)
	r2, err := b.Build(context.Background(), snapshots)
	require.NoError(t, err)

	// each build restarts its counter; node_0 exists in both graphs
	assert.Contains(t, r1.Graph.Nodes, "node_0")
	assert.Contains(t, r2.Graph.Nodes, "node_0")
	assert.NotEqual(t, r1.BuildID, r2.BuildID)
}
