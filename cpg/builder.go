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
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/halyardlabs/codegraph/parser"
	"github.com/halyardlabs/codegraph/snapshot"
)

const (
	// contextCheckInterval controls how often long loops poll ctx.Err().
	contextCheckInterval = 100

	// DefaultMaxNodes bounds graph size to protect memory.
	DefaultMaxNodes = 1_000_000

	// DefaultMaxEdges bounds edge count to protect memory.
	DefaultMaxEdges = 5_000_000
)

// GraphStore persists a finished graph. Persistence failures are logged and
// never affect the build result.
type GraphStore interface {
	Save(ctx context.Context, g *Graph) error
}

// Builder constructs a code property graph from per-file snapshots.
//
// Thread Safety: a Builder is safe for concurrent Build calls; all build
// state, including the id counters, is local to one call.
type Builder struct {
	parser     parser.SourceParser
	fs         afero.Fs
	sourceRoot string
	store      GraphStore
	logger     *slog.Logger
	maxNodes   int
	maxEdges   int
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithParser sets the source parser used by the behavioral pass. Without
// one (or with parser.Unavailable) the builder emits structural fallback
// edges only.
func WithParser(p parser.SourceParser) BuilderOption {
	return func(b *Builder) { b.parser = p }
}

// WithSourceFS sets the file system and project root used for reading raw
// source and probing import paths.
func WithSourceFS(fs afero.Fs, root string) BuilderOption {
	return func(b *Builder) {
		if fs != nil {
			b.fs = fs
		}
		b.sourceRoot = root
	}
}

// WithStore sets the store the finished graph is persisted to.
func WithStore(s GraphStore) BuilderOption {
	return func(b *Builder) { b.store = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMaxNodes overrides the node limit.
func WithMaxNodes(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.maxNodes = n
		}
	}
}

// WithMaxEdges overrides the edge limit.
func WithMaxEdges(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.maxEdges = n
		}
	}
}

// NewBuilder creates a builder. By default it has no parser capability and
// reads source through the OS file system rooted at the working directory.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		parser:     parser.Unavailable{},
		fs:         afero.NewOsFs(),
		sourceRoot: ".",
		logger:     slog.Default(),
		maxNodes:   DefaultMaxNodes,
		maxEdges:   DefaultMaxEdges,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// importRef remembers a Pass-1 import placeholder for Pass-3 resolution.
type importRef struct {
	nodeID string
	imp    snapshot.Import
}

// buildState is the working set of one Build call. The id counters live
// here so concurrent builds never interleave ids.
type buildState struct {
	graph  *Graph
	result *BuildResult

	nextNode int
	nextEdge int

	// entities holds each file's Pass-1 entity nodes in declaration order,
	// excluding the file node and the import/export placeholders.
	entities   map[string][]*Node
	importRefs map[string][]importRef
	exports    map[string]map[string]string

	parserDown bool
	limitHit   bool
}

func (st *buildState) newNode(kind NodeKind, name, filePath string, loc *snapshot.Location, props map[string]any) *Node {
	if props == nil {
		props = map[string]any{}
	}
	n := &Node{
		ID:         fmt.Sprintf("node_%d", st.nextNode),
		Kind:       kind,
		Name:       name,
		FilePath:   filePath,
		Location:   loc,
		Properties: props,
	}
	st.nextNode++
	st.graph.addNode(n, filePath)
	return n
}

func (st *buildState) fail(filePath, stage string, err error) {
	st.result.FileErrors = append(st.result.FileErrors, FileError{
		FilePath: filePath,
		Stage:    stage,
		Err:      err,
		Message:  err.Error(),
	})
	if stage == StageStructure {
		st.result.Stats.FilesFailed++
	}
}

// Build constructs a graph from snapshots.
//
// Description:
//
//	Runs three passes: structural nodes and syntax/import/export edges per
//	file; behavioral call/data-flow/control-flow edges where a parser and
//	raw source are available (with a sequential control-flow fallback
//	otherwise); and cross-file import-to-export resolution. The build
//	degrades per file instead of failing: every problem short of a
//	cancelled context or an internal invariant violation is recorded in
//	the result's FileErrors and the build continues.
//
// Inputs:
//   - ctx: checked periodically; cancellation aborts with ErrBuildCancelled.
//   - snapshots: file path to snapshot. May be empty; the result is then an
//     empty graph.
//
// Outputs:
//   - *BuildResult: graph plus per-file errors and counters. Non-nil
//     whenever error is nil.
//   - error: ErrBuildCancelled, or an invariant violation (a defect).
//
// Side effects: if a store is configured, the finished graph is persisted;
// a persistence failure is logged at warn and does not affect the result.
func (b *Builder) Build(ctx context.Context, snapshots map[string]snapshot.Snapshot) (*BuildResult, error) {
	start := time.Now()
	ctx, span := startBuildSpan(ctx, len(snapshots))
	defer span.End()

	st := &buildState{
		graph:      NewGraph(),
		result:     &BuildResult{BuildID: uuid.NewString()},
		entities:   make(map[string][]*Node),
		importRefs: make(map[string][]importRef),
		exports:    make(map[string]map[string]string),
	}
	st.result.Graph = st.graph

	paths := make([]string, 0, len(snapshots))
	for p := range snapshots {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	// Pass 1: structural nodes and syntax/import/export edges.
	for i, p := range paths {
		if i%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				recordBuildMetrics(ctx, time.Since(start), 0, 0, false)
				return nil, fmt.Errorf("%w: %v", ErrBuildCancelled, err)
			}
		}
		snap := snapshots[p]
		if err := snap.Validate(p); err != nil {
			st.fail(p, StageStructure, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err))
			continue
		}
		b.addFileStructure(st, p, snap)
		st.result.Stats.FilesProcessed++
	}

	// Pass 2: behavioral edges, per file, with structural fallback.
	for i, p := range paths {
		if i%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				recordBuildMetrics(ctx, time.Since(start), 0, 0, false)
				return nil, fmt.Errorf("%w: %v", ErrBuildCancelled, err)
			}
		}
		if _, ok := st.graph.FileNodes[p]; !ok {
			continue
		}
		b.extractBehavior(ctx, st, p)
	}

	// Pass 3: cross-file import resolution.
	b.resolveImports(st)

	st.graph.Timestamp = time.Now().UnixMilli()

	if err := st.graph.Validate(); err != nil {
		recordBuildMetrics(ctx, time.Since(start), 0, 0, false)
		return nil, err
	}

	st.result.Incomplete = st.limitHit
	st.result.Stats.NodesCreated = st.graph.NodeCount()
	st.result.Stats.EdgesCreated = st.graph.EdgeCount()
	st.result.Stats.DurationMilli = time.Since(start).Milliseconds()
	st.result.Stats.DurationMicro = time.Since(start).Microseconds()

	setBuildSpanResult(span, st.graph.NodeCount(), st.graph.EdgeCount(), st.result.Incomplete)
	recordBuildMetrics(ctx, time.Since(start), st.graph.NodeCount(), st.graph.EdgeCount(), true)

	if b.store != nil {
		if err := b.store.Save(ctx, st.graph); err != nil {
			b.logger.Warn("graph not persisted", "build_id", st.result.BuildID, "error", err)
		}
	}

	return st.result, nil
}

// mapEntityKind maps a snapshot entity type onto a node kind. Anything that
// is not a function, class, or variable becomes an expression node.
func mapEntityKind(entityType string) NodeKind {
	switch entityType {
	case snapshot.EntityFunction:
		return NodeFunction
	case snapshot.EntityClass:
		return NodeClass
	case snapshot.EntityVariable:
		return NodeVariable
	default:
		return NodeExpression
	}
}

// addFileStructure runs Pass 1 for one file.
func (b *Builder) addFileStructure(st *buildState, filePath string, snap snapshot.Snapshot) {
	if st.graph.NodeCount()+len(snap.Nodes)+len(snap.Imports)+len(snap.Exports)+1 > b.maxNodes {
		st.fail(filePath, StageStructure, ErrMaxNodesExceeded)
		st.limitHit = true
		return
	}

	fileNode := st.newNode(NodeFile, filePath, filePath, nil, map[string]any{
		"hash":      snap.Hash,
		"timestamp": snap.Timestamp,
	})

	for _, ent := range snap.Nodes {
		props := map[string]any{}
		if ent.Signature != "" {
			props["signature"] = ent.Signature
		}
		if ent.ReturnType != "" {
			props["returnType"] = ent.ReturnType
		}
		if len(ent.Parameters) > 0 {
			props["parameters"] = ent.Parameters
		}
		loc := ent.Location
		n := st.newNode(mapEntityKind(ent.Type), ent.Name, filePath, &loc, props)
		st.entities[filePath] = append(st.entities[filePath], n)
		b.addEdge(st, fileNode.ID, n.ID, EdgeSyntax, map[string]any{})
	}

	for _, imp := range snap.Imports {
		if imp.IsExternal {
			continue
		}
		specs := imp.Specifiers
		if specs == nil {
			specs = []string{}
		}
		n := st.newNode(NodeExpression, "import:"+imp.Source, filePath, nil, map[string]any{
			"specifiers": specs,
			"isTypeOnly": imp.IsTypeOnly,
		})
		b.addEdge(st, fileNode.ID, n.ID, EdgeImport, map[string]any{"source": imp.Source})
		st.importRefs[filePath] = append(st.importRefs[filePath], importRef{nodeID: n.ID, imp: imp})
	}

	for _, exp := range snap.Exports {
		n := st.newNode(NodeExpression, "export:"+exp.Name, filePath, nil, map[string]any{
			"exportType": exp.Type,
			"isType":     exp.IsType,
		})
		b.addEdge(st, fileNode.ID, n.ID, EdgeExport, map[string]any{"name": exp.Name})
		if st.exports[filePath] == nil {
			st.exports[filePath] = make(map[string]string)
		}
		if _, dup := st.exports[filePath][exp.Name]; !dup {
			st.exports[filePath][exp.Name] = n.ID
		}
	}
}

// addEdge appends an edge, enforcing the edge limit and kind validity.
func (b *Builder) addEdge(st *buildState, source, target string, kind EdgeKind, props map[string]any) {
	if !kind.Valid() {
		b.logger.Error("dropping edge", "error", ErrInvalidEdgeKind, "kind", string(kind))
		return
	}
	if st.graph.EdgeCount() >= b.maxEdges {
		if !st.limitHit {
			b.logger.Warn("graph truncated", "error", ErrMaxEdgesExceeded, "max_edges", b.maxEdges)
		}
		st.limitHit = true
		return
	}
	if props == nil {
		props = map[string]any{}
	}
	st.graph.addEdge(&Edge{
		ID:         fmt.Sprintf("edge_%d", st.nextEdge),
		Source:     source,
		Target:     target,
		Kind:       kind,
		Properties: props,
	})
	st.nextEdge++
}

// extractBehavior runs Pass 2 for one file, falling back to sequential
// control-flow linking when no parse is possible or the parse yielded no
// control-flow pairs.
func (b *Builder) extractBehavior(ctx context.Context, st *buildState, filePath string) {
	ents := st.entities[filePath]
	outline := b.parseSource(ctx, st, filePath)

	flowPairs := 0
	if outline != nil {
		st.result.Stats.FilesParsed++
		b.addCallEdges(st, ents, outline.Calls)
		b.addDataFlowEdges(st, ents, outline.Variables)
		flowPairs = b.addControlFlowEdges(st, ents, outline.ControlFlow)
	}
	if outline == nil || flowPairs == 0 {
		b.addSequentialFlow(st, ents)
	}
}

// parseSource reads and parses one file's raw source. Every failure mode is
// a degradation, not an error: missing capability and missing source are
// logged at debug, a failed parse is recorded as a file error, and in all
// cases the caller falls back to structural edges.
func (b *Builder) parseSource(ctx context.Context, st *buildState, filePath string) *parser.Outline {
	if b.parser == nil || st.parserDown {
		return nil
	}

	content, err := afero.ReadFile(b.fs, b.sourcePath(filePath))
	if err != nil {
		b.logger.Debug("using structural fallback",
			"file", filePath, "error", fmt.Errorf("%w: %v", ErrSourceUnavailable, err))
		return nil
	}

	outline, err := b.parser.Parse(ctx, content, filePath)
	if err != nil {
		if errors.Is(err, parser.ErrUnavailable) {
			st.parserDown = true
			b.logger.Debug("source parser unavailable, behavioral pass skipped")
			return nil
		}
		st.fail(filePath, StageBehavior, err)
		return nil
	}
	return outline
}

// innermostFunction returns the function node whose range most tightly
// contains loc, or nil when the location is outside every function.
func innermostFunction(ents []*Node, loc snapshot.Location) *Node {
	var best *Node
	for _, ent := range ents {
		if ent.Kind != NodeFunction || ent.Location == nil {
			continue
		}
		if !ent.Location.Contains(loc) {
			continue
		}
		if best == nil || ent.Location.Start >= best.Location.Start {
			best = ent
		}
	}
	return best
}

// innermostEntity is innermostFunction without the kind restriction.
func innermostEntity(ents []*Node, loc snapshot.Location) *Node {
	var best *Node
	for _, ent := range ents {
		if ent.Location == nil || !ent.Location.Contains(loc) {
			continue
		}
		if best == nil || ent.Location.Start >= best.Location.Start {
			best = ent
		}
	}
	return best
}

// entityAt finds the node of the given kind declared at loc, preferring an
// exact range match over containment.
func entityAt(ents []*Node, kind NodeKind, loc snapshot.Location) *Node {
	var contained *Node
	for _, ent := range ents {
		if ent.Kind != kind || ent.Location == nil {
			continue
		}
		if ent.Location.Start == loc.Start && ent.Location.End == loc.End {
			return ent
		}
		if ent.Location.Contains(loc) && (contained == nil || ent.Location.Start >= contained.Location.Start) {
			contained = ent
		}
	}
	return contained
}

// addCallEdges resolves each recorded call site against every function node
// in the graph sharing the callee's name. Resolution is deliberately
// graph-wide and not scope-aware, so two unrelated functions with the same
// name both receive an edge.
func (b *Builder) addCallEdges(st *buildState, ents []*Node, calls []parser.Call) {
	for _, call := range calls {
		caller := innermostFunction(ents, call.Location)
		if caller == nil {
			continue
		}
		for _, target := range st.graph.NodesByName(call.Callee) {
			if target.Kind != NodeFunction {
				continue
			}
			b.addEdge(st, caller.ID, target.ID, EdgeCall, map[string]any{"callee": call.Callee})
			st.result.Stats.CallEdges++
		}
	}
}

// addDataFlowEdges links each recorded variable definition to every other
// variable node in the same file sharing its name.
func (b *Builder) addDataFlowEdges(st *buildState, ents []*Node, vars []parser.VariableDecl) {
	for _, v := range vars {
		def := entityAt(ents, NodeVariable, v.Location)
		if def == nil {
			continue
		}
		for _, other := range ents {
			if other.Kind != NodeVariable || other.ID == def.ID || other.Name != v.Name {
				continue
			}
			b.addEdge(st, def.ID, other.ID, EdgeDataFlow, map[string]any{"variable": v.Name})
			st.result.Stats.DataFlowEdges++
		}
	}
}

// addControlFlowEdges chains the owners of consecutive control-flow
// constructs in traversal order. Returns the number of consecutive pairs
// recorded, which the caller uses to decide whether the sequential fallback
// is still needed.
func (b *Builder) addControlFlowEdges(st *buildState, ents []*Node, flows []parser.FlowSite) int {
	type owner struct {
		node *Node
		kind string
	}
	var seq []owner
	for _, site := range flows {
		if n := innermostEntity(ents, site.Location); n != nil {
			seq = append(seq, owner{node: n, kind: site.Kind})
		}
	}

	for i := 1; i < len(seq); i++ {
		prev, cur := seq[i-1].node, seq[i].node
		if st.hasControlFlow(prev.ID, cur.ID) {
			continue
		}
		b.addEdge(st, prev.ID, cur.ID, EdgeControlFlow, map[string]any{"structureType": seq[i].kind})
		st.result.Stats.ControlFlowEdges++
	}

	if len(seq) < 2 {
		return 0
	}
	return len(seq) - 1
}

// addSequentialFlow is the structural fallback: chain consecutive function
// and class nodes of the file in declaration order.
func (b *Builder) addSequentialFlow(st *buildState, ents []*Node) {
	var prev *Node
	order := 0
	for _, ent := range ents {
		if ent.Kind != NodeFunction && ent.Kind != NodeClass {
			continue
		}
		if prev != nil && !st.hasControlFlow(prev.ID, ent.ID) {
			b.addEdge(st, prev.ID, ent.ID, EdgeControlFlow, map[string]any{"order": order})
			st.result.Stats.ControlFlowEdges++
		}
		order++
		prev = ent
	}
}

// hasControlFlow reports whether a control-flow edge already connects the
// two nodes, in either direction.
func (st *buildState) hasControlFlow(a, b string) bool {
	for _, e := range st.graph.outgoing[a] {
		if e.Kind == EdgeControlFlow && e.Target == b {
			return true
		}
	}
	for _, e := range st.graph.outgoing[b] {
		if e.Kind == EdgeControlFlow && e.Target == a {
			return true
		}
	}
	return false
}

// resolveImports runs Pass 3: for every non-external import, resolve its
// source to a project file and connect the import placeholder to the target
// file's export placeholders for each imported specifier. A miss is silent;
// external packages and broken imports look identical here.
func (b *Builder) resolveImports(st *buildState) {
	files := make([]string, 0, len(st.importRefs))
	for f := range st.importRefs {
		files = append(files, f)
	}
	sort.Strings(files)

	for _, filePath := range files {
		for _, ref := range st.importRefs[filePath] {
			resolved := b.resolveImportPath(filePath, ref.imp.Source)
			if resolved == "" {
				st.result.Stats.ImportsUnresolved++
				continue
			}
			st.result.Stats.ImportsResolved++
			exports := st.exports[resolved]
			for _, symbol := range ref.imp.Specifiers {
				if exportID, ok := exports[symbol]; ok {
					b.addEdge(st, ref.nodeID, exportID, EdgeImport, map[string]any{
						"source": ref.imp.Source,
						"symbol": symbol,
					})
				}
			}
		}
	}
}

// importProbeSuffixes is the probe order for import resolution: the bare
// path first, then extensions, then directory index files.
var importProbeSuffixes = []string{
	"", ".ts", ".tsx", ".js", ".jsx",
	"/index.ts", "/index.tsx", "/index.js", "/index.jsx",
}

// resolveImportPath maps an import source to a project file path. Relative
// sources resolve against the importing file's directory, bare sources
// against the project root. The first probe that exists on the backing file
// system wins; no probe succeeding means the import stays unresolved.
func (b *Builder) resolveImportPath(importingFile, source string) string {
	trimmed := source
	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx"} {
		if strings.HasSuffix(trimmed, ext) {
			trimmed = strings.TrimSuffix(trimmed, ext)
			break
		}
	}

	var base string
	if strings.HasPrefix(source, ".") {
		base = path.Join(path.Dir(filepath.ToSlash(importingFile)), trimmed)
	} else {
		base = path.Clean(trimmed)
	}

	for _, suffix := range importProbeSuffixes {
		candidate := base + suffix
		if ok, _ := afero.Exists(b.fs, b.sourcePath(candidate)); ok {
			return candidate
		}
	}
	return ""
}

// sourcePath maps a snapshot file key onto the backing file system.
func (b *Builder) sourcePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.sourceRoot, filepath.FromSlash(p))
}
