// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package parser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/halyardlabs/codegraph/snapshot"
)

// DefaultMaxFileSize is the largest source file a parser will accept.
const DefaultMaxFileSize = 5 * 1024 * 1024

// TypeScriptParser parses TypeScript and TSX sources via tree-sitter.
//
// Thread Safety: safe for concurrent use; a fresh tree-sitter parser is
// created per Parse call because sitter.Parser is not concurrency-safe.
type TypeScriptParser struct {
	maxFileSize int
	logger      *slog.Logger
}

// TypeScriptOption configures a TypeScriptParser.
type TypeScriptOption func(*TypeScriptParser)

// WithTypeScriptMaxFileSize overrides the file size limit.
func WithTypeScriptMaxFileSize(n int) TypeScriptOption {
	return func(p *TypeScriptParser) {
		if n > 0 {
			p.maxFileSize = n
		}
	}
}

// WithTypeScriptLogger sets the logger.
func WithTypeScriptLogger(l *slog.Logger) TypeScriptOption {
	return func(p *TypeScriptParser) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewTypeScriptParser creates a TypeScript parser with default limits.
func NewTypeScriptParser(opts ...TypeScriptOption) *TypeScriptParser {
	p := &TypeScriptParser{
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Language returns "typescript".
func (p *TypeScriptParser) Language() string { return "typescript" }

// Extensions returns the extensions handled by this parser.
func (p *TypeScriptParser) Extensions() []string { return []string{".ts", ".tsx"} }

// Parse extracts an outline from TypeScript source.
//
// Description:
//
//	Runs a single tree-sitter parse and one tree walk, collecting declared
//	entities, imports, exports, bare-identifier call sites, simple variable
//	declarations, and control-flow constructs. A tree containing syntax
//	errors is still walked; tree-sitter produces partial trees and partial
//	outlines are more useful than none.
//
// Errors:
//   - ErrEmptyContent, ErrFileTooLarge, ErrInvalidUTF8 on rejected input.
//   - ErrParseFailed if tree-sitter returns no tree.
//   - ctx.Err() if the context is done.
func (p *TypeScriptParser) Parse(ctx context.Context, content []byte, filePath string) (*Outline, error) {
	lang := typescript.GetLanguage()
	if strings.HasSuffix(strings.ToLower(filePath), ".tsx") {
		lang = tsx.GetLanguage()
	}
	return runParse(ctx, content, filePath, p.Language(), lang, p.maxFileSize, p.logger)
}

// runParse is the shared parse pipeline for the tree-sitter backed parsers.
func runParse(ctx context.Context, content []byte, filePath, language string, lang *sitter.Language, maxFileSize int, logger *slog.Logger) (*Outline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%s: %w", filePath, ErrEmptyContent)
	}
	if len(content) > maxFileSize {
		return nil, fmt.Errorf("%s: %d bytes: %w", filePath, len(content), ErrFileTooLarge)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%s: %w", filePath, ErrInvalidUTF8)
	}

	ctx, span := startParseSpan(ctx, language, filePath, len(content))
	defer span.End()

	start := time.Now()
	success := false
	defer func() { recordParseMetrics(ctx, language, time.Since(start), success) }()

	sum := sha256.Sum256(content)

	sp := sitter.NewParser()
	sp.SetLanguage(lang)
	tree, err := sp.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("%s: %w", filePath, ErrParseFailed)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		logger.Debug("source contains syntax errors, extracting partial outline",
			"file", filePath, "language", language)
	}

	ex := &extractor{content: content, out: &Outline{
		Language: language,
		Hash:     hex.EncodeToString(sum[:]),
	}}
	ex.walk(root)
	success = true
	return ex.out, nil
}

// extractor performs the single tree walk shared by the TypeScript and
// JavaScript parsers. The TypeScript grammar is a superset of the
// JavaScript one for every node type inspected here.
type extractor struct {
	content []byte
	out     *Outline
}

func (ex *extractor) walk(n *sitter.Node) {
	switch n.Type() {
	case "import_statement":
		ex.processImport(n)
	case "export_statement":
		ex.processExport(n)
	case "function_declaration", "generator_function_declaration", "function_signature":
		ex.addFunctionEntity(n)
	case "method_definition":
		ex.addFunctionEntity(n)
	case "class_declaration", "abstract_class_declaration":
		ex.addNamedEntity(n, "class")
	case "interface_declaration":
		ex.addNamedEntity(n, "interface")
	case "type_alias_declaration":
		ex.addNamedEntity(n, "type")
	case "enum_declaration":
		ex.addNamedEntity(n, "enum")
	case "variable_declarator":
		ex.processDeclarator(n)
	case "call_expression":
		ex.processCall(n)
	case "if_statement":
		ex.addFlow(n, FlowIf)
	case "for_statement":
		ex.addFlow(n, FlowFor)
	case "for_in_statement":
		ex.addFlow(n, forInKind(n, ex.content))
	case "while_statement":
		ex.addFlow(n, FlowWhile)
	case "do_statement":
		ex.addFlow(n, FlowDoWhile)
	case "switch_statement":
		ex.addFlow(n, FlowSwitch)
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		ex.walk(n.Child(i))
	}
}

// forInKind distinguishes for-in from for-of via the operator field.
func forInKind(n *sitter.Node, content []byte) string {
	if op := n.ChildByFieldName("operator"); op != nil && op.Content(content) == "of" {
		return FlowForOf
	}
	return FlowForIn
}

func (ex *extractor) loc(n *sitter.Node) snapshot.Location {
	return snapshot.Location{
		Start: int(n.StartByte()),
		End:   int(n.EndByte()),
		Line:  int(n.StartPoint().Row) + 1,
	}
}

func (ex *extractor) addFlow(n *sitter.Node, kind string) {
	ex.out.ControlFlow = append(ex.out.ControlFlow, FlowSite{Kind: kind, Location: ex.loc(n)})
}

func (ex *extractor) processCall(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" {
		return
	}
	ex.out.Calls = append(ex.out.Calls, Call{
		Callee:   fn.Content(ex.content),
		Location: ex.loc(n),
	})
}

func (ex *extractor) addFunctionEntity(n *sitter.Node) {
	name := ex.fieldContent(n, "name")
	if name == "" {
		return
	}
	ex.out.Entities = append(ex.out.Entities, snapshot.Entity{
		Type:       snapshot.EntityFunction,
		Name:       name,
		Location:   ex.loc(n),
		Signature:  ex.signature(n),
		ReturnType: ex.returnType(n),
		Parameters: ex.parameters(n),
	})
}

func (ex *extractor) addNamedEntity(n *sitter.Node, entityType string) {
	name := ex.fieldContent(n, "name")
	if name == "" {
		return
	}
	ex.out.Entities = append(ex.out.Entities, snapshot.Entity{
		Type:      entityType,
		Name:      name,
		Location:  ex.loc(n),
		Signature: ex.signature(n),
	})
}

// processDeclarator records a variable entity for declarators with a simple
// identifier name. Declarators whose value is a function become function
// entities instead; destructuring patterns are skipped.
func (ex *extractor) processDeclarator(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil || nameNode.Type() != "identifier" {
		return
	}
	name := nameNode.Content(ex.content)

	if value := n.ChildByFieldName("value"); value != nil {
		switch value.Type() {
		case "arrow_function", "function", "function_expression", "generator_function":
			ex.out.Entities = append(ex.out.Entities, snapshot.Entity{
				Type:       snapshot.EntityFunction,
				Name:       name,
				Location:   ex.loc(n),
				Signature:  ex.signature(value),
				Parameters: ex.parameters(value),
			})
			return
		}
	}

	loc := ex.loc(n)
	ex.out.Entities = append(ex.out.Entities, snapshot.Entity{
		Type:      snapshot.EntityVariable,
		Name:      name,
		Location:  loc,
		Signature: ex.signature(n),
	})
	ex.out.Variables = append(ex.out.Variables, VariableDecl{Name: name, Location: loc})
}

func (ex *extractor) processImport(n *sitter.Node) {
	source := ex.importSource(n)
	if source == "" {
		return
	}

	imp := snapshot.Import{
		Source:     source,
		IsExternal: !strings.HasPrefix(source, "."),
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "type":
			// "import type { ... }"
			imp.IsTypeOnly = true
		case "import_clause":
			imp.Specifiers = append(imp.Specifiers, ex.clauseSpecifiers(child)...)
		}
	}

	ex.out.Imports = append(ex.out.Imports, imp)
}

// clauseSpecifiers collects the imported names from an import clause:
// default imports, namespace imports, and named imports. Named imports use
// the original exported name, not the local alias, so cross-file export
// matching sees the name the exporting file declared.
func (ex *extractor) clauseSpecifiers(clause *sitter.Node) []string {
	var specs []string
	for i := 0; i < int(clause.ChildCount()); i++ {
		child := clause.Child(i)
		switch child.Type() {
		case "identifier":
			specs = append(specs, child.Content(ex.content))
		case "namespace_import":
			for j := 0; j < int(child.ChildCount()); j++ {
				if id := child.Child(j); id.Type() == "identifier" {
					specs = append(specs, id.Content(ex.content))
				}
			}
		case "named_imports":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				if name := ex.fieldContent(spec, "name"); name != "" {
					specs = append(specs, name)
				}
			}
		}
	}
	return specs
}

func (ex *extractor) processExport(n *sitter.Node) {
	// "export { a, b as c }" and re-exports.
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() != "export_clause" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			spec := child.NamedChild(j)
			if spec.Type() != "export_specifier" {
				continue
			}
			name := ex.fieldContent(spec, "alias")
			if name == "" {
				name = ex.fieldContent(spec, "name")
			}
			if name != "" {
				ex.out.Exports = append(ex.out.Exports, snapshot.Export{Name: name, Type: "named"})
			}
		}
		return
	}

	// "export default ..."
	isDefault := false
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "default" {
			isDefault = true
			break
		}
	}

	decl := n.ChildByFieldName("declaration")
	if decl == nil {
		if isDefault {
			ex.out.Exports = append(ex.out.Exports, snapshot.Export{Name: "default", Type: "default"})
		}
		return
	}

	exportType, isType := declExportType(decl.Type())
	switch decl.Type() {
	case "lexical_declaration", "variable_declaration":
		for i := 0; i < int(decl.NamedChildCount()); i++ {
			d := decl.NamedChild(i)
			if d.Type() != "variable_declarator" {
				continue
			}
			if name := ex.fieldContent(d, "name"); name != "" {
				ex.out.Exports = append(ex.out.Exports, snapshot.Export{Name: name, Type: exportType})
			}
		}
	default:
		name := ex.fieldContent(decl, "name")
		if name == "" && isDefault {
			name = "default"
		}
		if name != "" {
			ex.out.Exports = append(ex.out.Exports, snapshot.Export{
				Name:   name,
				Type:   exportType,
				IsType: isType,
			})
		}
	}
}

// declExportType maps a declaration node type to an export descriptor type.
func declExportType(nodeType string) (string, bool) {
	switch nodeType {
	case "function_declaration", "generator_function_declaration", "function_signature":
		return "function", false
	case "class_declaration", "abstract_class_declaration":
		return "class", false
	case "interface_declaration":
		return "interface", true
	case "type_alias_declaration":
		return "type", true
	case "enum_declaration":
		return "enum", false
	default:
		return "variable", false
	}
}

func (ex *extractor) importSource(n *sitter.Node) string {
	src := n.ChildByFieldName("source")
	if src == nil {
		return ""
	}
	return strings.Trim(src.Content(ex.content), "\"'`")
}

func (ex *extractor) fieldContent(n *sitter.Node, field string) string {
	child := n.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Content(ex.content)
}

// signature returns the declaration text up to its body, whitespace
// collapsed and capped.
func (ex *extractor) signature(n *sitter.Node) string {
	end := n.EndByte()
	if body := n.ChildByFieldName("body"); body != nil {
		end = body.StartByte()
	}
	sig := strings.Join(strings.Fields(string(ex.content[n.StartByte():end])), " ")
	const maxSignature = 200
	if len(sig) > maxSignature {
		sig = sig[:maxSignature]
	}
	return strings.TrimSpace(sig)
}

func (ex *extractor) parameters(n *sitter.Node) []string {
	params := n.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		out = append(out, params.NamedChild(i).Content(ex.content))
	}
	return out
}

func (ex *extractor) returnType(n *sitter.Node) string {
	rt := n.ChildByFieldName("return_type")
	if rt == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(rt.Content(ex.content), ":"))
}
