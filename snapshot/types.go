// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package snapshot defines the per-file AST summary contract consumed by the
// graph builder. A Snapshot carries a flat list of declared entities with
// source locations plus raw import and export descriptors; it deliberately
// says nothing about how the file was parsed, so any producer (tree-sitter,
// a language server, a remote indexer) can feed the same builder.
package snapshot

import (
	"fmt"
	"strings"
)

// Entity kinds a producer may emit. The builder maps function, class, and
// variable onto dedicated graph node kinds; everything else becomes an
// expression node.
const (
	EntityFunction  = "function"
	EntityClass     = "class"
	EntityVariable  = "variable"
	EntityInterface = "interface"
	EntityTypeAlias = "type"
	EntityEnum      = "enum"
)

// Location identifies a byte range and starting line within a source file.
// Offsets are zero-based byte positions; Line is one-based.
type Location struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Line  int `json:"line"`
}

// Contains reports whether other lies entirely within this range.
func (l Location) Contains(other Location) bool {
	return l.Start <= other.Start && other.End <= l.End
}

// Entity is one declared symbol in a file.
//
// Signature, ReturnType, and Parameters are optional enrichment; producers
// that cannot recover them leave them zero-valued.
type Entity struct {
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	Location   Location `json:"location"`
	Signature  string   `json:"signature,omitempty"`
	ReturnType string   `json:"returnType,omitempty"`
	Parameters []string `json:"parameters,omitempty"`
}

// Import is one import statement. Source is the raw module specifier as
// written ("./util", "react"). IsExternal marks specifiers the producer
// could not attribute to a file inside the project; the builder records
// external imports nowhere in the graph.
type Import struct {
	Source     string   `json:"source"`
	Specifiers []string `json:"specifiers"`
	IsExternal bool     `json:"isExternal"`
	IsTypeOnly bool     `json:"isTypeOnly"`
}

// Export is one exported symbol. Type describes what kind of declaration
// was exported (function, class, variable, ...); IsType marks type-only
// exports.
type Export struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	IsType bool   `json:"isType"`
}

// Snapshot is the complete AST summary for one file.
type Snapshot struct {
	Hash      string   `json:"hash"`
	Timestamp int64    `json:"timestamp"`
	Nodes     []Entity `json:"nodes"`
	Imports   []Import `json:"imports"`
	Exports   []Export `json:"exports"`
}

// Validate checks a snapshot against the input contract.
//
// Description:
//
//	Rejects snapshots that would corrupt the graph: entities without a
//	name, inverted locations, imports without a source, and exports
//	without a name. Producers are expected to filter these before
//	emitting, so a failure here indicates a producer bug.
//
// Inputs:
//   - filePath: the file the snapshot describes, used for error context
//     and rejected if it contains a parent-directory traversal.
//
// Outputs:
//   - error: nil if valid, otherwise a description of the first problem.
func (s *Snapshot) Validate(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("snapshot has empty file path")
	}
	for _, seg := range strings.Split(filePath, "/") {
		if seg == ".." {
			return fmt.Errorf("snapshot file path %q contains path traversal", filePath)
		}
	}
	for i, ent := range s.Nodes {
		if ent.Name == "" {
			return fmt.Errorf("%s: entity %d has empty name", filePath, i)
		}
		if ent.Type == "" {
			return fmt.Errorf("%s: entity %q has empty type", filePath, ent.Name)
		}
		if ent.Location.End < ent.Location.Start {
			return fmt.Errorf("%s: entity %q has inverted location [%d,%d]",
				filePath, ent.Name, ent.Location.Start, ent.Location.End)
		}
	}
	for i, imp := range s.Imports {
		if imp.Source == "" {
			return fmt.Errorf("%s: import %d has empty source", filePath, i)
		}
	}
	for i, exp := range s.Exports {
		if exp.Name == "" {
			return fmt.Errorf("%s: export %d has empty name", filePath, i)
		}
	}
	return nil
}

// IsRelative reports whether the import source is a relative specifier.
func (i Import) IsRelative() bool {
	return strings.HasPrefix(i.Source, "./") || strings.HasPrefix(i.Source, "../") ||
		i.Source == "." || i.Source == ".."
}
