// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package parser

import "github.com/halyardlabs/codegraph/snapshot"

// Control-flow construct kinds recorded by Outline.ControlFlow.
const (
	FlowIf      = "if"
	FlowFor     = "for"
	FlowForIn   = "for-in"
	FlowForOf   = "for-of"
	FlowWhile   = "while"
	FlowDoWhile = "do-while"
	FlowSwitch  = "switch"
)

// Call is a call expression whose callee is a bare identifier. Calls through
// member expressions (obj.method()) are not recorded; resolving them needs
// type information this layer does not have.
type Call struct {
	Callee   string
	Location snapshot.Location
}

// VariableDecl is a variable declaration with a simple identifier name.
// Destructuring patterns are not recorded.
type VariableDecl struct {
	Name     string
	Location snapshot.Location
}

// FlowSite is one control-flow construct encountered during the walk, in
// traversal order.
type FlowSite struct {
	Kind     string
	Location snapshot.Location
}

// Outline is everything a single parse extracts from one file.
//
// The structural slices (Entities, Imports, Exports) feed snapshot
// production; the behavioral slices (Calls, Variables, ControlFlow) feed the
// builder's edge-extraction pass. All slices preserve source order.
type Outline struct {
	Language string
	Hash     string

	Entities []snapshot.Entity
	Imports  []snapshot.Import
	Exports  []snapshot.Export

	Calls       []Call
	Variables   []VariableDecl
	ControlFlow []FlowSite
}

// Snapshot converts the structural portion of the outline into the builder's
// input contract, stamping it with the given timestamp.
func (o *Outline) Snapshot(timestamp int64) snapshot.Snapshot {
	return snapshot.Snapshot{
		Hash:      o.Hash,
		Timestamp: timestamp,
		Nodes:     o.Entities,
		Imports:   o.Imports,
		Exports:   o.Exports,
	}
}
