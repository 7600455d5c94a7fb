// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// codegraph builds a code property graph for a TypeScript or JavaScript
// project and answers dependency queries over it.
//
// Usage:
//
//	codegraph build [path]          scan a project and cache the graph
//	codegraph impact <node>...      blast radius of changing nodes
//	codegraph cycles                call/import cycles (SCCs)
//	codegraph path <from> <to>      shortest path, or --all for every path
//	codegraph callers <function>    callers of a function (--callees flips)
//	codegraph stats                 summary of the cached graph
//
// Configuration is read from ./codegraph.yaml and CODEGRAPH_* environment
// variables; see the config package for keys and defaults.
package main

import (
	"os"

	"github.com/halyardlabs/codegraph/cli"
)

func main() {
	os.Exit(cli.Execute())
}
