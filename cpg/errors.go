// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cpg implements the code property graph engine: a builder that
// turns per-file AST snapshots into a unified graph of files, functions,
// classes, variables, and expressions connected by syntax, import, export,
// call, data-flow, and control-flow edges, and an analyzer providing
// traversal, reachability, impact, cycle, clustering, and path queries over
// the built graph.
//
// The builder degrades instead of failing: a missing parser, unreadable
// source, or unresolvable import reduces the graph's richness and is logged,
// but never aborts a build. The analyzer's operations are total functions;
// unknown ids yield empty results.
package cpg

import "errors"

var (
	// ErrBuildCancelled indicates the build context was cancelled.
	ErrBuildCancelled = errors.New("build cancelled")

	// ErrInvalidSnapshot indicates a snapshot failed input validation.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrSourceUnavailable indicates a file's raw source could not be read.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrInvalidEdgeKind indicates an attempt to create an edge with an
	// undefined kind.
	ErrInvalidEdgeKind = errors.New("invalid edge kind")

	// ErrDanglingEdge indicates an edge referencing a node id not present
	// in the graph. This is a builder defect, not a recoverable condition.
	ErrDanglingEdge = errors.New("edge references missing node")

	// ErrPartitionViolation indicates the per-file node index does not
	// partition the node set.
	ErrPartitionViolation = errors.New("file partition violated")

	// ErrMaxNodesExceeded indicates the build hit the node limit.
	ErrMaxNodesExceeded = errors.New("maximum node count exceeded")

	// ErrMaxEdgesExceeded indicates the build hit the edge limit.
	ErrMaxEdgesExceeded = errors.New("maximum edge count exceeded")
)
