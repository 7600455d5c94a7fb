// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store persists code property graphs. Two backends are provided:
// a pretty-printed JSON file store and an embedded Badger key-value store.
// Both treat a missing or malformed persisted graph as ErrNoGraph rather
// than a failure; callers fall back to rebuilding.
package store

import (
	"context"
	"errors"

	"github.com/halyardlabs/codegraph/cpg"
)

// ErrNoGraph indicates no usable cached graph exists. A corrupt persisted
// graph reports the same condition as an absent one; there is no schema
// migration on read.
var ErrNoGraph = errors.New("no cached graph available")

// Store persists and retrieves a graph.
//
// Load returns ErrNoGraph when nothing usable is cached. Save replaces any
// previously persisted graph wholesale.
type Store interface {
	cpg.GraphStore
	Load(ctx context.Context) (*cpg.Graph, error)
	Close() error
}
