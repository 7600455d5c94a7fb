// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cpg

import "fmt"

// Build stages reported in FileError.Stage.
const (
	StageStructure = "structure"
	StageBehavior  = "behavior"
	StageResolve   = "resolve"
)

// FileError records a per-file failure during a build. Builds continue past
// file errors; the affected file simply contributes less to the graph.
type FileError struct {
	FilePath string `json:"filePath"`
	Stage    string `json:"stage"`
	Err      error  `json:"-"`
	Message  string `json:"message"`
}

// Error implements the error interface.
func (e FileError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.FilePath, e.Stage, e.Message)
}

// Unwrap returns the underlying error.
func (e FileError) Unwrap() error { return e.Err }

// BuildStats captures counters from one build.
type BuildStats struct {
	FilesProcessed    int   `json:"filesProcessed"`
	FilesFailed       int   `json:"filesFailed"`
	FilesParsed       int   `json:"filesParsed"`
	NodesCreated      int   `json:"nodesCreated"`
	EdgesCreated      int   `json:"edgesCreated"`
	CallEdges         int   `json:"callEdges"`
	DataFlowEdges     int   `json:"dataFlowEdges"`
	ControlFlowEdges  int   `json:"controlFlowEdges"`
	ImportsResolved   int   `json:"importsResolved"`
	ImportsUnresolved int   `json:"importsUnresolved"`
	DurationMilli     int64 `json:"durationMs"`
	DurationMicro     int64 `json:"durationUs"`
}

// BuildResult is the outcome of one Builder.Build call. Graph is always
// non-nil on a nil-error return, even when FileErrors is non-empty; partial
// graphs are the expected product of degraded input.
type BuildResult struct {
	BuildID    string      `json:"buildId"`
	Graph      *Graph      `json:"-"`
	FileErrors []FileError `json:"fileErrors,omitempty"`
	Stats      BuildStats  `json:"stats"`

	// Incomplete is set when resource limits truncated the build.
	Incomplete bool `json:"incomplete"`
}

// HasErrors reports whether any file failed during the build.
func (r *BuildResult) HasErrors() bool { return len(r.FileErrors) > 0 }

// Success reports a complete build with no per-file failures.
func (r *BuildResult) Success() bool { return !r.Incomplete && !r.HasErrors() }
